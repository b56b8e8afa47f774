// Package filebed_sdk bootstraps a file bed client from the environment.
// FILEBED_RUNTIME_MODE selects "http" (FILEBED_API_URL required), "mock"
// (an in-memory store, optionally seeded from FILEBED_MOCK_SEED) or "auto",
// which uses HTTP when FILEBED_API_URL is set and the mock otherwise. Both
// kinds of client share the same API.
package filebed_sdk
