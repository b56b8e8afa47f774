// Package filebed exposes a client for the file bed remote file-management
// service. Every call carries a bearer token, targets a fixed path relative
// to the service base URL (with a ".json" suffix in local fixture mode) and
// unwraps the {code,msg,data} envelope.
//
// Failures of every kind (argument validation, transport, server-reported)
// are funnelled through a single Reporter that notifies the user through the
// injected prompt.UserPrompt and logs through logrus, and every failing
// operation returns a nil payload alongside the error.
package filebed
