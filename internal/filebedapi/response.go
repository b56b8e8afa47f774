// Package filebedapi holds the envelope contract shared by every file bed
// endpoint: {"code": int, "msg": string, "data": any}.
package filebedapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// SuccessCode is the only code that marks a successful envelope.
	SuccessCode = 1
	// FailCode is what the service answers for handled failures.
	FailCode = 2
)

// Envelope is the decoded form of a response body.
type Envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Reply is the encoded form of a response body.
type Reply struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// Success wraps data in a success envelope.
func Success(data any) Reply {
	return Reply{Code: SuccessCode, Data: data}
}

// Failure builds a failure envelope carrying msg.
func Failure(msg string) Reply {
	return Reply{Code: FailCode, Msg: msg}
}

// ServerError is returned when the envelope code is not SuccessCode.
type ServerError struct {
	Code int
	Msg  string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("filebed: server failure (code %d): %s", e.Code, e.Msg)
}

// ErrEmptyBody is returned by Unwrap for a blank response body.
var ErrEmptyBody = errors.New("filebedapi: empty response body")

// Unwrap parses the envelope in body and returns its data field verbatim.
// A code other than SuccessCode yields a *ServerError carrying msg.
func Unwrap(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmptyBody
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("filebedapi: decode envelope: %w", err)
	}
	if env.Code != SuccessCode {
		return nil, &ServerError{Code: env.Code, Msg: env.Msg}
	}
	if env.Data == nil {
		return json.RawMessage("null"), nil
	}
	return append(json.RawMessage(nil), env.Data...), nil
}

// Decode unwraps body and decodes the data field into out. A missing or
// null data field leaves out untouched.
func Decode(body []byte, out any) error {
	data, err := Unwrap(body)
	if err != nil {
		return err
	}
	if out == nil || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("filebedapi: decode data: %w", err)
	}
	return nil
}
