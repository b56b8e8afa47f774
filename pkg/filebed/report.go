package filebed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/filebed/filebed_sdk_go/internal/filebedapi"
	"github.com/filebed/filebed_sdk_go/pkg/prompt"
	"github.com/sirupsen/logrus"
)

// ServerError is the failure reported by the service in its envelope.
type ServerError = filebedapi.ServerError

// Reporter is the single funnel for failures: it renders a value to a
// message, shows it through the prompt and logs it.
type Reporter struct {
	Prompt prompt.UserPrompt
	Log    logrus.FieldLogger
}

// Report notifies the user about v and returns the message shown.
// Declined confirmations are not failures and are not reported.
func (r *Reporter) Report(v any) string {
	if err, ok := v.(error); ok && errors.Is(err, ErrDeclined) {
		return ""
	}
	msg := Describe(v)
	if r == nil {
		return msg
	}
	if r.Log != nil {
		r.Log.WithField("error", msg).Error("filebed: request failed")
	}
	if r.Prompt != nil {
		r.Prompt.Notify(msg)
	}
	return msg
}

// Describe renders v as a user-facing message. Strings are shown as is,
// server failures by their message and other errors by Error(). Anything
// else is serialized to JSON, falling back to its Go syntax form when the
// JSON carries nothing.
func Describe(v any) string {
	switch val := v.(type) {
	case nil:
		return "unknown error"
	case string:
		return val
	case error:
		var serverErr *ServerError
		if errors.As(val, &serverErr) {
			return serverErr.Msg
		}
		return val.Error()
	case fmt.Stringer:
		return val.String()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	switch string(raw) {
	case "", "null", "{}", "[]":
		return fmt.Sprintf("%#v", v)
	}
	return string(raw)
}
