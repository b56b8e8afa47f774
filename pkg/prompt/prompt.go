// Package prompt abstracts the user-facing surfaces used by the file bed
// client: a blocking yes/no confirmation before creating or destroying
// files, and a notification channel for failures.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// UserPrompt is the capability injected into the client.
type UserPrompt interface {
	// Confirm blocks until the user accepts or declines message.
	Confirm(message string) bool
	// Notify shows message to the user.
	Notify(message string)
}

// Auto answers every confirmation with Answer and traces notifications at
// debug level. It is the default for non-interactive callers, whose
// failures are already logged by the client.
type Auto struct {
	Answer bool
	Log    logrus.FieldLogger
}

// Confirm implements UserPrompt.
func (a Auto) Confirm(message string) bool {
	a.logger().WithFields(logrus.Fields{"message": message, "answer": a.Answer}).Debug("prompt: auto confirm")
	return a.Answer
}

// Notify implements UserPrompt.
func (a Auto) Notify(message string) {
	a.logger().WithField("message", message).Debug("prompt: notify")
}

func (a Auto) logger() logrus.FieldLogger {
	if a.Log == nil {
		return logrus.StandardLogger()
	}
	return a.Log
}

// Terminal asks on an output stream and reads the answer from an input
// stream. Only "y" and "yes" (any case) confirm.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal builds a Terminal prompt over in and out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Confirm implements UserPrompt.
func (t *Terminal) Confirm(message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "%s [y/N]: ", message)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// Notify implements UserPrompt.
func (t *Terminal) Notify(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "error: %s\n", message)
}

// Recorder is a deterministic UserPrompt for tests. It answers with
// Answer and records every message it receives.
type Recorder struct {
	Answer bool

	mu       sync.Mutex
	confirms []string
	notifies []string
}

// Confirm implements UserPrompt.
func (r *Recorder) Confirm(message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirms = append(r.confirms, message)
	return r.Answer
}

// Notify implements UserPrompt.
func (r *Recorder) Notify(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifies = append(r.notifies, message)
}

// Confirms returns the confirmation messages seen so far.
func (r *Recorder) Confirms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.confirms...)
}

// Notifications returns the notifications seen so far.
func (r *Recorder) Notifications() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notifies...)
}
