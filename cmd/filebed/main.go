// Command filebed drives a file bed service from the command line.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/filebed/filebed_sdk_go/internal/config"
	"github.com/filebed/filebed_sdk_go/pkg/filebed"
	"github.com/filebed/filebed_sdk_go/pkg/prompt"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		var rep *reportedError
		switch {
		case errors.Is(err, filebed.ErrDeclined):
			fmt.Fprintln(os.Stderr, "aborted")
		case errors.As(err, &rep):
			// already shown through the prompt
		default:
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// app carries the streams and the client shared by every subcommand.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	client *filebed.Client
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut}
	root := &cobra.Command{
		Use:   "filebed",
		Short: "Manage files on a file bed service",
		Long: `filebed talks to a file bed service: it uploads files or URLs, removes them,
inspects and lists the tree, and asks the service to push or pull files to or
from a peer instance.

Settings come from ~/.filebed.yaml, the FILEBED_* environment variables and
the flags below, with flags taking precedence.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(a.pingCmd())
	root.AddCommand(a.addURLCmd())
	root.AddCommand(a.addFileCmd())
	root.AddCommand(a.removeCmd())
	root.AddCommand(a.infoCmd())
	root.AddCommand(a.listCmd())
	root.AddCommand(a.listCompleteCmd())
	root.AddCommand(a.lastCmd())
	root.AddCommand(a.pushCmd())
	root.AddCommand(a.pullCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Address == "" {
		return fmt.Errorf("no service address: set --%s, %s or address in the config file", config.FlagAddress, filebed.EnvAPIURL)
	}
	logger, err := cfg.NewLogger(a.errOut)
	if err != nil {
		return err
	}

	var p prompt.UserPrompt = prompt.NewTerminal(a.in, a.errOut)
	if cfg.AssumeYes {
		p = prompt.Auto{Answer: true, Log: logger}
	}
	opts := append(cfg.ClientOptions(), filebed.WithPrompt(p), filebed.WithLogger(logger))
	a.client, err = filebed.New(cfg.Address, opts...)
	return err
}

// reportedError marks a failure the client already showed to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// reported wraps a client error so main does not print it twice.
func reported(err error) error {
	if err == nil || errors.Is(err, filebed.ErrDeclined) {
		return err
	}
	return &reportedError{err: err}
}
