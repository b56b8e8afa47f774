package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/filebed/filebed_sdk_go/pkg/filebed"
	"github.com/spf13/cobra"
)

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the service answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.client.Ping(cmd.Context())
			if err != nil {
				return reported(err)
			}
			fmt.Fprintln(a.out, string(data))
			return nil
		},
	}
}

func (a *app) addURLCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "add-url <path> <url>",
		Short: "Register the file behind a URL at path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.AddURL(cmd.Context(), args[0], args[1], raw)
			if err != nil {
				return reported(err)
			}
			printSimple(a.out, resp.Info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "store the file without server-side conversion")
	return cmd
}

func (a *app) addFileCmd() *cobra.Command {
	var (
		raw  bool
		name string
	)
	cmd := &cobra.Command{
		Use:   "add-file <path> <local-file>",
		Short: "Upload a local file to path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			opts := &filebed.AddFileOptions{FileName: name, Raw: raw}
			if opts.FileName == "" {
				opts.FileName = filepath.Base(args[1])
			}
			resp, err := a.client.AddFile(cmd.Context(), args[0], f, opts)
			if err != nil {
				return reported(err)
			}
			printSimple(a.out, resp.Info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "store the file without server-side conversion")
	cmd.Flags().StringVar(&name, "name", "", "file name sent with the upload (default: local file name)")
	return cmd
}

func (a *app) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <path>",
		Aliases: []string{"remove"},
		Short:   "Remove a file or directory",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.RemoveFile(cmd.Context(), args[0])
			if err != nil {
				return reported(err)
			}
			printSimple(a.out, resp.Info)
			return nil
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <path>",
		Short: "Show size, file count and checksum of a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.GetFileCompleteInfo(cmd.Context(), args[0])
			if err != nil {
				return reported(err)
			}
			if resp.Info == nil {
				return fmt.Errorf("%s: %w", args[0], filebed.ErrNotFound)
			}
			printCompleteList(a.out, []filebed.FileCompleteInfo{*resp.Info})
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory (the root by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) > 0 {
				dir = args[0]
			}
			resp, err := a.client.ListFileSimpleInfo(cmd.Context(), dir)
			if err != nil {
				return reported(err)
			}
			printSimpleList(a.out, resp.Infos)
			return nil
		},
	}
}

func (a *app) listCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls-complete <path>",
		Short: "List a directory with sizes and checksums",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.ListFileCompleteInfo(cmd.Context(), args[0])
			if err != nil {
				return reported(err)
			}
			printCompleteList(a.out, resp.Infos)
			return nil
		},
	}
}

func (a *app) lastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "List the most recently modified files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.ListLastFileInfo(cmd.Context())
			if err != nil {
				return reported(err)
			}
			printSimpleList(a.out, resp.Infos)
			return nil
		},
	}
}

func (a *app) pushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <address> <secret> [path]",
		Short: "Ask the service to copy changed files to a peer",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.client.PushSyncFile(cmd.Context(), args[0], args[1], optionalArg(args, 2)); err != nil {
				return reported(err)
			}
			fmt.Fprintf(a.out, "pushed to %s\n", args[0])
			return nil
		},
	}
}

func (a *app) pullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <address> <secret> [path]",
		Short: "Ask the service to copy changed files from a peer",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.client.PullSyncFile(cmd.Context(), args[0], args[1], optionalArg(args, 2)); err != nil {
				return reported(err)
			}
			fmt.Fprintf(a.out, "pulled from %s\n", args[0])
			return nil
		},
	}
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
