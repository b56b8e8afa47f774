package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/filebed/filebed_sdk_go/pkg/filebed"
)

func kind(isFile bool) string {
	if isFile {
		return "file"
	}
	return "dir"
}

func printSimple(w io.Writer, info *filebed.FileSimpleInfo) {
	if info == nil {
		return
	}
	printSimpleList(w, []filebed.FileSimpleInfo{*info})
}

func printSimpleList(w io.Writer, infos []filebed.FileSimpleInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", kind(info.IsFile), info.Path, info.URL)
	}
	tw.Flush()
}

func printCompleteList(w io.Writer, infos []filebed.FileCompleteInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			kind(info.IsFile), info.Path, humanize.Bytes(uint64(info.Size)), info.Count, info.MD5)
	}
	tw.Flush()
}
