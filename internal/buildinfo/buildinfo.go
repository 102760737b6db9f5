// Package buildinfo exposes values stamped into the binary at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/bookexplorer/internal/buildinfo.Version=v1.2.0 \
//	  -X github.com/dmitrijs2005/bookexplorer/internal/buildinfo.Date=2026-10-17 \
//	  -X github.com/dmitrijs2005/bookexplorer/internal/buildinfo.Commit=abc123"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	Version string
	Date    string
	Commit  string
)

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// PrintBuildData writes the build banner to w, one value per line.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", orNA(Version))
	fmt.Fprintf(w, "Build date: %s\n", orNA(Date))
	fmt.Fprintf(w, "Build commit: %s\n", orNA(Commit))
}
