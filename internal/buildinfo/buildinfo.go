// Package buildinfo carries version data injected at link time, e.g.
//
//	go build -ldflags "-X github.com/dmitrijs2005/gophmail/internal/buildinfo.BuildVersion=v1.0.0"
package buildinfo

import (
	"fmt"
	"io"
)

var (
	BuildVersion string
	BuildDate    string
	BuildCommit  string
)

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// PrintBuildData writes the build version, date and commit to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", valueOrNA(BuildVersion))
	fmt.Fprintf(w, "Build date: %s\n", valueOrNA(BuildDate))
	fmt.Fprintf(w, "Build commit: %s\n", valueOrNA(BuildCommit))
}
