package main

import (
	"bytes"
	"fmt"
	"runtime"
	"runtime/debug"
	"text/tabwriter"
)

// Set with -ldflags "-X main.version=...". Commit and build time fall
// back to the VCS stamp of the binary.
var (
	version   = "dev"
	commit    = ""
	buildTime = ""
)

func versionString() string {
	rev, at := commit, buildTime
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && rev == "":
				rev = s.Value
			case s.Key == "vcs.time" && at == "":
				at = s.Value
			}
		}
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 1, ' ', 0)
	fmt.Fprintf(w, "mdblog:\t%s\n", version)
	fmt.Fprintf(w, "Commit:\t%s\n", orUnknown(rev))
	fmt.Fprintf(w, "Built:\t%s\n", orUnknown(at))
	fmt.Fprintf(w, "Go:\t%s\n", runtime.Version())
	_ = w.Flush()
	return buf.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
