// Package version holds the build version.
package version

import (
	"runtime"
	"runtime/debug"
)

// Version is overridden at link time with -ldflags "-X voyageai/pkg/version.Version=...".
var Version = "0.1.0-dev"

// Info describes the running binary.
type Info struct {
	Version  string `json:"version"`
	Revision string `json:"revision,omitempty"`
	Go       string `json:"go"`
}

// Get returns the version with the VCS revision stamped by the Go toolchain, if any.
func Get() Info {
	info := Info{Version: Version, Go: runtime.Version()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.Revision = revision(bi.Settings)
	}
	return info
}

func revision(settings []debug.BuildSetting) string {
	var rev string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}
