// SPDX-License-Identifier: EPL-2.0

// Package build exposes metadata injected at link time, for example:
//
//	go build -ldflags "-X github.com/ik5/wavereel/internal/build.version=0.1.0 \
//	  -X github.com/ik5/wavereel/internal/build.commit=$(git rev-parse --short HEAD)"
package build

import (
	"fmt"
	"runtime/debug"
)

var (
	name      = "wavereel"
	version   string
	commit    string
	buildTime string
)

// Info describes the running binary.
type Info struct {
	Name    string
	Version string
	Commit  string
	Time    string
}

// Get returns the link time values, falling back to the module build info
// and then to "unknown".
func Get() Info {
	info := Info{Name: name, Version: version, Commit: commit, Time: buildTime}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.Time == "" {
					info.Time = s.Value
				}
			}
		}
	}

	for _, p := range []*string{&info.Version, &info.Commit, &info.Time} {
		if *p == "" {
			*p = "unknown"
		}
	}

	return info
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
