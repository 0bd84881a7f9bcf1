// Package version reports the otastub build identity.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Version and Commit can be stamped at build time:
//
//	go build -ldflags="-X github.com/muurk/otastub/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/otastub/internal/version.Commit=abc1234"
//
// Unstamped builds fall back to VCS data from the build info.
var (
	Version = ""
	Commit  = ""
)

// Info is the resolved build identity
type Info struct {
	Version   string
	Commit    string
	GoVersion string
}

func init() {
	info, _ := debug.ReadBuildInfo()
	Version, Commit = resolve(Version, Commit, info)
}

// resolve fills in whatever ldflags left empty from build info settings.
func resolve(version, commit string, info *debug.BuildInfo) (string, string) {
	var revision, modified, vcsTime string
	if info != nil {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.modified":
				modified = s.Value
			case "vcs.time":
				vcsTime = s.Value
			}
		}
		if version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}

	if commit == "" && revision != "" {
		commit = revision
		if len(commit) > 7 {
			commit = commit[:7]
		}
		if modified == "true" {
			commit += "-dirty"
		}
	}

	if version == "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			version = "dev-" + t.Format("20060102")
		} else {
			version = "dev"
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	return version, commit
}

// Get returns the build identity of the running binary.
func Get() Info {
	return Info{Version: Version, Commit: Commit, GoVersion: runtime.Version()}
}

// Full returns the version with its commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
