// Package version exposes the build identity stamped into the streampulse
// binary at link time.
package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags "-X .../version.Version=..." by the release build.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build identity reported by the version endpoint.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func (i Info) String() string {
	return fmt.Sprintf("streampulse %s (%s, built %s, %s)", i.Version, i.Commit, i.BuildTime, i.GoVersion)
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
