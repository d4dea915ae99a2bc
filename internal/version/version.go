// Package version reports the engine build.
package version

import "runtime/debug"

// Version is the release version. Override at build time with
//
//	go build -ldflags "-X github.com/AaronLay10/Choreo/internal/version.Version=x.y.z"
var Version = "0.3.0"

// Commit returns the VCS revision recorded by the Go toolchain, or "" when
// the binary was built without VCS stamping.
func Commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}
