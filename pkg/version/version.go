// Package version carries build metadata injected with -ldflags.
package version

import "runtime/debug"

// Build metadata. Overridden at link time:
//
//	-ldflags "-X github.com/Sumatoshi-tech/topicstats/pkg/version.Version=v1.0.0"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills unset metadata from the module build info, so that
// binaries installed with go install still report something useful.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "none" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" {
				Date = setting.Value
			}
		}
	}
}
