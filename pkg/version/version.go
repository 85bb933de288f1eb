// Package version exposes build information set through -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// BinaryGitHash is the Git hash the ocaport binary was built from.
var BinaryGitHash = "<unknown>"

// Binary is the release of the ocaport binary.
var Binary = "dev"

// Info describes the running binary.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	GitHash   string `json:"git_hash" yaml:"git_hash"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the build information, falling back to the module version
// recorded by the Go toolchain when ldflags were not set.
func Get() Info {
	info := Info{
		Version:   Binary,
		GitHash:   BinaryGitHash,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	if info.Version == "dev" && build.Main.Version != "" && build.Main.Version != "(devel)" {
		info.Version = build.Main.Version
	}

	for _, setting := range build.Settings {
		if setting.Key == "vcs.revision" && info.GitHash == "<unknown>" {
			info.GitHash = setting.Value
		}
	}

	return info
}

// String renders the information on one line.
func (i Info) String() string {
	return fmt.Sprintf("ocaport %s (%s) %s %s", i.Version, i.GitHash, i.GoVersion, i.Platform)
}
