package common

import (
	"fmt"
	"runtime/debug"
	"strings"
)

var (
	// PV is the current version object of the program
	PV ProgramVersion
	// Version is the current version of the program, set with -ldflags
	Version string
	// CommitHash is the current commit hash of the program
	CommitHash string
	// BuildTime is the current build time of the program
	BuildTime string
)

func init() {
	PV = resolveVersion(Version, CommitHash, BuildTime)
}

// ProgramVersion is the version object of the program
type ProgramVersion struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
}

// resolveVersion fills fields missing from ldflags with the module build info
func resolveVersion(version, commit, buildTime string) ProgramVersion {
	v := ProgramVersion{Version: version, CommitHash: commit, BuildTime: buildTime}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v.withDefaults()
	}
	if v.Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v.Version = strings.TrimPrefix(info.Main.Version, "v")
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if v.CommitHash == "" && len(setting.Value) >= 7 {
				v.CommitHash = setting.Value[:7]
			}
		case "vcs.time":
			if v.BuildTime == "" {
				v.BuildTime = setting.Value
			}
		}
	}
	return v.withDefaults()
}

func (v ProgramVersion) withDefaults() ProgramVersion {
	if v.Version == "" {
		v.Version = "0.0.0-dev"
	}
	if v.CommitHash == "" {
		v.CommitHash = "unknown"
	}
	if v.BuildTime == "" {
		v.BuildTime = "unknown"
	}
	return v
}

// Short returns the short version of the program
func (v ProgramVersion) Short() string {
	return fmt.Sprintf("v%s-%s-%s", v.Version, v.CommitHash, v.BuildTime)
}

// String returns the verbose version of the program
func (v ProgramVersion) String() string {
	var b strings.Builder
	b.WriteString("config-collector\n")
	fmt.Fprintf(&b, "Version: v%s\n", v.Version)
	fmt.Fprintf(&b, "Commit: %s\n", v.CommitHash)
	fmt.Fprintf(&b, "Build Date: %s", v.BuildTime)
	return b.String()
}
