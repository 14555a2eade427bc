// SPDX-License-Identifier: MIT

// Package build exposes the name, version, commit and build time embedded with
// -ldflags, for example:
//
//	go build -ldflags "-X vibe/pkg/build.buildName=vibe -X vibe/pkg/build.buildVersion=0.1.0 ..."
//
// Development builds set none of the flags and fall back to the module's VCS
// stamp, or "dev".
package build

import (
	"fmt"
	"runtime/debug"
)

// Info is the build metadata shown by --version and logged at startup.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

const (
	defaultName        = "vibe"
	defaultDescription = "Real-time radial audio spectrum visualizer"
	devValue           = "dev"
)

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var buildFlags = &Info{
	Name:        defaultName,
	Description: defaultDescription,
	Time:        devValue,
	Commit:      devValue,
	Version:     devValue,
}

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize copies the ldflags values into the build info. Either every flag
// is set (a release build) or none is (a development build, which uses the
// VCS stamp when present). A partial set is an error.
func Initialize() error {
	set := 0
	for _, v := range []string{buildName, buildTime, buildCommit, buildVersion} {
		if v != "" {
			set++
		}
	}

	switch set {
	case 0:
		applyVCSStamp(buildFlags)
		return nil
	case 4:
		buildFlags.Name = buildName
		buildFlags.Time = buildTime
		buildFlags.Commit = buildCommit
		buildFlags.Version = buildVersion
		return nil
	}

	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	return fmt.Errorf("BuildVersion is required")
}

func applyVCSStamp(info *Info) {
	bi, ok := readBuildInfo()
	if !ok {
		return
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
			if len(info.Commit) > 12 {
				info.Commit = info.Commit[:12]
			}
		case "vcs.time":
			info.Time = s.Value
		}
	}
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildFlags
}

// String formats the info for a version banner.
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
