// Package version carries build metadata injected through -ldflags.
package version

import (
	"fmt"
	"runtime"
	"time"
)

var (
	// Version is the semantic version, injected at build time via -ldflags
	Version = "dev"
	// GitCommit is the git commit hash, injected at build time
	GitCommit = "unknown"
	// BuildDate is the build timestamp, injected at build time
	BuildDate = "unknown"
	// GoVersion is the Go compiler version
	GoVersion = runtime.Version()
	// Platform is the OS/Arch
	Platform = runtime.GOOS + "/" + runtime.GOARCH
)

// BuildInfo is served at /api/version and printed by krishictl version.
type BuildInfo struct {
	Component string    `json:"component,omitempty" yaml:"component,omitempty"`
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"gitCommit" yaml:"gitCommit"`
	BuildDate string    `json:"buildDate" yaml:"buildDate"`
	GoVersion string    `json:"goVersion" yaml:"goVersion"`
	Platform  string    `json:"platform" yaml:"platform"`
	BuildTime time.Time `json:"buildTime,omitempty" yaml:"buildTime,omitempty"`
}

// Get returns build metadata for component.
func Get(component string) BuildInfo {
	info := BuildInfo{
		Component: component,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
		Platform:  Platform,
	}
	if t, err := time.Parse(time.RFC3339, BuildDate); err == nil {
		info.BuildTime = t
	}
	return info
}

// ShortCommit returns the first seven characters of the commit hash.
func (b BuildInfo) ShortCommit() string {
	if len(b.GitCommit) > 7 {
		return b.GitCommit[:7]
	}
	return b.GitCommit
}

// UserAgent returns the User-Agent sent to the advisory API,
// e.g. "krishi-console/1.2.0 (abc1234; linux/amd64)".
func UserAgent(component string) string {
	b := Get(component)
	return fmt.Sprintf("%s/%s (%s; %s)", component, b.Version, b.ShortCommit(), b.Platform)
}
