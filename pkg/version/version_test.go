package version

import (
	"strings"
	"testing"
	"time"
)

func TestGet(t *testing.T) {
	info := Get("krishi-console")
	if info.Component != "krishi-console" {
		t.Errorf("Component = %q", info.Component)
	}
	if info.Version == "" || info.GitCommit == "" || info.BuildDate == "" {
		t.Error("build fields should not be empty")
	}
	if info.GoVersion == "" || info.Platform == "" {
		t.Error("runtime fields should be set")
	}
}

func TestGet_ParsesValidDate(t *testing.T) {
	originalBuildDate := BuildDate
	defer func() { BuildDate = originalBuildDate }()

	validDate := "2026-01-13T20:00:00Z"
	BuildDate = validDate

	info := Get("")
	expectedTime, _ := time.Parse(time.RFC3339, validDate)
	if !info.BuildTime.Equal(expectedTime) {
		t.Errorf("BuildTime = %v, want %v", info.BuildTime, expectedTime)
	}

	BuildDate = "yesterday"
	if !Get("").BuildTime.IsZero() {
		t.Error("BuildTime should stay zero for unparsable dates")
	}
}

func TestUserAgent(t *testing.T) {
	originalVersion, originalCommit := Version, GitCommit
	defer func() { Version, GitCommit = originalVersion, originalCommit }()

	Version = "1.4.0"
	GitCommit = "0123456789abcdef"
	ua := UserAgent("krishictl")
	if !strings.HasPrefix(ua, "krishictl/1.4.0 (0123456;") {
		t.Errorf("UserAgent = %q", ua)
	}
	if !strings.Contains(ua, Platform) {
		t.Errorf("UserAgent %q should contain platform", ua)
	}
}
