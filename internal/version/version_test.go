package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildSettings(t *testing.T) {
	tests := []struct {
		name       string
		settings   []debug.BuildSetting
		wantCommit string
		wantDate   string
	}{
		{
			name: "clean",
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.time", Value: "2026-03-02T10:00:00Z"},
			},
			wantCommit: "0123456",
			wantDate:   "2026-03-02T10:00:00Z",
		},
		{
			name: "dirty",
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc"},
				{Key: "vcs.modified", Value: "true"},
			},
			wantCommit: "abc-dirty",
		},
		{
			name:     "no vcs",
			settings: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var info Info
			fromBuildSettings(&info, tt.settings)
			if info.Commit != tt.wantCommit {
				t.Errorf("expected commit %q, got %q", tt.wantCommit, info.Commit)
			}
			if info.BuildDate != tt.wantDate {
				t.Errorf("expected build date %q, got %q", tt.wantDate, info.BuildDate)
			}
		})
	}
}

func TestLdflagsTakePrecedence(t *testing.T) {
	info := Info{Commit: "release"}
	fromBuildSettings(&info, []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789"}})
	if info.Commit != "release" {
		t.Errorf("expected commit %q, got %q", "release", info.Commit)
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Version == "" || info.Commit == "" {
		t.Errorf("expected version and commit to be filled, got %+v", info)
	}
	if !strings.Contains(Full(), info.Version) {
		t.Errorf("expected Full() to contain %q, got %q", info.Version, Full())
	}
}
