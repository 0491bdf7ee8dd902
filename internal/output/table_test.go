package output

import (
	"strings"
	"testing"
	"time"

	"github.com/loomworks/loom/internal/store"
)

func TestRenderEventTable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		events   []*store.UpdateEvent
		contains []string
	}{
		{
			name:     "empty history",
			events:   []*store.UpdateEvent{},
			contains: []string{"No update history recorded"},
		},
		{
			name: "committed update",
			events: []*store.UpdateEvent{
				{
					Timestamp:   now.Add(-1 * time.Hour),
					Outcome:     "committed",
					FromVersion: "1.2.0",
					ToVersion:   "1.3.0",
					ContentID:   "tx-abc",
				},
			},
			contains: []string{"committed", "1.2.0", "1.3.0", "1 hour ago"},
		},
		{
			name: "check outcomes without a target version",
			events: []*store.UpdateEvent{
				{
					Timestamp:   now.Add(-24 * time.Hour),
					Outcome:     "network-unavailable",
					FromVersion: "1.2.0",
					Detail:      "query: gateway unreachable",
				},
			},
			contains: []string{"network-unavailable", "1.2.0", "—", "gateway unreachable"},
		},
		{
			name: "rollback with detail",
			events: []*store.UpdateEvent{
				{
					Timestamp:   now.Add(-2 * 24 * time.Hour),
					Outcome:     "rolled-back",
					FromVersion: "1.3.0",
					ToVersion:   "1.2.0",
					Detail:      "installed binary reports 1.2.0, expected 1.3.0",
				},
			},
			contains: []string{"rolled-back", "2 days ago"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderEventTable(tt.events)

			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("RenderEventTable() missing expected string %q\nGot:\n%s", expected, result)
				}
			}
		})
	}
}

func TestRenderBackupTable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		backups  []*store.Backup
		contains []string
	}{
		{
			name:     "empty backups",
			backups:  []*store.Backup{},
			contains: []string{"No backups found"},
		},
		{
			name: "registered backups",
			backups: []*store.Backup{
				{
					Version:      "1.2.0",
					CreatedAt:    now.Add(-30 * time.Minute),
					Mechanism:    "npm",
					ArtifactPath: "/home/u/.loom/backups/loom-1.2.0.tgz",
				},
				{
					Version:      "1.1.0",
					CreatedAt:    now.Add(-8 * 24 * time.Hour),
					Mechanism:    "bun",
					ArtifactPath: "/home/u/.loom/backups/loom-1.1.0.tgz",
				},
			},
			contains: []string{
				"1.2.0", "npm", "loom-1.2.0.tgz", "30 minutes ago",
				"1.1.0", "bun", "1 week ago",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderBackupTable(tt.backups)

			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("RenderBackupTable() missing expected string %q\nGot:\n%s", expected, result)
				}
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{2147483648, "2.0 GB"},
	}

	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero time", time.Time{}, "never"},
		{"just now", now.Add(-30 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5 minutes ago"},
		{"singular hour", now.Add(-90 * time.Minute), "1 hour ago"},
		{"days", now.Add(-3 * 24 * time.Hour), "3 days ago"},
		{"months", now.Add(-65 * 24 * time.Hour), "2 months ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.t); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutcomeColor(t *testing.T) {
	tests := []struct {
		outcome string
		want    string
	}{
		{"committed", colorGreen},
		{"up-to-date", colorGreen},
		{"rolled-back", colorYellow},
		{"trust-rejected", colorRed},
		{"manual-intervention-required", colorRed},
		{"skipped", colorGray},
	}

	for _, tt := range tests {
		if got := outcomeColor(tt.outcome); got != tt.want {
			t.Errorf("outcomeColor(%q) = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a-very-long-string", 10, "a-very-..."},
		{"abc", 2, "ab"},
	}

	for _, tt := range tests {
		if got := truncate(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}
