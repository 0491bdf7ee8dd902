package pm

import (
	"testing"

	"github.com/loomworks/loom/internal/record"
)

func TestParseVersionOutput(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1.2.3\n", "1.2.3", false},
		{"loom 1.2.3", "1.2.3", false},
		{"loom version 1.2.3\n", "1.2.3", false},
		{"loom version v1.2.3", "1.2.3", false},
		{"v2.0.0", "2.0.0", false},
		{"", "", true},
		{"   \n", "", true},
	}

	for _, tt := range tests {
		got, err := ParseVersionOutput(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseVersionOutput(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseVersionOutput(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVersionOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecoveryCommand(t *testing.T) {
	npm := New(record.MechanismNPM)
	if got := npm.RecoveryCommand("/backups/loom-1.0.0.tgz"); got != "npm install -g /backups/loom-1.0.0.tgz" {
		t.Errorf("npm RecoveryCommand = %q", got)
	}

	bun := New(record.MechanismBun)
	if got := bun.RecoveryCommand("/backups/loom-1.0.0.tgz"); got != "bun add -g /backups/loom-1.0.0.tgz" {
		t.Errorf("bun RecoveryCommand = %q", got)
	}
}

func TestDetectDefaultsToNPM(t *testing.T) {
	t.Setenv("BUN_INSTALL", "")

	if got := Detect(); got != record.MechanismNPM {
		t.Errorf("Detect = %q, want npm fallback", got)
	}
}
