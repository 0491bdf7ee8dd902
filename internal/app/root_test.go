package app

import (
	"strings"
	"testing"

	"github.com/loomworks/loom/internal/pm"
	"github.com/loomworks/loom/internal/updater"
)

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "loom" {
		t.Errorf("expected Use to be 'loom', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	commands := RootCmd.Commands()

	expectedCommands := []string{"update", "backups", "version"}
	foundCommands := make(map[string]bool)

	for _, cmd := range commands {
		foundCommands[cmd.Use] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestRootCommandHasNoUpdateCheckFlag(t *testing.T) {
	flag := RootCmd.PersistentFlags().Lookup("no-update-check")
	if flag == nil {
		t.Fatal("expected --no-update-check flag to be registered")
	}

	if flag.Usage == "" {
		t.Error("expected --no-update-check flag to have usage text")
	}
}

func TestUpdateCommandFlags(t *testing.T) {
	for _, name := range []string{"check", "force", "yes", "history"} {
		if updateCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected update --%s flag to be registered", name)
		}
	}
}

// The version command output feeds the post-install verification probe;
// its last field must parse as the bare version.
func TestVersionTemplateSatisfiesProbe(t *testing.T) {
	line := "loom " + Version
	got, err := pm.ParseVersionOutput(line)
	if err != nil {
		t.Fatalf("ParseVersionOutput(%q) failed: %v", line, err)
	}
	if got != Version {
		t.Errorf("probe parsed %q, want %q", got, Version)
	}
}

func TestConfirmUpdate(t *testing.T) {
	plan := &updater.Plan{CurrentVersion: "1.2.0", CandidateVersion: "1.3.0"}

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty accepts", "\n", true},
		{"explicit yes", "y\n", true},
		{"full yes", "yes\n", true},
		{"decline", "n\n", false},
		{"full no", "no\n", false},
		{"whitespace accepts", "  \n", true},
		{"closed stdin accepts", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			got := confirmUpdate(strings.NewReader(tt.input), &out, plan)
			if got != tt.want {
				t.Errorf("confirmUpdate(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "1.2.0 -> 1.3.0") {
				t.Errorf("prompt missing versions: %q", out.String())
			}
			if !strings.Contains(out.String(), "[Y/n]") {
				t.Errorf("prompt missing default-yes marker: %q", out.String())
			}
		})
	}
}
