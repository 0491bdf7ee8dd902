// Package pm drives the package-manager backend that owns the global loom
// installation. Two backends are supported: npm and bun. The backend is
// detected once at first run and recorded; every later install, pack, and
// rollback reuses the recorded mechanism.
package pm

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/loomworks/loom/internal/manifest"
	"github.com/loomworks/loom/internal/record"
)

// Backend invokes one detected package manager.
type Backend struct {
	mech record.Mechanism
}

// New creates a Backend for the given mechanism.
func New(mech record.Mechanism) *Backend {
	return &Backend{mech: mech}
}

// Mechanism returns the backend's package manager.
func (b *Backend) Mechanism() record.Mechanism {
	return b.mech
}

// Detect guesses which package manager installed the running binary, from
// environment markers and the executable path. npm is the fallback: it is
// by far the more common install path.
func Detect() record.Mechanism {
	exe, err := os.Executable()
	if err == nil {
		if resolved, rerr := filepath.EvalSymlinks(exe); rerr == nil {
			exe = resolved
		}
	}

	if bunRoot := os.Getenv("BUN_INSTALL"); bunRoot != "" && exe != "" {
		if strings.HasPrefix(exe, bunRoot+string(filepath.Separator)) {
			return record.MechanismBun
		}
	}
	if strings.Contains(exe, string(filepath.Separator)+".bun"+string(filepath.Separator)) {
		return record.MechanismBun
	}
	return record.MechanismNPM
}

// GlobalInstall installs the artifact at path globally, replacing the
// current installation.
func (b *Backend) GlobalInstall(ctx context.Context, artifactPath string) error {
	var cmd *exec.Cmd
	switch b.mech {
	case record.MechanismBun:
		cmd = exec.CommandContext(ctx, "bun", "add", "-g", artifactPath)
	default:
		cmd = exec.CommandContext(ctx, "npm", "install", "-g", artifactPath)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s global install of %s failed: %w (output: %s)",
			b.mech, filepath.Base(artifactPath), err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Pack archives the installed package directory pkgDir into destDir using
// the backend's own pack format, so the result is installable by the same
// mechanism. It returns the created archive path.
func (b *Backend) Pack(ctx context.Context, pkgDir, destDir string) (string, error) {
	var cmd *exec.Cmd
	switch b.mech {
	case record.MechanismBun:
		cmd = exec.CommandContext(ctx, "bun", "pm", "pack", "--destination", destDir)
	default:
		cmd = exec.CommandContext(ctx, "npm", "pack", "--pack-destination", destDir)
	}
	cmd.Dir = pkgDir

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("%s pack failed: %w (stderr: %s)", b.mech, err, string(exitErr.Stderr))
		}
		return "", fmt.Errorf("%s pack failed: %w", b.mech, err)
	}

	// Both backends print the created tarball name as the last output line.
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	name := strings.TrimSpace(lines[len(lines)-1])
	if name == "" {
		return "", fmt.Errorf("%s pack produced no archive name", b.mech)
	}
	return filepath.Join(destDir, filepath.Base(name)), nil
}

// InstalledVersion runs the globally installed loom binary's version-report
// command and returns the version it claims. This is the only trusted proof
// that an apply took effect; the package manager's exit code is not enough.
func (b *Backend) InstalledVersion(ctx context.Context) (string, error) {
	bin, err := exec.LookPath(manifest.AppName)
	if err != nil {
		return "", fmt.Errorf("installed binary not found on PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, "--version")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("version probe failed: %w", err)
	}

	v, err := ParseVersionOutput(string(output))
	if err != nil {
		return "", fmt.Errorf("version probe: %w", err)
	}
	return v, nil
}

// ParseVersionOutput extracts the version from a version-report line such
// as "1.2.3", "loom 1.2.3", or "loom version v1.2.3".
func ParseVersionOutput(output string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(output))
	if len(fields) == 0 {
		return "", fmt.Errorf("empty version output")
	}
	v := strings.TrimPrefix(fields[len(fields)-1], "v")
	if v == "" {
		return "", fmt.Errorf("no version in output %q", output)
	}
	return v, nil
}

// RecoveryCommand returns the exact command a user must run by hand to
// reinstall from an artifact, used in manual-intervention reports.
func (b *Backend) RecoveryCommand(artifactPath string) string {
	switch b.mech {
	case record.MechanismBun:
		return fmt.Sprintf("bun add -g %s", artifactPath)
	default:
		return fmt.Sprintf("npm install -g %s", artifactPath)
	}
}
