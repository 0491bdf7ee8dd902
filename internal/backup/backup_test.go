package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loomworks/loom/internal/store"
)

// fakePacker writes a file the way npm pack would and returns its path.
type fakePacker struct {
	name  string
	err   error
	calls int
}

func (f *fakePacker) Pack(ctx context.Context, pkgDir, destDir string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(destDir, f.name)
	if err := os.WriteFile(path, []byte("tarball"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func newTestManager(t *testing.T, p Packer) (*Manager, *store.Store, string) {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.CreateSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "backups")
	return New(st, dir, p, "npm"), st, dir
}

func TestCreateBackup(t *testing.T) {
	p := &fakePacker{name: "loom-1.2.0.tgz"}
	m, st, dir := newTestManager(t, p)

	path, err := m.Create(context.Background(), "1.2.0", t.TempDir())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := filepath.Join(dir, "loom-1.2.0.tgz")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact not on disk: %v", err)
	}

	registered, err := st.GetBackupByVersion("1.2.0")
	if err != nil {
		t.Fatalf("backup not registered: %v", err)
	}
	if registered.ArtifactPath != want {
		t.Errorf("registered path = %q", registered.ArtifactPath)
	}
}

// Pack output names differ from the deterministic scheme; Create must
// normalize them.
func TestCreateRenamesPackOutput(t *testing.T) {
	p := &fakePacker{name: "loom-1.2.0-build.tgz"}
	m, _, dir := newTestManager(t, p)

	path, err := m.Create(context.Background(), "1.2.0", t.TempDir())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if path != filepath.Join(dir, "loom-1.2.0.tgz") {
		t.Errorf("path = %q", path)
	}
	if _, err := os.Stat(filepath.Join(dir, "loom-1.2.0-build.tgz")); !os.IsNotExist(err) {
		t.Error("pack output not renamed away")
	}
}

func TestCreateReusesExistingArtifact(t *testing.T) {
	p := &fakePacker{name: "loom-1.2.0.tgz"}
	m, _, _ := newTestManager(t, p)

	first, err := m.Create(context.Background(), "1.2.0", t.TempDir())
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	second, err := m.Create(context.Background(), "1.2.0", t.TempDir())
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
	if p.calls != 1 {
		t.Errorf("packer called %d times, want 1 (artifact reused)", p.calls)
	}
}

func TestCreatePackFailure(t *testing.T) {
	p := &fakePacker{err: fmt.Errorf("pack exploded")}
	m, _, _ := newTestManager(t, p)

	if _, err := m.Create(context.Background(), "1.2.0", t.TempDir()); err == nil {
		t.Error("Create succeeded despite pack failure")
	}
}

func TestFind(t *testing.T) {
	p := &fakePacker{name: "loom-1.0.0.tgz"}
	m, _, _ := newTestManager(t, p)

	if _, err := m.Create(context.Background(), "1.0.0", t.TempDir()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	path, err := m.Find("1.0.0")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if filepath.Base(path) != "loom-1.0.0.tgz" {
		t.Errorf("Find = %q", path)
	}

	// Missing version: the error must name the expected path.
	_, err = m.Find("0.1.0")
	if err == nil {
		t.Fatal("Find for missing version succeeded")
	}
	if want := m.Path("0.1.0"); !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name expected path %q", err, want)
	}
}
