package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/loomworks/loom/internal/backup"
	"github.com/loomworks/loom/internal/config"
	"github.com/loomworks/loom/internal/ledger"
	"github.com/loomworks/loom/internal/manifest"
	"github.com/loomworks/loom/internal/pm"
	"github.com/loomworks/loom/internal/record"
	"github.com/loomworks/loom/internal/store"
	"github.com/loomworks/loom/internal/updater"
)

// env is the fully wired command environment. Close releases the
// database handle.
type env struct {
	settings *config.Settings
	updater  *updater.Updater
	store    *store.Store
	records  *record.Store
	backups  *backup.Manager
}

func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
}

// newEnv loads settings and wires the updater with its live
// collaborators: the ledger client, the install record store, the
// detected package-manager backend, the backup manager, and the sqlite
// history store.
func newEnv() (*env, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := settings.EnsureStateDir(); err != nil {
		return nil, err
	}

	records := record.NewStore(settings.RecordPath())

	// A broken history database degrades to no history rather than
	// blocking updates.
	var st *store.Store
	st, err = store.New(settings.DBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: update history unavailable: %v\n", err)
		st = nil
	} else if err := st.CreateSchema(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: update history unavailable: %v\n", err)
		st.Close()
		st = nil
	}

	mech := pm.Detect()
	if rec, err := records.Load(); err == nil && rec != nil && rec.Mechanism != "" {
		mech = rec.Mechanism
	}
	backend := pm.New(mech)
	backups := backup.New(st, settings.BackupDir(), backend, string(mech))

	u := &updater.Updater{
		Ledger:        ledger.NewClient(settings.Gateway),
		Records:       records,
		Installer:     backend,
		Backups:       backups,
		Manifests:     &manifest.Reader{},
		RequireBackup: settings.RequireBackup,
	}
	if st != nil {
		u.Events = st
	}

	return &env{
		settings: settings,
		updater:  u,
		store:    st,
		records:  records,
		backups:  backups,
	}, nil
}

// confirmUpdate prompts for the update and reads one line from r. An
// empty answer accepts; only an explicit n/no declines.
func confirmUpdate(r io.Reader, w io.Writer, plan *updater.Plan) bool {
	fmt.Fprintf(w, "Update available: %s -> %s\n", plan.CurrentVersion, plan.CandidateVersion)
	fmt.Fprintf(w, "Install now? [Y/n] ")

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		// No input (EOF, closed stdin): treat as accept, matching the
		// default.
		return true
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "n", "no":
		return false
	default:
		return true
	}
}
