package store

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.CreateSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return s
}

func TestBackupRoundTrip(t *testing.T) {
	s := newTestStore(t)

	id, err := s.InsertBackup("1.2.0", "npm", "/backups/loom-1.2.0.tgz")
	if err != nil {
		t.Fatalf("InsertBackup failed: %v", err)
	}
	if id == 0 {
		t.Error("InsertBackup returned zero ID")
	}

	b, err := s.GetBackupByVersion("1.2.0")
	if err != nil {
		t.Fatalf("GetBackupByVersion failed: %v", err)
	}
	if b.Version != "1.2.0" || b.Mechanism != "npm" || b.ArtifactPath != "/backups/loom-1.2.0.tgz" {
		t.Errorf("backup = %+v", b)
	}
	if b.CreatedAt.IsZero() {
		t.Error("CreatedAt not recorded")
	}
}

func TestGetBackupMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetBackupByVersion("9.9.9"); err == nil {
		t.Error("GetBackupByVersion for unknown version succeeded")
	}
}

func TestGetBackupReturnsNewest(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.InsertBackup("1.0.0", "npm", "/backups/old.tgz"); err != nil {
		t.Fatalf("InsertBackup failed: %v", err)
	}
	if _, err := s.InsertBackup("1.0.0", "npm", "/backups/new.tgz"); err != nil {
		t.Fatalf("InsertBackup failed: %v", err)
	}

	b, err := s.GetBackupByVersion("1.0.0")
	if err != nil {
		t.Fatalf("GetBackupByVersion failed: %v", err)
	}
	if b.ArtifactPath != "/backups/new.tgz" {
		t.Errorf("ArtifactPath = %q, want the newest registration", b.ArtifactPath)
	}
}

func TestListBackups(t *testing.T) {
	s := newTestStore(t)

	for _, v := range []string{"1.0.0", "1.1.0", "1.2.0"} {
		if _, err := s.InsertBackup(v, "bun", "/backups/loom-"+v+".tgz"); err != nil {
			t.Fatalf("InsertBackup(%s) failed: %v", v, err)
		}
	}

	backups, err := s.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("got %d backups, want 3", len(backups))
	}
	// Newest first.
	if backups[0].Version != "1.2.0" {
		t.Errorf("first backup = %s, want 1.2.0", backups[0].Version)
	}
}

func TestEventHistory(t *testing.T) {
	s := newTestStore(t)

	events := []*UpdateEvent{
		{Outcome: "up-to-date", FromVersion: "1.0.0"},
		{Outcome: "committed", FromVersion: "1.0.0", ToVersion: "1.1.0", ContentID: "tx-1"},
		{Outcome: "rolled-back", FromVersion: "1.1.0", ToVersion: "1.2.0", Detail: "verify reported 1.1.0"},
	}
	for _, e := range events {
		if err := s.InsertEvent(e); err != nil {
			t.Fatalf("InsertEvent failed: %v", err)
		}
	}

	got, err := s.ListEvents(0)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].Outcome != "rolled-back" || got[0].Detail != "verify reported 1.1.0" {
		t.Errorf("newest event = %+v", got[0])
	}

	limited, err := s.ListEvents(2)
	if err != nil {
		t.Fatalf("ListEvents(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d events with limit 2", len(limited))
	}
}

func TestInsertEventStampsTimestamp(t *testing.T) {
	s := newTestStore(t)

	before := time.Now().Add(-time.Minute)
	if err := s.InsertEvent(&UpdateEvent{Outcome: "checked"}); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	got, err := s.ListEvents(1)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(got) != 1 || got[0].Timestamp.Before(before) {
		t.Errorf("event timestamp not stamped: %+v", got)
	}
}
