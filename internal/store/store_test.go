package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a Store backed by a file in a temporary directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("expected path %s, got %s", dbPath, s.Path())
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"sessions", "transitions"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Sessions().Create(&Session{ID: "first"}); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	if _, err := s.Sessions().GetByID("first"); err != nil {
		t.Errorf("session should survive reopening: %v", err)
	}
}

func TestNewStore_SchemaVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 2; i++ {
		s, err := New(dbPath)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		var version int
		if err := s.DB().QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			t.Fatalf("failed to read user_version: %v", err)
		}
		s.Close()

		if version != SchemaVersion {
			t.Errorf("open %d: expected schema version %d, got %d", i, SchemaVersion, version)
		}
	}
}

func TestNewStore_RejectsNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if _, err := s.DB().Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("failed to bump user_version: %v", err)
	}
	s.Close()

	if _, err := New(dbPath); err == nil {
		t.Error("expected an error opening a database from a newer build")
	}
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "data", "valentine.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file should exist: %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("expected error after closing database")
	}
}

func TestSessionRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	t.Run("create and get", func(t *testing.T) {
		sess := &Session{ID: "s-1"}
		if err := repo.Create(sess); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByID("s-1")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Stage != "INTRO" {
			t.Errorf("expected stage INTRO, got %s", got.Stage)
		}
		if got.Completed {
			t.Error("new session should not be completed")
		}
		if got.StartedAt.IsZero() {
			t.Error("expected StartedAt to be set")
		}
	})

	t.Run("get missing", func(t *testing.T) {
		if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		if err := repo.Create(&Session{ID: "s-1"}); err == nil {
			t.Error("expected error for duplicate session id")
		}
	})

	t.Run("list newest first with limit", func(t *testing.T) {
		base := time.Now().Add(time.Hour)
		repo.Create(&Session{ID: "s-2", StartedAt: base})
		repo.Create(&Session{ID: "s-3", StartedAt: base.Add(time.Minute)})

		all, err := repo.List(0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 sessions, got %d", len(all))
		}
		if all[0].ID != "s-3" {
			t.Errorf("expected newest session first, got %s", all[0].ID)
		}

		limited, err := repo.List(2)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 sessions, got %d", len(limited))
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.Delete("s-2"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := repo.Delete("s-2"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestTransitionRepository(t *testing.T) {
	s := newTestStore(t)
	if err := s.Sessions().Create(&Session{ID: "run"}); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	repo := s.Transitions()

	steps := []struct {
		tr        Transition
		completed bool
	}{
		{Transition{SessionID: "run", Version: 1, Cause: "gesture", Gesture: "FIST", FromStage: "INTRO", ToStage: "SCATTER", ColorIndex: 1, Feedback: "Scattering..."}, false},
		{Transition{SessionID: "run", Version: 2, Cause: "timer", Gesture: "NONE", FromStage: "SCATTER", ToStage: "ASK_FIRST", ColorIndex: 2}, false},
		{Transition{SessionID: "run", Version: 3, Cause: "gesture", Gesture: "OK", FromStage: "ASK_FIRST", ToStage: "POEM", ColorIndex: 1, InputLocked: true}, true},
	}

	for i := range steps {
		if err := repo.Append(&steps[i].tr, steps[i].completed); err != nil {
			t.Fatalf("Append() step %d error = %v", i, err)
		}
		if steps[i].tr.ID == 0 {
			t.Errorf("step %d: expected ID to be assigned", i)
		}
	}

	t.Run("listed in order", func(t *testing.T) {
		got, err := repo.ListBySession("run")
		if err != nil {
			t.Fatalf("ListBySession() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 transitions, got %d", len(got))
		}
		for i, tr := range got {
			if tr.Version != uint64(i+1) {
				t.Errorf("transition %d: expected version %d, got %d", i, i+1, tr.Version)
			}
		}
		if !got[2].InputLocked {
			t.Error("expected input_locked to round-trip")
		}
		if got[0].Feedback != "Scattering..." {
			t.Errorf("expected feedback to round-trip, got %q", got[0].Feedback)
		}
	})

	t.Run("session rolled forward", func(t *testing.T) {
		sess, err := s.Sessions().GetByID("run")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if sess.Stage != "POEM" {
			t.Errorf("expected stage POEM, got %s", sess.Stage)
		}
		if !sess.Completed {
			t.Error("expected session completed")
		}
		if sess.Transitions != 3 {
			t.Errorf("expected 3 transitions, got %d", sess.Transitions)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		err := repo.Append(&Transition{SessionID: "ghost", Cause: "timer", FromStage: "INTRO", ToStage: "INTRO"}, false)
		if err == nil {
			t.Error("expected error for unknown session")
		}
	})

	t.Run("invalid cause rejected", func(t *testing.T) {
		err := repo.Append(&Transition{SessionID: "run", Cause: "magic", FromStage: "INTRO", ToStage: "INTRO"}, false)
		if err == nil {
			t.Error("expected check constraint failure")
		}
	})

	t.Run("cascade on session delete", func(t *testing.T) {
		if err := s.Sessions().Delete("run"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		got, err := repo.ListBySession("run")
		if err != nil {
			t.Fatalf("ListBySession() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected transitions deleted with session, got %d", len(got))
		}
	})
}
