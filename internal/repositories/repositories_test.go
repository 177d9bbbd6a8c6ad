package repositories

import (
	"database/sql"
	"testing"
	"time"

	"tracktalk/internal/models"
	"tracktalk/internal/shared"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := InitSchema(db); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return db
}

func TestInitSchema(t *testing.T) {
	db := testDB(t)

	t.Run("Idempotent", func(t *testing.T) {
		if err := InitSchema(db); err != nil {
			t.Errorf("second init should be a no-op, got %v", err)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	db := testDB(t)
	repo := NewSessionRepository(db)

	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Create And Get", func(t *testing.T) {
		rec := SessionRecord{ID: "s1", StartedAt: started}
		if err := repo.Create(rec); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		got, err := repo.Get("s1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got == nil || got.ID != "s1" || got.TurnCount != 0 {
			t.Errorf("unexpected record: %+v", got)
		}
	})

	t.Run("Get Missing Returns Nil", func(t *testing.T) {
		got, err := repo.Get("nope")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for missing session, got %+v", got)
		}
	})

	t.Run("Touch Increments Turns", func(t *testing.T) {
		if err := repo.Touch("s1", true); err != nil {
			t.Fatalf("touch failed: %v", err)
		}
		if err := repo.Touch("s1", true); err != nil {
			t.Fatalf("touch failed: %v", err)
		}

		got, err := repo.Get("s1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.TurnCount != 2 {
			t.Errorf("expected 2 turns, got %d", got.TurnCount)
		}
		if !got.Degraded {
			t.Error("expected degraded flag set")
		}
	})

	t.Run("List Newest First", func(t *testing.T) {
		newer := SessionRecord{ID: "s2", StartedAt: started.Add(time.Hour)}
		if err := repo.Create(newer); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		records, err := repo.List(0)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(records))
		}
		if records[0].ID != "s2" {
			t.Errorf("expected newest session first, got %s", records[0].ID)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := repo.Clear(); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		records, err := repo.List(0)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected empty archive, got %d sessions", len(records))
		}
	})
}

func TestRecommendationRepository(t *testing.T) {
	db := testDB(t)
	sessions := NewSessionRepository(db)
	repo := NewRecommendationRepository(db)

	if err := sessions.Create(SessionRecord{ID: "s1", StartedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("session create failed: %v", err)
	}

	entries := []models.RecommendationEntry{
		{Title: "Levels", Artist: "Avicii", Rationale: "timeless"},
		{Title: "Strobe", Artist: "deadmau5"},
	}

	t.Run("Archive And Read Back", func(t *testing.T) {
		if err := repo.Archive("s1", "5 edm songs", entries); err != nil {
			t.Fatalf("archive failed: %v", err)
		}

		records, err := repo.BySession("s1")
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}

		first := records[0]
		if first.Title != "Levels" || first.Artist != "Avicii" || first.Rationale != "timeless" {
			t.Errorf("unexpected record: %+v", first)
		}
		if first.Utterance != "5 edm songs" {
			t.Errorf("expected originating utterance, got %q", first.Utterance)
		}
		if first.ID == "" {
			t.Error("expected a generated ID")
		}
	})

	t.Run("Empty Archive Is A No Op", func(t *testing.T) {
		if err := repo.Archive("s1", "nothing", nil); err != nil {
			t.Errorf("empty archive should succeed, got %v", err)
		}
	})

	t.Run("Recent", func(t *testing.T) {
		records, err := repo.Recent(1)
		if err != nil {
			t.Fatalf("recent failed: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected limit respected, got %d records", len(records))
		}
	})
}
