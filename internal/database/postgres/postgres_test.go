//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := Open(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to open database: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func vec(vals ...float32) []float32 {
	v := make([]float32, constants.EmbeddingDim)
	copy(v, vals)
	return v
}

func TestMigrationsAreIdempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error: %v", err)
	}
	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(applied) != 2 {
		t.Errorf("MigrationsApplied() = %v, want 2 entries", applied)
	}
}

func TestEventRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	loc := time.FixedZone("ICT", 7*3600)
	repo := NewEventRepository(pool, loc)

	t.Run("LedgerRoundTrip", func(t *testing.T) {
		l, err := ledger.Open(ctx, repo, loc)
		if err != nil {
			t.Fatalf("ledger.Open() error: %v", err)
		}
		first := time.Date(2024, 5, 2, 7, 45, 0, 0, loc)
		if got, err := l.Mark(ctx, "A001", "Nguyễn Văn Đức", first); err != nil || got != ledger.Marked {
			t.Fatalf("Mark() = %v, %v", got, err)
		}
		err = l.AppendAbsences(ctx, []ledger.Event{
			{StudentID: "A002", Name: "Bob", Timestamp: time.Date(2024, 5, 2, 0, 0, 0, 0, loc), Status: ledger.Absent, Note: "Sick"},
		})
		if err != nil {
			t.Fatalf("AppendAbsences() error: %v", err)
		}

		reopened, err := ledger.Open(ctx, repo, loc)
		if err != nil {
			t.Fatal(err)
		}
		events := reopened.Events()
		if len(events) != 2 {
			t.Fatalf("reloaded %d events, want 2", len(events))
		}
		if !events[0].Timestamp.Equal(first) || events[0].Name != "Nguyễn Văn Đức" {
			t.Errorf("first event = %+v", events[0])
		}
		if events[1].Status != ledger.Absent || events[1].Note != "Sick" {
			t.Errorf("second event = %+v", events[1])
		}
		if got, _ := reopened.Mark(ctx, "A001", "Nguyễn Văn Đức", first.Add(time.Hour)); got != ledger.AlreadyMarked {
			t.Errorf("Mark() after reload = %v, want AlreadyMarked", got)
		}
	})

	t.Run("DatabaseRejectsSecondPresence", func(t *testing.T) {
		e := ledger.Event{StudentID: "A001", Timestamp: time.Date(2024, 5, 2, 12, 0, 0, 0, loc), Status: ledger.Present}
		if err := repo.Append(ctx, e); err == nil {
			t.Error("Append() of a second Present event on the same day expected error")
		}
	})

	t.Run("Purge", func(t *testing.T) {
		removed, err := repo.Purge(ctx, "A001")
		if err != nil {
			t.Fatalf("Purge() error: %v", err)
		}
		if removed != 1 {
			t.Errorf("Purge() = %d, want 1", removed)
		}
	})
}

func TestGalleryRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewGalleryRepository(pool)

	g := gallery.MustNew([]gallery.EnrolledPerson{
		{ID: "A001", Name: "Alice", ClassTag: "12A1", Embedding: vec(0.5, 0.25)},
		{ID: "A002", Name: "Bob", ClassTag: "12A2", Embedding: vec(3, 4)},
	})

	n, err := repo.SaveGallery(ctx, g)
	if err != nil {
		t.Fatalf("SaveGallery() error: %v", err)
	}
	if n != 2 {
		t.Errorf("SaveGallery() = %d, want 2", n)
	}

	loaded, err := repo.LoadGallery(ctx)
	if err != nil {
		t.Fatalf("LoadGallery() error: %v", err)
	}
	if loaded.Len() != 2 || loaded.At(0).ID != "A001" || loaded.At(1).ID != "A002" {
		t.Fatalf("LoadGallery() order wrong: %+v", loaded.People())
	}
	if loaded.At(0).Embedding[0] != 0.5 || loaded.At(0).Embedding[1] != 0.25 {
		t.Errorf("embedding not preserved: %v", loaded.At(0).Embedding[:2])
	}

	people, distances, err := repo.Nearest(ctx, vec(3, 4), 1)
	if err != nil {
		t.Fatalf("Nearest() error: %v", err)
	}
	if len(people) != 1 || people[0].ID != "A002" || distances[0] != 0 {
		t.Errorf("Nearest() = %+v %v", people, distances)
	}

	if err := repo.Delete(ctx, "A001"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	loaded, err = repo.LoadGallery(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 1 {
		t.Errorf("LoadGallery() after delete = %d people, want 1", loaded.Len())
	}
}
