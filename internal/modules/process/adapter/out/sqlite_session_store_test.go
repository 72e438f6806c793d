package out_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	processout "retort/internal/modules/process/adapter/out"
	"retort/internal/modules/process/domain"
	apperrors "retort/internal/platform/errors"
)

type sequentialIDs struct{ n int }

func (s *sequentialIDs) New() string {
	s.n++
	return fmt.Sprintf("sess-%d", s.n)
}

func testSession(readings ...domain.Reading) domain.Session {
	return domain.Session{
		Metadata: domain.Metadata{
			Customer:     "CV Maju",
			Product:      "Rendang",
			ProcessDate:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Operator:     "budi",
			PressureUnit: domain.PressureBar,
			Baskets:      [3]int{10, 10, 10},
			InitialCount: 30,
			FinalCount:   30,
		},
		Readings:  readings,
		CreatedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteSessionStoreLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := processout.NewSQLiteSessionStore(filepath.Join(t.TempDir(), ".retort", "retort.db"), &sequentialIDs{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	id, err := store.Create(ctx, testSession(
		domain.Reading{SequenceIndex: 0, TemperatureC: 100, Pressure: 1.1},
		domain.Reading{SequenceIndex: 1, TemperatureC: 118, Pressure: 1.2, Annotation: "venting closed"},
	))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "sess-1" {
		t.Fatalf("unexpected id %q", id)
	}
	if err := store.AppendReadings(ctx, id, []domain.Reading{
		{SequenceIndex: 3, TemperatureC: 121.1, Pressure: 1.3},
		{SequenceIndex: 2, TemperatureC: 120, Pressure: 1.25},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Readings) != 4 {
		t.Fatalf("expected 4 readings, got %d", len(got.Readings))
	}
	for i, r := range got.Readings {
		if r.SequenceIndex != i {
			t.Fatalf("readings out of order: %+v", got.Readings)
		}
	}
	if got.Readings[1].Annotation != "venting closed" {
		t.Fatalf("annotation lost: %+v", got.Readings[1])
	}
	if got.Metadata.Customer != "CV Maju" || got.Metadata.Baskets != [3]int{10, 10, 10} {
		t.Fatalf("metadata not round-tripped: %+v", got.Metadata)
	}
	if got.Sealed() {
		t.Fatalf("fresh session must not be sealed")
	}

	result := domain.StoredResult{
		SessionID:      id,
		ParamsKey:      "abc123",
		ReadingsDigest: domain.DigestReadings(got.Readings),
		TotalF0:        1.5,
		HoldingVerdict: false,
		ReadingCount:   4,
		ComputedAt:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	if err := store.SaveResult(ctx, result); err != nil {
		t.Fatalf("save result: %v", err)
	}
	loaded, err := store.LoadResult(ctx, id, "abc123")
	if err != nil {
		t.Fatalf("load result: %v", err)
	}
	if loaded.TotalF0 != 1.5 || loaded.ReadingsDigest != result.ReadingsDigest || !loaded.ComputedAt.Equal(result.ComputedAt) {
		t.Fatalf("unexpected result %+v", loaded)
	}

	sealed, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get sealed: %v", err)
	}
	if !sealed.Sealed() || sealed.Last == nil || sealed.Last.ParamsKey != "abc123" {
		t.Fatalf("expected sealed session with last verdict, got %+v", sealed)
	}

	err = store.AppendReadings(ctx, id, []domain.Reading{{SequenceIndex: 4, TemperatureC: 121, Pressure: 1}})
	if !errors.Is(err, apperrors.ErrSessionSealed) {
		t.Fatalf("expected ErrSessionSealed, got %v", err)
	}

	// the first verdict stays stored when another parameter set is saved
	second := result
	second.ParamsKey = "def456"
	second.TotalF0 = 0.9
	second.ComputedAt = result.ComputedAt.Add(time.Hour)
	if err := store.SaveResult(ctx, second); err != nil {
		t.Fatalf("save second result: %v", err)
	}
	results, err := store.ListResults(ctx, id)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 2 || results[0].ParamsKey != "abc123" || results[1].ParamsKey != "def456" {
		t.Fatalf("unexpected results %+v", results)
	}
	again, _ := store.Get(ctx, id)
	if !again.SealedAt.Equal(result.ComputedAt) {
		t.Fatalf("seal time must not move, got %s", again.SealedAt)
	}
}

func TestSQLiteSessionStoreListAndNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := processout.NewSQLiteSessionStore(filepath.Join(t.TempDir(), "retort.db"), &sequentialIDs{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	first := testSession(domain.Reading{SequenceIndex: 0, TemperatureC: 95, Pressure: 1})
	second := testSession()
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	second.AmendsID = "sess-1"
	if _, err := store.Create(ctx, first); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := store.Create(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "sess-2" || list[0].AmendsID != "sess-1" {
		t.Fatalf("unexpected list %+v", list)
	}
	if len(list[1].Readings) != 1 {
		t.Fatalf("expected readings on listed session, got %+v", list[1])
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.LoadResult(ctx, "sess-1", "nope"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for result, got %v", err)
	}
	if err := store.AppendReadings(ctx, "missing", []domain.Reading{{SequenceIndex: 0}}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on append, got %v", err)
	}
}
