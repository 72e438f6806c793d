package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	processout "retort/internal/modules/process/adapter/out"
	"retort/internal/modules/process/domain"
	processport "retort/internal/modules/process/port/out"
	"retort/internal/modules/process/service"
	"retort/internal/platform/clock"
	apperrors "retort/internal/platform/errors"
	"retort/internal/platform/id"
)

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newService(t *testing.T, policy service.Policy) (*service.SessionService, string) {
	t.Helper()
	vault := t.TempDir()
	store, err := processout.NewSQLiteSessionStore(filepath.Join(vault, ".retort", "retort.db"), id.UUID{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	svc := service.NewSessionService(
		clock.Fixed(fixedNow),
		store,
		processout.NewVaultRecordStore(vault),
		[]processport.ReadingDecoder{processout.CSVDecoder{}, processout.JSONDecoder{}},
		policy,
		nil,
	)
	return svc, vault
}

func metadata() domain.Metadata {
	return domain.Metadata{
		Customer:     "UD Sumber Rejeki",
		Product:      "Gudeg kaleng",
		Operator:     "Sari",
		Baskets:      [3]int{20, 20, 20},
		InitialCount: 60,
		FinalCount:   58,
	}
}

func ramp(from, n int, temp float64) []domain.Reading {
	out := make([]domain.Reading, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Reading{SequenceIndex: from + i, TemperatureC: temp, Pressure: 1.2})
	}
	return out
}

func TestCreateAppliesDefaultsAndOperatorGate(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, service.Policy{Operators: []string{"sari", "Budi"}})
	ctx := context.Background()

	session, err := svc.Create(ctx, metadata(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.ID == "" || session.Metadata.PressureUnit != domain.PressureBar {
		t.Fatalf("unexpected session %+v", session)
	}
	if !session.Metadata.ProcessDate.Equal(fixedNow) || !session.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected clock-stamped dates, got %+v", session)
	}

	stranger := metadata()
	stranger.Operator = "mallory"
	if _, err := svc.Create(ctx, stranger, nil); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected operator rejection, got %v", err)
	}
}

func TestAppendEnforcesOrderingAndCapacity(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, service.Policy{MaxReadings: 5})
	ctx := context.Background()

	session, err := svc.Create(ctx, metadata(), ramp(0, 3, 100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Append(ctx, session.ID, ramp(2, 1, 101)); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ordering error, got %v", err)
	}
	if _, err := svc.Append(ctx, session.ID, ramp(3, 3, 101)); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	updated, err := svc.Append(ctx, session.ID, ramp(5, 2, 101))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(updated.Readings) != 5 {
		t.Fatalf("expected 5 readings, got %d", len(updated.Readings))
	}
	stored, _ := svc.Get(ctx, session.ID)
	if len(stored.Readings) != 5 || stored.Readings[3].SequenceIndex != 5 {
		t.Fatalf("rejected batches must not be stored: %+v", stored.Readings)
	}
	if _, err := svc.Append(ctx, "missing", ramp(0, 1, 100)); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveResultSealsAndWritesRecord(t *testing.T) {
	t.Parallel()
	svc, vault := newService(t, service.Policy{})
	ctx := context.Background()

	session, err := svc.Create(ctx, metadata(), ramp(0, 4, 121.1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mismatched := domain.StoredResult{SessionID: session.ID, ParamsKey: "k", ReadingsDigest: "stale", TotalF0: 4, ReadingCount: 4}
	if _, err := svc.SaveResult(ctx, mismatched); !errors.Is(err, apperrors.ErrResultMismatch) {
		t.Fatalf("expected ErrResultMismatch, got %v", err)
	}

	result := mismatched
	result.ReadingsDigest = domain.DigestReadings(session.Readings)
	result.HoldingVerdict = true
	saved, err := svc.SaveResult(ctx, result)
	if err != nil {
		t.Fatalf("save result: %v", err)
	}
	if !saved.ComputedAt.Equal(fixedNow) {
		t.Fatalf("expected clock-stamped result, got %s", saved.ComputedAt)
	}
	if _, err := svc.Append(ctx, session.ID, ramp(4, 1, 121)); !errors.Is(err, apperrors.ErrSessionSealed) {
		t.Fatalf("expected ErrSessionSealed, got %v", err)
	}

	records, _ := filepath.Glob(filepath.Join(vault, "batches", "*.md"))
	if len(records) != 1 {
		t.Fatalf("expected one batch record, got %v", records)
	}
	header, _, err := processout.ReadRecord(records[0])
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if header.ID != session.ID || !header.Holding || header.TotalF0 != 4 {
		t.Fatalf("unexpected record header %+v", header)
	}
}

func TestAmendLeavesOriginalUntouched(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, service.Policy{})
	ctx := context.Background()

	original, err := svc.Create(ctx, metadata(), ramp(0, 2, 120))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SaveResult(ctx, domain.StoredResult{
		SessionID:      original.ID,
		ParamsKey:      "k",
		ReadingsDigest: domain.DigestReadings(original.Readings),
		ReadingCount:   2,
	}); err != nil {
		t.Fatalf("seal: %v", err)
	}

	amended, err := svc.Amend(ctx, original.ID)
	if err != nil {
		t.Fatalf("amend: %v", err)
	}
	if amended.ID == original.ID || amended.AmendsID != original.ID || amended.Sealed() {
		t.Fatalf("unexpected amendment %+v", amended)
	}
	if _, err := svc.Append(ctx, amended.ID, ramp(2, 1, 121)); err != nil {
		t.Fatalf("append to amendment: %v", err)
	}
	reloaded, _ := svc.Get(ctx, original.ID)
	if len(reloaded.Readings) != 2 || !reloaded.Sealed() {
		t.Fatalf("original changed: %+v", reloaded)
	}
}

func TestImportDetectsFormatAndKeepsGoodRows(t *testing.T) {
	t.Parallel()
	svc, vault := newService(t, service.Policy{})
	ctx := context.Background()

	session, err := svc.Create(ctx, metadata(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	path := filepath.Join(vault, "logger.CSV")
	content := strings.Join([]string{"minute,suhu,tekanan", "0,90,0.5", "1,n/a,0.6", "2,115,1.0"}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	updated, batch, err := svc.Import(ctx, session.ID, path, "")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if batch.Failed != 1 || len(batch.Readings) != 2 || len(updated.Readings) != 2 {
		t.Fatalf("unexpected import batch=%+v readings=%d", batch, len(updated.Readings))
	}

	if _, _, err := svc.Import(ctx, session.ID, filepath.Join(vault, "data.xlsx"), ""); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}
