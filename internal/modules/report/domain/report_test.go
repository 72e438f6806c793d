package domain_test

import (
	"errors"
	"testing"
	"time"

	processdomain "retort/internal/modules/process/domain"
	"retort/internal/modules/report/domain"
	apperrors "retort/internal/platform/errors"
)

func sampleReadings() []processdomain.Reading {
	return []processdomain.Reading{
		{SequenceIndex: 0, TemperatureC: 121.1, Pressure: 1.1},
		{SequenceIndex: 1, TemperatureC: 121.1, Pressure: 1.1},
	}
}

func sampleCurve(readings []processdomain.Reading) domain.Curve {
	return domain.Curve{
		PerSampleF0:    []float64{1, 1},
		CumulativeF0:   []float64{1, 2},
		TotalF0:        2,
		ParamsKey:      "abc123",
		ReadingsDigest: processdomain.DigestReadings(readings),
	}
}

func TestNewInputPairsRowsWithCurve(t *testing.T) {
	t.Parallel()
	readings := sampleReadings()
	in, err := domain.NewInput(domain.Batch{SessionID: "s1"}, readings, sampleCurve(readings), time.Unix(0, 0))
	if err != nil {
		t.Fatalf("new input: %v", err)
	}
	if len(in.Rows) != 2 || in.Rows[1].CumulativeF0 != 2 {
		t.Fatalf("unexpected rows: %+v", in.Rows)
	}
	if in.VerdictLabel() != "FAIL" {
		t.Fatalf("expected FAIL label, got %s", in.VerdictLabel())
	}
}

func TestNewInputRejectsLengthMismatch(t *testing.T) {
	t.Parallel()
	readings := sampleReadings()
	curve := sampleCurve(readings)
	curve.PerSampleF0 = curve.PerSampleF0[:1]
	if _, err := domain.NewInput(domain.Batch{SessionID: "s1"}, readings, curve, time.Time{}); !errors.Is(err, apperrors.ErrResultMismatch) {
		t.Fatalf("expected result mismatch, got %v", err)
	}
}

func TestNewInputRejectsForeignDigest(t *testing.T) {
	t.Parallel()
	readings := sampleReadings()
	curve := sampleCurve(readings)
	readings[1].TemperatureC = 119
	if _, err := domain.NewInput(domain.Batch{SessionID: "s1"}, readings, curve, time.Time{}); !errors.Is(err, apperrors.ErrResultMismatch) {
		t.Fatalf("expected result mismatch, got %v", err)
	}
}

func TestValidateRejectsTotalDrift(t *testing.T) {
	t.Parallel()
	readings := sampleReadings()
	in, err := domain.NewInput(domain.Batch{SessionID: "s1"}, readings, sampleCurve(readings), time.Time{})
	if err != nil {
		t.Fatalf("new input: %v", err)
	}
	in.TotalF0 = 3
	if err := in.Validate(); !errors.Is(err, apperrors.ErrResultMismatch) {
		t.Fatalf("expected result mismatch, got %v", err)
	}
}

func TestArchiveKey(t *testing.T) {
	t.Parallel()
	date := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	if got := domain.ArchiveKey("", date, "s1", "abc", "pdf"); got != "reports/2026/03/s1/abc.pdf" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := domain.ArchiveKey("/archive/", date, "s1", "abc", ".csv"); got != "archive/2026/03/s1/abc.csv" {
		t.Fatalf("unexpected key with prefix: %s", got)
	}
}
