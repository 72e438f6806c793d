package domain_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"retort/internal/modules/process/domain"
	apperrors "retort/internal/platform/errors"
)

func validMetadata() domain.Metadata {
	return domain.Metadata{
		Customer:     "UMKM Sambal",
		Product:      "Rendang 250g",
		ProcessDate:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Operator:     "iwan",
		PressureUnit: domain.PressureBar,
		Baskets:      [3]int{40, 40, 20},
		InitialCount: 100,
		FinalCount:   98,
	}
}

func TestMetadataValidate(t *testing.T) {
	t.Parallel()
	if err := validMetadata().Validate(); err != nil {
		t.Fatalf("metadata should be valid: %v", err)
	}
	cases := map[string]func(*domain.Metadata){
		"missing customer": func(m *domain.Metadata) { m.Customer = " " },
		"missing product":  func(m *domain.Metadata) { m.Product = "" },
		"missing operator": func(m *domain.Metadata) { m.Operator = "" },
		"bad unit":         func(m *domain.Metadata) { m.PressureUnit = "atm" },
		"negative basket":  func(m *domain.Metadata) { m.Baskets[1] = -1 },
		"negative count":   func(m *domain.Metadata) { m.FinalCount = -3 },
	}
	for name, mutate := range cases {
		name, mutate := name, mutate
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m := validMetadata()
			mutate(&m)
			if err := m.Validate(); !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAppendEnforcesStrictlyIncreasingIndexes(t *testing.T) {
	t.Parallel()
	s := domain.Session{ID: "s-1", Metadata: validMetadata()}
	if err := s.Append(domain.Reading{SequenceIndex: 0, TemperatureC: 95}, domain.Reading{SequenceIndex: 2, TemperatureC: 110}); err != nil {
		t.Fatalf("append with gap should succeed: %v", err)
	}
	if err := s.Append(domain.Reading{SequenceIndex: 2, TemperatureC: 115}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected duplicate index rejection, got %v", err)
	}
	if err := s.Append(domain.Reading{SequenceIndex: 4, TemperatureC: 121}, domain.Reading{SequenceIndex: 3, TemperatureC: 121}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected out-of-order batch rejection, got %v", err)
	}
	if len(s.Readings) != 2 {
		t.Fatalf("rejected batches must not be partially applied, got %d readings", len(s.Readings))
	}
	if err := s.Append(); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected empty append rejection, got %v", err)
	}
}

func TestReadingValidate(t *testing.T) {
	t.Parallel()
	bad := []domain.Reading{
		{SequenceIndex: -1, TemperatureC: 20},
		{SequenceIndex: 0, TemperatureC: -273.15},
		{SequenceIndex: 0, TemperatureC: math.Inf(1)},
		{SequenceIndex: 0, TemperatureC: 20, Pressure: math.NaN()},
	}
	for i, r := range bad {
		if err := r.Validate(); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
	if err := (domain.Reading{SequenceIndex: 0, TemperatureC: 160}).Validate(); err != nil {
		t.Fatalf("soft ceiling must not reject: %v", err)
	}
}

func TestSealedSessionRejectsAppendAndAmendCopies(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := domain.Session{ID: "s-1", Metadata: validMetadata(), SealedAt: now}
	s.Readings = []domain.Reading{{SequenceIndex: 0, TemperatureC: 121.1}}
	if err := s.Append(domain.Reading{SequenceIndex: 1, TemperatureC: 121.1}); !errors.Is(err, apperrors.ErrSessionSealed) {
		t.Fatalf("expected ErrSessionSealed, got %v", err)
	}
	amended := s.Amend("s-2", now.Add(time.Hour))
	if amended.AmendsID != "s-1" || amended.Sealed() || len(amended.Readings) != 1 {
		t.Fatalf("unexpected amendment: %+v", amended)
	}
	if err := amended.Append(domain.Reading{SequenceIndex: 1, TemperatureC: 121.1}); err != nil {
		t.Fatalf("append to amendment: %v", err)
	}
	if len(s.Readings) != 1 {
		t.Fatalf("amendment must not mutate the sealed session")
	}
}

func TestWarnings(t *testing.T) {
	t.Parallel()
	s := domain.Session{ID: "s-1", Metadata: validMetadata()}
	if got := s.Warnings(); len(got) != 0 {
		t.Fatalf("expected no warnings, got %v", got)
	}
	s.Metadata.Baskets = [3]int{40, 40, 10}
	s.Metadata.FinalCount = 120
	s.Readings = []domain.Reading{{SequenceIndex: 0, TemperatureC: 100}, {SequenceIndex: 3, TemperatureC: 151}}
	codes := map[domain.WarningCode]bool{}
	for _, w := range s.Warnings() {
		codes[w.Code] = true
	}
	for _, want := range []domain.WarningCode{domain.WarningBasketMismatch, domain.WarningFinalExceeds, domain.WarningAboveSoftCeiling, domain.WarningSequenceGap} {
		if !codes[want] {
			t.Fatalf("missing warning %s in %v", want, codes)
		}
	}
}

func TestDigestReadingsIgnoresAnnotations(t *testing.T) {
	t.Parallel()
	a := []domain.Reading{{SequenceIndex: 0, TemperatureC: 121.1, Pressure: 1.2, Annotation: "vent closed"}}
	b := []domain.Reading{{SequenceIndex: 0, TemperatureC: 121.1, Pressure: 1.2}}
	c := []domain.Reading{{SequenceIndex: 0, TemperatureC: 121.2, Pressure: 1.2}}
	if domain.DigestReadings(a) != domain.DigestReadings(b) {
		t.Fatalf("annotations must not change the digest")
	}
	if domain.DigestReadings(a) == domain.DigestReadings(c) {
		t.Fatalf("temperature changes must change the digest")
	}
}
