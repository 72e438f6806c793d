package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "retort/internal/platform/errors"
)

const SchemaVersion = 1

type PressureUnit string

const (
	PressureBar   PressureUnit = "bar"
	PressurePSI   PressureUnit = "psi"
	PressureKgCm2 PressureUnit = "kgcm2"
)

func (u PressureUnit) Validate() error {
	switch u {
	case PressureBar, PressurePSI, PressureKgCm2:
		return nil
	default:
		return fmt.Errorf("%w: unsupported pressure unit %q", apperrors.ErrInvalidInput, string(u))
	}
}

// Metadata is what the operator enters before the batch goes into the retort.
type Metadata struct {
	Customer     string
	Product      string
	Contact      string
	ProcessDate  time.Time
	BatchLabel   string
	Operator     string
	PressureUnit PressureUnit
	Baskets      [3]int
	InitialCount int
	FinalCount   int
}

func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Customer) == "" {
		return fmt.Errorf("%w: customer is required", apperrors.ErrInvalidInput)
	}
	if strings.TrimSpace(m.Product) == "" {
		return fmt.Errorf("%w: product is required", apperrors.ErrInvalidInput)
	}
	if strings.TrimSpace(m.Operator) == "" {
		return fmt.Errorf("%w: operator is required", apperrors.ErrInvalidInput)
	}
	if err := m.PressureUnit.Validate(); err != nil {
		return err
	}
	for i, b := range m.Baskets {
		if b < 0 {
			return fmt.Errorf("%w: basket %d count is negative", apperrors.ErrInvalidInput, i+1)
		}
	}
	if m.InitialCount < 0 || m.FinalCount < 0 {
		return fmt.Errorf("%w: product counts must be non-negative", apperrors.ErrInvalidInput)
	}
	return nil
}

func (m Metadata) BasketTotal() int {
	return m.Baskets[0] + m.Baskets[1] + m.Baskets[2]
}

// Verdict is the last lethality outcome persisted for a session.
type Verdict struct {
	TotalF0        float64
	HoldingVerdict bool
	ParamsKey      string
	ComputedAt     time.Time
}

// Session is one physical retort run. It owns its readings.
type Session struct {
	ID        string
	AmendsID  string
	Metadata  Metadata
	Readings  []Reading
	CreatedAt time.Time
	SealedAt  time.Time
	Last      *Verdict
}

func (s Session) Sealed() bool {
	return !s.SealedAt.IsZero()
}

func (s Session) LastIndex() int {
	if len(s.Readings) == 0 {
		return -1
	}
	return s.Readings[len(s.Readings)-1].SequenceIndex
}

// Append adds readings after the current tail. It never reorders or renumbers.
func (s *Session) Append(readings ...Reading) error {
	if s.Sealed() {
		return fmt.Errorf("%w: %s", apperrors.ErrSessionSealed, s.ID)
	}
	if len(readings) == 0 {
		return fmt.Errorf("%w: no readings to append", apperrors.ErrInvalidInput)
	}
	if err := ValidateSequence(s.LastIndex(), readings); err != nil {
		return err
	}
	s.Readings = append(s.Readings, readings...)
	return nil
}

// Amend starts a new unsealed session carrying this session's metadata and readings.
func (s Session) Amend(newID string, now time.Time) Session {
	readings := make([]Reading, len(s.Readings))
	copy(readings, s.Readings)
	return Session{
		ID:        newID,
		AmendsID:  s.ID,
		Metadata:  s.Metadata,
		Readings:  readings,
		CreatedAt: now,
	}
}

// StoredResult is the persisted shape of a lethality outcome.
type StoredResult struct {
	SessionID      string
	ParamsKey      string
	ReadingsDigest string
	TotalF0        float64
	HoldingVerdict bool
	ReadingCount   int
	ComputedAt     time.Time
}

func (r StoredResult) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	if r.ParamsKey == "" {
		return fmt.Errorf("%w: params key is required", apperrors.ErrInvalidInput)
	}
	if r.TotalF0 < 0 {
		return fmt.Errorf("%w: total F0 must be non-negative", apperrors.ErrInvalidInput)
	}
	return nil
}
