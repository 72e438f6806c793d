package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gowebpki/jcs"

	apperrors "retort/internal/platform/errors"
)

const (
	AbsoluteZeroC = -273.15
	// SoftCeilingC is the highest temperature seen on real retorts; above it a reading is flagged, not rejected.
	SoftCeilingC = 150.0
)

// Reading is one sample of a retort run, usually one per minute.
type Reading struct {
	SequenceIndex int       `json:"sequence_index"`
	TemperatureC  float64   `json:"temperature_c"`
	Pressure      float64   `json:"pressure"`
	Annotation    string    `json:"annotation,omitempty"`
	RecordedAt    time.Time `json:"recorded_at,omitempty"`
}

func (r Reading) Validate() error {
	if r.SequenceIndex < 0 {
		return fmt.Errorf("%w: sequence index %d is negative", apperrors.ErrInvalidInput, r.SequenceIndex)
	}
	if math.IsNaN(r.TemperatureC) || math.IsInf(r.TemperatureC, 0) {
		return fmt.Errorf("%w: temperature at index %d is not finite", apperrors.ErrInvalidInput, r.SequenceIndex)
	}
	if r.TemperatureC <= AbsoluteZeroC {
		return fmt.Errorf("%w: temperature %.2f at index %d is below absolute zero", apperrors.ErrInvalidInput, r.TemperatureC, r.SequenceIndex)
	}
	if math.IsNaN(r.Pressure) || math.IsInf(r.Pressure, 0) {
		return fmt.Errorf("%w: pressure at index %d is not finite", apperrors.ErrInvalidInput, r.SequenceIndex)
	}
	return nil
}

// ValidateSequence checks every reading and that indexes strictly increase after lastIndex.
// Pass -1 as lastIndex for an empty session.
func ValidateSequence(lastIndex int, readings []Reading) error {
	prev := lastIndex
	for _, r := range readings {
		if err := r.Validate(); err != nil {
			return err
		}
		if r.SequenceIndex <= prev {
			return fmt.Errorf("%w: sequence index %d does not follow %d", apperrors.ErrInvalidInput, r.SequenceIndex, prev)
		}
		prev = r.SequenceIndex
	}
	return nil
}

type digestRow struct {
	Index       int     `json:"i"`
	Temperature float64 `json:"t"`
	Pressure    float64 `json:"p"`
}

// DigestReadings fingerprints the numeric content of a reading sequence.
// Annotations and timestamps are excluded since they do not affect lethality.
func DigestReadings(readings []Reading) string {
	rows := make([]digestRow, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, digestRow{Index: r.SequenceIndex, Temperature: r.TemperatureC, Pressure: r.Pressure})
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return ""
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		canonical = raw
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
