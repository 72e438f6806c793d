package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/gowebpki/jcs"

	apperrors "retort/internal/platform/errors"
)

const (
	DefaultReferenceTemperature   = 121.1
	DefaultZValue                 = 10.0
	DefaultActivationThreshold    = 90.0
	DefaultIntervalMinutes        = 1.0
	DefaultMinimumHoldTemperature = 121.1
	DefaultMinimumHoldMinutes     = 3.0

	// MaxHoldSamples bounds the hold requirement at a given sampling interval.
	MaxHoldSamples = math.MaxInt32
)

// Parameters configure the inactivation model. Divergent thresholds between
// sites are expressed here rather than in separate code paths.
type Parameters struct {
	ReferenceTemperature float64 `json:"reference_temperature"`
	ZValue               float64 `json:"z_value"`
	ActivationThreshold  float64 `json:"activation_threshold"`
	IntervalMinutes      float64 `json:"interval_minutes"`
}

func DefaultParameters() Parameters {
	return Parameters{
		ReferenceTemperature: DefaultReferenceTemperature,
		ZValue:               DefaultZValue,
		ActivationThreshold:  DefaultActivationThreshold,
		IntervalMinutes:      DefaultIntervalMinutes,
	}
}

func (p Parameters) Validate() error {
	if !finite(p.ReferenceTemperature) {
		return fmt.Errorf("%w: reference temperature must be finite", apperrors.ErrInvalidParameter)
	}
	if !finite(p.ZValue) || p.ZValue <= 0 {
		return fmt.Errorf("%w: z-value must be a positive number, got %v", apperrors.ErrInvalidParameter, p.ZValue)
	}
	if !finite(p.ActivationThreshold) {
		return fmt.Errorf("%w: activation threshold must be finite", apperrors.ErrInvalidParameter)
	}
	if !finite(p.IntervalMinutes) || p.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: interval minutes must be a positive number, got %v", apperrors.ErrInvalidParameter, p.IntervalMinutes)
	}
	return nil
}

// HoldParameters define the contiguous holding requirement.
type HoldParameters struct {
	MinimumTemperature     float64 `json:"minimum_temperature"`
	MinimumDurationMinutes float64 `json:"minimum_duration_minutes"`
}

func DefaultHoldParameters() HoldParameters {
	return HoldParameters{
		MinimumTemperature:     DefaultMinimumHoldTemperature,
		MinimumDurationMinutes: DefaultMinimumHoldMinutes,
	}
}

func (h HoldParameters) Validate() error {
	if !finite(h.MinimumTemperature) {
		return fmt.Errorf("%w: minimum hold temperature must be finite", apperrors.ErrInvalidParameter)
	}
	if !finite(h.MinimumDurationMinutes) || h.MinimumDurationMinutes <= 0 {
		return fmt.Errorf("%w: minimum hold duration must be a positive number, got %v", apperrors.ErrInvalidParameter, h.MinimumDurationMinutes)
	}
	return nil
}

// RequiredSamples converts the hold duration into a sample count at the given interval.
func (h HoldParameters) RequiredSamples(intervalMinutes float64) (int, error) {
	if err := h.Validate(); err != nil {
		return 0, err
	}
	if !finite(intervalMinutes) || intervalMinutes <= 0 {
		return 0, fmt.Errorf("%w: interval minutes must be a positive number, got %v", apperrors.ErrInvalidParameter, intervalMinutes)
	}
	n := math.Ceil(h.MinimumDurationMinutes/intervalMinutes - 1e-9)
	if !finite(n) || n > MaxHoldSamples {
		return 0, fmt.Errorf("%w: hold of %v minutes needs more than %d samples at %v minute intervals", apperrors.ErrInvalidParameter, h.MinimumDurationMinutes, MaxHoldSamples, intervalMinutes)
	}
	if n < 1 {
		return 1, nil
	}
	return int(n), nil
}

type parameterSet struct {
	Engine Parameters     `json:"engine"`
	Hold   HoldParameters `json:"hold"`
}

// Key fingerprints a parameter set. Results computed under different keys are distinct snapshots.
func Key(p Parameters, h HoldParameters) string {
	raw, err := json.Marshal(parameterSet{Engine: p, Hold: h})
	if err != nil {
		return ""
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		canonical = raw
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:16])
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
