package domain

import (
	"fmt"
	"math"

	processdomain "retort/internal/modules/process/domain"
	apperrors "retort/internal/platform/errors"
)

// Lethality is the per-sample and cumulative F0 curve of one reading sequence.
type Lethality struct {
	PerSampleF0  []float64
	CumulativeF0 []float64
	TotalF0      float64
}

// Contribution is the lethality of one sample. Samples below the activation
// threshold contribute nothing; above it every z degrees below the reference
// divide the contribution by ten.
func Contribution(temperatureC float64, p Parameters) float64 {
	if temperatureC < p.ActivationThreshold {
		return 0
	}
	c := p.IntervalMinutes * math.Pow(10, (temperatureC-p.ReferenceTemperature)/p.ZValue)
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	return c
}

// Compute converts readings into a lethality curve. Every sample counts as
// IntervalMinutes regardless of timestamps or index gaps.
func Compute(readings []processdomain.Reading, p Parameters) (Lethality, error) {
	if err := p.Validate(); err != nil {
		return Lethality{}, err
	}
	if len(readings) == 0 {
		return Lethality{}, fmt.Errorf("%w: no readings to compute", apperrors.ErrInvalidInput)
	}
	if err := processdomain.ValidateSequence(-1, readings); err != nil {
		return Lethality{}, err
	}

	out := Lethality{
		PerSampleF0:  make([]float64, len(readings)),
		CumulativeF0: make([]float64, len(readings)),
	}
	running := 0.0
	for i, r := range readings {
		c := Contribution(r.TemperatureC, p)
		running += c
		if math.IsInf(running, 0) {
			return Lethality{}, fmt.Errorf("%w: lethality overflows at index %d (%.2f C)", apperrors.ErrInvalidInput, r.SequenceIndex, r.TemperatureC)
		}
		out.PerSampleF0[i] = c
		out.CumulativeF0[i] = running
	}
	out.TotalF0 = running
	return out, nil
}

// CheckHoldingTime reports whether some contiguous run of samples at or above
// the minimum temperature lasted the minimum duration. Any dip resets the run.
// Readings are held to the same rules as Compute.
func CheckHoldingTime(readings []processdomain.Reading, h HoldParameters, intervalMinutes float64) (bool, error) {
	needed, err := h.RequiredSamples(intervalMinutes)
	if err != nil {
		return false, err
	}
	if err := processdomain.ValidateSequence(-1, readings); err != nil {
		return false, err
	}
	run := 0
	for _, r := range readings {
		if r.TemperatureC < h.MinimumTemperature {
			run = 0
			continue
		}
		run++
		if run >= needed {
			return true, nil
		}
	}
	return false, nil
}
