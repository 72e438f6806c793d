package domain

import (
	"slices"

	processdomain "retort/internal/modules/process/domain"
)

// Result is a derived snapshot. It is recomputed from readings and never edited.
type Result struct {
	Lethality
	HoldingVerdict bool
	Parameters     Parameters
	Hold           HoldParameters
	ParamsKey      string
	ReadingsDigest string
}

// Evaluate runs Compute and CheckHoldingTime with one shared interval.
func Evaluate(readings []processdomain.Reading, p Parameters, h HoldParameters) (Result, error) {
	if err := h.Validate(); err != nil {
		return Result{}, err
	}
	curve, err := Compute(readings, p)
	if err != nil {
		return Result{}, err
	}
	held, err := CheckHoldingTime(readings, h, p.IntervalMinutes)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Lethality:      curve,
		HoldingVerdict: held,
		Parameters:     p,
		Hold:           h,
		ParamsKey:      Key(p, h),
		ReadingsDigest: processdomain.DigestReadings(readings),
	}, nil
}

// Clone returns a copy whose curves share no memory with r.
func (r Result) Clone() Result {
	r.PerSampleF0 = slices.Clone(r.PerSampleF0)
	r.CumulativeF0 = slices.Clone(r.CumulativeF0)
	return r
}
