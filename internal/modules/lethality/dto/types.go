package dto

import (
	processdto "retort/internal/modules/process/dto"
)

// ParameterOverrides replaces configured defaults field by field. Nil keeps the default.
type ParameterOverrides struct {
	ReferenceTemperature   *float64
	ZValue                 *float64
	ActivationThreshold    *float64
	IntervalMinutes        *float64
	MinimumHoldTemperature *float64
	MinimumHoldMinutes     *float64
}

type EvaluateInput struct {
	SessionID string
	Overrides ParameterOverrides
}

type ComputeInput struct {
	Readings  []processdto.Reading
	Overrides ParameterOverrides
}

type ParametersOutput struct {
	ReferenceTemperature   float64
	ZValue                 float64
	ActivationThreshold    float64
	IntervalMinutes        float64
	MinimumHoldTemperature float64
	MinimumHoldMinutes     float64
	Key                    string
}

type ResultOutput struct {
	SessionID      string
	ParamsKey      string
	ReadingsDigest string
	Indexes        []int
	Temperatures   []float64
	PerSampleF0    []float64
	CumulativeF0   []float64
	TotalF0        float64
	HoldingVerdict bool
	Parameters     ParametersOutput
	Cached         bool
	Sealed         bool
}

type HoldOutput struct {
	Held            bool
	RequiredSamples int
	Parameters      ParametersOutput
}
