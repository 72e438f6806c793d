package domain

import (
	"fmt"
	"math"
	"time"

	processdomain "retort/internal/modules/process/domain"
	apperrors "retort/internal/platform/errors"
)

// Batch is the header block of a process report.
type Batch struct {
	SessionID    string    `json:"session_id"`
	AmendsID     string    `json:"amends_id,omitempty"`
	Customer     string    `json:"customer"`
	Product      string    `json:"product"`
	Contact      string    `json:"contact,omitempty"`
	ProcessDate  time.Time `json:"process_date"`
	BatchLabel   string    `json:"batch_label,omitempty"`
	Operator     string    `json:"operator"`
	PressureUnit string    `json:"pressure_unit"`
	Baskets      [3]int    `json:"baskets"`
	InitialCount int       `json:"initial_count"`
	FinalCount   int       `json:"final_count"`
	Warnings     []string  `json:"warnings,omitempty"`
}

// Row is one reading paired with its lethality contribution.
type Row struct {
	SequenceIndex int     `json:"sequence_index"`
	TemperatureC  float64 `json:"temperature_c"`
	Pressure      float64 `json:"pressure"`
	Annotation    string  `json:"annotation,omitempty"`
	F0            float64 `json:"f0"`
	CumulativeF0  float64 `json:"cumulative_f0"`
}

type ParameterSet struct {
	ReferenceTemperature   float64 `json:"reference_temperature"`
	ZValue                 float64 `json:"z_value"`
	ActivationThreshold    float64 `json:"activation_threshold"`
	IntervalMinutes        float64 `json:"interval_minutes"`
	MinimumHoldTemperature float64 `json:"minimum_hold_temperature"`
	MinimumHoldMinutes     float64 `json:"minimum_hold_minutes"`
}

// Input is everything an exporter needs. It is built from a session and a
// result computed over exactly that session's readings.
type Input struct {
	Batch          Batch        `json:"batch"`
	Rows           []Row        `json:"rows"`
	TotalF0        float64      `json:"total_f0"`
	HoldingVerdict bool         `json:"holding_verdict"`
	ParamsKey      string       `json:"params_key"`
	ReadingsDigest string       `json:"readings_digest"`
	Parameters     ParameterSet `json:"parameters"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// Curve carries the per-sample output of an evaluation.
type Curve struct {
	PerSampleF0    []float64
	CumulativeF0   []float64
	TotalF0        float64
	HoldingVerdict bool
	ParamsKey      string
	ReadingsDigest string
	Parameters     ParameterSet
}

// NewInput pairs readings with a curve. A curve of a different length is a mismatch.
func NewInput(batch Batch, readings []processdomain.Reading, curve Curve, generatedAt time.Time) (Input, error) {
	if len(curve.PerSampleF0) != len(readings) || len(curve.CumulativeF0) != len(readings) {
		return Input{}, fmt.Errorf("%w: %d readings, %d contributions", apperrors.ErrResultMismatch, len(readings), len(curve.PerSampleF0))
	}
	rows := make([]Row, 0, len(readings))
	for i, r := range readings {
		rows = append(rows, Row{
			SequenceIndex: r.SequenceIndex,
			TemperatureC:  r.TemperatureC,
			Pressure:      r.Pressure,
			Annotation:    r.Annotation,
			F0:            curve.PerSampleF0[i],
			CumulativeF0:  curve.CumulativeF0[i],
		})
	}
	in := Input{
		Batch:          batch,
		Rows:           rows,
		TotalF0:        curve.TotalF0,
		HoldingVerdict: curve.HoldingVerdict,
		ParamsKey:      curve.ParamsKey,
		ReadingsDigest: curve.ReadingsDigest,
		Parameters:     curve.Parameters,
		GeneratedAt:    generatedAt,
	}
	if err := in.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}

func (in Input) Readings() []processdomain.Reading {
	out := make([]processdomain.Reading, 0, len(in.Rows))
	for _, r := range in.Rows {
		out = append(out, processdomain.Reading{SequenceIndex: r.SequenceIndex, TemperatureC: r.TemperatureC, Pressure: r.Pressure, Annotation: r.Annotation})
	}
	return out
}

// Validate rejects an input whose result was not computed from its rows.
func (in Input) Validate() error {
	if in.Batch.SessionID == "" {
		return fmt.Errorf("%w: report needs a session id", apperrors.ErrInvalidInput)
	}
	if len(in.Rows) == 0 {
		return fmt.Errorf("%w: report needs at least one reading", apperrors.ErrInvalidInput)
	}
	if in.ParamsKey == "" {
		return fmt.Errorf("%w: report needs a parameter key", apperrors.ErrInvalidInput)
	}
	if digest := processdomain.DigestReadings(in.Readings()); digest != in.ReadingsDigest {
		return fmt.Errorf("%w: readings digest %s does not match %s", apperrors.ErrResultMismatch, digest, in.ReadingsDigest)
	}
	last := in.Rows[len(in.Rows)-1].CumulativeF0
	if math.Abs(last-in.TotalF0) > 1e-9*math.Max(1, math.Abs(in.TotalF0)) {
		return fmt.Errorf("%w: total F0 %.6f differs from cumulative %.6f", apperrors.ErrResultMismatch, in.TotalF0, last)
	}
	return nil
}

func (in Input) VerdictLabel() string {
	if in.HoldingVerdict {
		return "PASS"
	}
	return "FAIL"
}
