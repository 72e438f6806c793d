package out

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"retort/internal/modules/process/domain"
	processout "retort/internal/modules/process/port/out"
	apperrors "retort/internal/platform/errors"
)

//go:embed schema/readings.schema.json
var readingsSchema string

const readingsSchemaURL = "https://retort.local/schema/readings.schema.json"

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func readingSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		c.AssertFormat = true
		if err := c.AddResource(readingsSchemaURL, bytes.NewReader([]byte(readingsSchema))); err != nil {
			compileErr = fmt.Errorf("load readings schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(readingsSchemaURL)
	})
	return compiledSchema, compileErr
}

type jsonBatch struct {
	SessionID string        `json:"session_id"`
	Readings  []jsonReading `json:"readings"`
}

type jsonReading struct {
	SequenceIndex int     `json:"sequence_index"`
	TemperatureC  float64 `json:"temperature_c"`
	Pressure      float64 `json:"pressure"`
	Annotation    string  `json:"annotation"`
	RecordedAt    string  `json:"recorded_at"`
}

// JSONDecoder reads bulk payloads. The document must satisfy the embedded
// schema as a whole before any reading is accepted.
type JSONDecoder struct{}

var _ processout.ReadingDecoder = JSONDecoder{}

func (JSONDecoder) Format() string { return "json" }

func (JSONDecoder) Decode(_ context.Context, r io.Reader) (domain.ImportBatch, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return domain.ImportBatch{}, fmt.Errorf("read json payload: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.ImportBatch{}, fmt.Errorf("%w: decode json payload: %v", apperrors.ErrInvalidInput, err)
	}
	schema, err := readingSchema()
	if err != nil {
		return domain.ImportBatch{}, err
	}
	if err := schema.Validate(doc); err != nil {
		return domain.ImportBatch{}, fmt.Errorf("%w: schema validation failed: %v", apperrors.ErrInvalidInput, err)
	}

	payload := jsonBatch{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.ImportBatch{}, fmt.Errorf("%w: decode readings: %v", apperrors.ErrInvalidInput, err)
	}
	batch := domain.ImportBatch{Total: len(payload.Readings)}
	lastIndex := -1
	for i, item := range payload.Readings {
		reading := domain.Reading{
			SequenceIndex: item.SequenceIndex,
			TemperatureC:  item.TemperatureC,
			Pressure:      item.Pressure,
			Annotation:    item.Annotation,
		}
		if item.RecordedAt != "" {
			reading.RecordedAt, _ = time.Parse(time.RFC3339, item.RecordedAt)
		}
		if err := reading.Validate(); err != nil {
			batch.Reject(fmt.Sprintf("reading %d: %v", i, err))
			continue
		}
		if reading.SequenceIndex <= lastIndex {
			batch.Reject(fmt.Sprintf("reading %d: sequence index %d does not follow %d", i, reading.SequenceIndex, lastIndex))
			continue
		}
		lastIndex = reading.SequenceIndex
		batch.Readings = append(batch.Readings, reading)
	}
	return batch, nil
}
