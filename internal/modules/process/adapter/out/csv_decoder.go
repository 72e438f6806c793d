package out

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"retort/internal/modules/process/domain"
	processout "retort/internal/modules/process/port/out"
	apperrors "retort/internal/platform/errors"
)

var columnAliases = map[string]string{
	"sequence_index": "sequence_index",
	"index":          "sequence_index",
	"minute":         "sequence_index",
	"menit":          "sequence_index",
	"temperature_c":  "temperature_c",
	"temperature":    "temperature_c",
	"suhu":           "temperature_c",
	"pressure":       "pressure",
	"tekanan":        "pressure",
	"annotation":     "annotation",
	"keterangan":     "annotation",
	"note":           "annotation",
}

// CSVDecoder reads data-logger exports. Both comma and semicolon separated
// files are accepted; with semicolons a decimal comma is allowed.
type CSVDecoder struct{}

var _ processout.ReadingDecoder = CSVDecoder{}

func (CSVDecoder) Format() string { return "csv" }

func (CSVDecoder) Decode(ctx context.Context, r io.Reader) (domain.ImportBatch, error) {
	buffered := bufio.NewReader(r)
	firstLine, _ := buffered.Peek(512)
	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	if line, _, _ := strings.Cut(string(firstLine), "\n"); strings.Count(line, ";") > strings.Count(line, ",") {
		reader.Comma = ';'
	}

	batch := domain.ImportBatch{}
	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return batch, nil
		}
		return batch, fmt.Errorf("%w: read csv header: %v", apperrors.ErrInvalidInput, err)
	}
	columns := map[string]int{}
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canonical, ok := columnAliases[key]; ok {
			if _, seen := columns[canonical]; !seen {
				columns[canonical] = i
			}
		}
	}
	for _, required := range []string{"sequence_index", "temperature_c", "pressure"} {
		if _, ok := columns[required]; !ok {
			return batch, fmt.Errorf("%w: csv header is missing column %q", apperrors.ErrInvalidInput, required)
		}
	}

	lastIndex := -1
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		batch.Total++
		if err != nil {
			batch.Reject(fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		reading, err := parseRecord(record, columns, reader.Comma == ';')
		if err != nil {
			batch.Reject(fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if reading.SequenceIndex <= lastIndex {
			batch.Reject(fmt.Sprintf("line %d: sequence index %d does not follow %d", line, reading.SequenceIndex, lastIndex))
			continue
		}
		lastIndex = reading.SequenceIndex
		batch.Readings = append(batch.Readings, reading)
	}
	return batch, nil
}

func parseRecord(record []string, columns map[string]int, decimalComma bool) (domain.Reading, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	number := func(name string) (float64, error) {
		raw := field(name)
		if decimalComma {
			raw = strings.ReplaceAll(raw, ",", ".")
		}
		if raw == "" {
			return 0, fmt.Errorf("%s is empty", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%s %q is not a number", name, raw)
		}
		return v, nil
	}

	index, err := strconv.Atoi(field("sequence_index"))
	if err != nil {
		return domain.Reading{}, fmt.Errorf("sequence_index %q is not an integer", field("sequence_index"))
	}
	temp, err := number("temperature_c")
	if err != nil {
		return domain.Reading{}, err
	}
	pressure, err := number("pressure")
	if err != nil {
		return domain.Reading{}, err
	}
	reading := domain.Reading{
		SequenceIndex: index,
		TemperatureC:  temp,
		Pressure:      pressure,
		Annotation:    field("annotation"),
	}
	if err := reading.Validate(); err != nil {
		return domain.Reading{}, err
	}
	return reading, nil
}
