package out

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"retort/internal/modules/report/domain"
	reportout "retort/internal/modules/report/port/out"
)

// CSVRenderer writes one row per reading and a closing total row.
type CSVRenderer struct{}

var _ reportout.Renderer = CSVRenderer{}

func (CSVRenderer) Format() string { return "csv" }

func (CSVRenderer) Render(_ context.Context, in domain.Input) (domain.Artifact, error) {
	buf := bytes.Buffer{}
	w := csv.NewWriter(&buf)
	records := [][]string{{"sequence_index", "temperature_c", "pressure", "annotation", "f0", "cumulative_f0"}}
	for _, row := range in.Rows {
		records = append(records, []string{
			strconv.Itoa(row.SequenceIndex),
			num(row.TemperatureC),
			num(row.Pressure),
			row.Annotation,
			strconv.FormatFloat(row.F0, 'f', 6, 64),
			strconv.FormatFloat(row.CumulativeF0, 'f', 6, 64),
		})
	}
	total := strconv.FormatFloat(in.TotalF0, 'f', 6, 64)
	records = append(records, []string{"total", "", "", "holding=" + in.VerdictLabel(), total, total})
	if err := w.WriteAll(records); err != nil {
		return domain.Artifact{}, fmt.Errorf("write csv: %w", err)
	}
	return domain.Artifact{Format: "csv", Extension: "csv", ContentType: "text/csv", Body: buf.Bytes()}, nil
}
