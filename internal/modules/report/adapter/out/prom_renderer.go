package out

import (
	"bytes"
	"context"
	"fmt"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"retort/internal/modules/report/domain"
	reportout "retort/internal/modules/report/port/out"
)

const (
	MetricTotalF0      = "retort_batch_f0_total"
	MetricHolding      = "retort_batch_holding_verdict"
	MetricReadingCount = "retort_batch_reading_count"
)

// PromRenderer writes a node-exporter textfile for the batch.
type PromRenderer struct{}

var _ reportout.Renderer = PromRenderer{}

func (PromRenderer) Format() string { return "prom" }

func (PromRenderer) Render(_ context.Context, in domain.Input) (domain.Artifact, error) {
	labels := []*dto.LabelPair{
		{Name: proto.String("session"), Value: proto.String(in.Batch.SessionID)},
		{Name: proto.String("customer"), Value: proto.String(in.Batch.Customer)},
		{Name: proto.String("product"), Value: proto.String(in.Batch.Product)},
		{Name: proto.String("params_key"), Value: proto.String(in.ParamsKey)},
	}
	holding := 0.0
	if in.HoldingVerdict {
		holding = 1
	}
	families := []*dto.MetricFamily{
		gauge(MetricTotalF0, "Cumulative lethality of the batch in minutes at reference temperature.", labels, in.TotalF0),
		gauge(MetricHolding, "1 when the minimum holding time was met, else 0.", labels, holding),
		gauge(MetricReadingCount, "Number of readings in the batch.", labels, float64(len(in.Rows))),
	}
	buf := bytes.Buffer{}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return domain.Artifact{}, fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return domain.Artifact{Format: "prom", Extension: "prom", ContentType: string(expfmt.NewFormat(expfmt.TypeTextPlain)), Body: buf.Bytes()}, nil
}

func gauge(name, help string, labels []*dto.LabelPair, value float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{
			Label: labels,
			Gauge: &dto.Gauge{Value: proto.Float64(value)},
		}},
	}
}
