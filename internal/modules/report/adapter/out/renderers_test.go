package out_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/common/expfmt"

	processdomain "retort/internal/modules/process/domain"
	reportout "retort/internal/modules/report/adapter/out"
	"retort/internal/modules/report/domain"
)

func sampleInput(t *testing.T) domain.Input {
	t.Helper()
	readings := []processdomain.Reading{
		{SequenceIndex: 0, TemperatureC: 85, Pressure: 0.4, Annotation: "naik"},
		{SequenceIndex: 1, TemperatureC: 121.1, Pressure: 1.1},
		{SequenceIndex: 2, TemperatureC: 121.1, Pressure: 1.1},
	}
	in, err := domain.NewInput(domain.Batch{
		SessionID:    "sess-1",
		Customer:     "CV Maju",
		Product:      "Rendang",
		ProcessDate:  time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		Operator:     "budi",
		PressureUnit: "bar",
		Baskets:      [3]int{10, 10, 10},
		InitialCount: 30,
		FinalCount:   30,
		Warnings:     []string{"sequence gap after index 2"},
	}, readings, domain.Curve{
		PerSampleF0:    []float64{0, 1, 1},
		CumulativeF0:   []float64{0, 1, 2},
		TotalF0:        2,
		HoldingVerdict: true,
		ParamsKey:      "0123456789abcdef",
		ReadingsDigest: processdomain.DigestReadings(readings),
		Parameters: domain.ParameterSet{
			ReferenceTemperature:   121.1,
			ZValue:                 10,
			ActivationThreshold:    90,
			IntervalMinutes:        1,
			MinimumHoldTemperature: 121.1,
			MinimumHoldMinutes:     3,
		},
	}, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("new input: %v", err)
	}
	return in
}

func TestCSVRendererWritesRowsAndTotal(t *testing.T) {
	t.Parallel()
	artifact, err := reportout.CSVRenderer{}.Render(context.Background(), sampleInput(t))
	if err != nil {
		t.Fatalf("render csv: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(artifact.Body)).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header, 3 rows and total, got %d records", len(records))
	}
	if records[1][3] != "naik" {
		t.Fatalf("expected annotation in first row, got %v", records[1])
	}
	last := records[4]
	if last[0] != "total" || last[3] != "holding=PASS" || last[5] != "2.000000" {
		t.Fatalf("unexpected total row: %v", last)
	}
	if artifact.Extension != "csv" {
		t.Fatalf("unexpected extension: %s", artifact.Extension)
	}
}

func TestPromRendererEmitsGauges(t *testing.T) {
	t.Parallel()
	artifact, err := reportout.PromRenderer{}.Render(context.Background(), sampleInput(t))
	if err != nil {
		t.Fatalf("render prom: %v", err)
	}
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(bytes.NewReader(artifact.Body))
	if err != nil {
		t.Fatalf("parse exposition: %v\n%s", err, artifact.Body)
	}
	want := map[string]float64{
		reportout.MetricTotalF0:      2,
		reportout.MetricHolding:      1,
		reportout.MetricReadingCount: 3,
	}
	for name, value := range want {
		mf, ok := families[name]
		if !ok {
			t.Fatalf("missing metric %s", name)
		}
		if got := mf.GetMetric()[0].GetGauge().GetValue(); got != value {
			t.Fatalf("%s = %v, want %v", name, got, value)
		}
	}
	labels := map[string]string{}
	for _, lp := range families[reportout.MetricTotalF0].GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	if labels["session"] != "sess-1" || labels["params_key"] != "0123456789abcdef" {
		t.Fatalf("unexpected labels: %v", labels)
	}
}

func TestPDFRendererRoundTripsThroughInspector(t *testing.T) {
	t.Parallel()
	in := sampleInput(t)
	artifact, err := reportout.NewPDFRenderer("").Render(context.Background(), in)
	if err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	if !bytes.HasPrefix(artifact.Body, []byte("%PDF-")) {
		t.Fatalf("expected pdf header")
	}
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, artifact.Body, 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	inspection, err := reportout.PDFInspector{}.Inspect(context.Background(), path)
	if err != nil {
		t.Fatalf("inspect pdf: %v", err)
	}
	if inspection.Pages < 1 {
		t.Fatalf("expected at least one page")
	}
	if !inspection.HasTotal || inspection.TotalF0 != 2 {
		t.Fatalf("expected total 2.00 in text, got %v (%v)\n%s", inspection.TotalF0, inspection.HasTotal, inspection.Text)
	}
	if inspection.Verdict != "PASS" {
		t.Fatalf("expected PASS verdict, got %q", inspection.Verdict)
	}
	if !strings.Contains(inspection.Text, "Laporan Proses Retort") {
		t.Fatalf("expected report title in text:\n%s", inspection.Text)
	}
}

func TestPDFInspectorRejectsNonPDF(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "not.pdf")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := (reportout.PDFInspector{}).Inspect(context.Background(), path); err == nil {
		t.Fatalf("expected error for non-pdf input")
	}
}
