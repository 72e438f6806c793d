// Command csvexport is an exporter plugin that writes semicolon separated
// reports with decimal commas, the layout spreadsheet tools expect in id-ID.
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-plugin"

	"retort/internal/modules/report/adapter/out/rpc"
	"retort/internal/modules/report/domain"
)

const formatName = "csv-id"

type server struct{}

func (s *server) GetMetadata(_ context.Context, _ *rpc.Empty) (*rpc.Metadata, error) {
	return &rpc.Metadata{Name: "csvexport", Version: "1.0.0", Formats: []string{formatName}}, nil
}

func (s *server) Render(_ context.Context, in *rpc.RenderRequest) (*rpc.RenderResponse, error) {
	if in.Format != formatName {
		return nil, fmt.Errorf("unsupported format: %s", in.Format)
	}
	var input domain.Input
	if err := json.Unmarshal([]byte(in.InputJSON), &input); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	records := [][]string{
		{"sesi", input.Batch.SessionID},
		{"pelanggan", input.Batch.Customer},
		{"produk", input.Batch.Product},
		{"tanggal", input.Batch.ProcessDate.Format("2006-01-02")},
		{"operator", input.Batch.Operator},
		{},
		{"menit", "suhu", "tekanan", "f0", "kumulatif", "keterangan"},
	}
	for _, row := range input.Rows {
		records = append(records, []string{
			strconv.Itoa(row.SequenceIndex),
			decimal(row.TemperatureC, 1),
			decimal(row.Pressure, 2),
			decimal(row.F0, 4),
			decimal(row.CumulativeF0, 4),
			row.Annotation,
		})
	}
	records = append(records,
		[]string{},
		[]string{"total f0", decimal(input.TotalF0, 4)},
		[]string{"waktu tahan", input.VerdictLabel()},
	)
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return &rpc.RenderResponse{Body: buf.Bytes(), ContentType: "text/csv; charset=utf-8", Extension: "csv"}, nil
}

func decimal(v float64, places int) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', places, 64), ".", ",", 1)
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: rpc.HandshakeConfig,
		Plugins:         rpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
