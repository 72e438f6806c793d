package out

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"

	"retort/internal/modules/report/domain"
	reportout "retort/internal/modules/report/port/out"
)

const DefaultFacility = "Rumah Retort Bersama"

// PDFRenderer lays out the printable process report.
type PDFRenderer struct {
	facility string
}

var _ reportout.Renderer = PDFRenderer{}

func NewPDFRenderer(facility string) PDFRenderer {
	if facility == "" {
		facility = DefaultFacility
	}
	return PDFRenderer{facility: facility}
}

func (PDFRenderer) Format() string { return "pdf" }

func (r PDFRenderer) Render(_ context.Context, in domain.Input) (domain.Artifact, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle("Laporan Proses Retort "+in.Batch.SessionID, false)
	doc.SetCreator("retort", false)
	doc.SetHeaderFunc(func() {
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(0, 10, "Laporan Proses Retort", "", 1, "C", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(0, 10, tr("Diproses oleh "+r.facility), "", 1, "C", false, 0, "")
		doc.Ln(5)
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont("Helvetica", "I", 8)
		doc.CellFormat(0, 10, fmt.Sprintf("Halaman %d", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	doc.SetFont("Helvetica", "", 10)
	line := func(h float64, text string) {
		doc.CellFormat(0, h, tr(text), "", 1, "L", false, 0, "")
	}
	b := in.Batch
	line(8, "Tanggal: "+b.ProcessDate.Format("02-01-2006"))
	line(8, fmt.Sprintf("Pelanggan: %s | Produk: %s", b.Customer, b.Product))
	if b.Contact != "" {
		line(8, "Kontak: "+b.Contact)
	}
	if b.BatchLabel != "" {
		line(8, "Batch: "+b.BatchLabel)
	}
	line(8, "User: "+b.Operator)
	line(8, fmt.Sprintf("Jumlah Awal: %d | Basket 1: %d | Basket 2: %d | Basket 3: %d", b.InitialCount, b.Baskets[0], b.Baskets[1], b.Baskets[2]))
	line(8, fmt.Sprintf("Jumlah Akhir: %d", b.FinalCount))
	line(8, "Sesi: "+b.SessionID)
	if b.AmendsID != "" {
		line(8, "Koreksi dari: "+b.AmendsID)
	}
	p := in.Parameters
	doc.SetFont("Helvetica", "", 8)
	line(6, fmt.Sprintf("Parameter: Tref %s °C | z %s | ambang %s °C | interval %s menit | tahan %s °C selama %s menit | kunci %s",
		num(p.ReferenceTemperature), num(p.ZValue), num(p.ActivationThreshold), num(p.IntervalMinutes),
		num(p.MinimumHoldTemperature), num(p.MinimumHoldMinutes), in.ParamsKey))
	doc.SetFont("Helvetica", "", 10)
	doc.Ln(5)
	line(10, "Data Pantauan:")

	for _, row := range in.Rows {
		text := fmt.Sprintf("Menit %d | Suhu: %s °C | Tekanan: %s %s | F0: %.2f | Kumulatif: %.2f",
			row.SequenceIndex, num(row.TemperatureC), num(row.Pressure), b.PressureUnit, row.F0, row.CumulativeF0)
		if row.Annotation != "" {
			text += " | " + row.Annotation
		}
		line(8, text)
	}
	doc.Ln(5)
	doc.SetFont("Helvetica", "B", 11)
	line(10, fmt.Sprintf("Total F0: %.2f", in.TotalF0))
	line(10, "Waktu Tahan: "+in.VerdictLabel())
	if len(b.Warnings) > 0 {
		doc.SetFont("Helvetica", "I", 9)
		line(8, "Catatan:")
		for _, w := range b.Warnings {
			doc.MultiCell(0, 6, tr("- "+w), "", "L", false)
		}
	}

	buf := bytes.Buffer{}
	if err := doc.Output(&buf); err != nil {
		return domain.Artifact{}, fmt.Errorf("write pdf: %w", err)
	}
	return domain.Artifact{Format: "pdf", Extension: "pdf", ContentType: "application/pdf", Body: buf.Bytes()}, nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
