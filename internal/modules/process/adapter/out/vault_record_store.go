package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"retort/internal/modules/process/domain"
	processout "retort/internal/modules/process/port/out"
	"retort/internal/platform/markdown"
	"retort/internal/platform/slug"
)

const (
	ResultsStart  = "<!-- retort:results:start -->"
	ResultsEnd    = "<!-- retort:results:end -->"
	ReadingsStart = "<!-- retort:readings:start -->"
	ReadingsEnd   = "<!-- retort:readings:end -->"
)

var (
	readingsBlock = markdown.Block{Start: ReadingsStart, End: ReadingsEnd}
	resultsBlock  = markdown.Block{Start: ResultsStart, End: ResultsEnd}
)

// RecordHeader is the yaml frontmatter of a batch record note.
type RecordHeader struct {
	SchemaVersion int       `yaml:"schema_version"`
	ID            string    `yaml:"id"`
	AmendsID      string    `yaml:"amends_id,omitempty"`
	Customer      string    `yaml:"customer"`
	Product       string    `yaml:"product"`
	Contact       string    `yaml:"contact,omitempty"`
	BatchLabel    string    `yaml:"batch_label,omitempty"`
	Operator      string    `yaml:"operator"`
	ProcessDate   string    `yaml:"process_date"`
	PressureUnit  string    `yaml:"pressure_unit"`
	Baskets       []int     `yaml:"baskets"`
	InitialCount  int       `yaml:"initial_count"`
	FinalCount    int       `yaml:"final_count"`
	ReadingCount  int       `yaml:"reading_count"`
	SealedAt      string    `yaml:"sealed_at,omitempty"`
	TotalF0       float64   `yaml:"total_f0"`
	Holding       bool      `yaml:"holding_verdict"`
	ParamsKey     string    `yaml:"params_key,omitempty"`
	Warnings      []string  `yaml:"warnings,omitempty"`
	UpdatedAt     time.Time `yaml:"updated_at"`
}

// VaultRecordStore writes one markdown note per batch under <vault>/batches.
// Text outside the managed blocks is kept across rewrites.
type VaultRecordStore struct {
	vaultPath string
	now       func() time.Time
}

var _ processout.RecordWriter = (*VaultRecordStore)(nil)

func NewVaultRecordStore(vaultPath string) *VaultRecordStore {
	return &VaultRecordStore{vaultPath: vaultPath, now: time.Now}
}

func (s *VaultRecordStore) RecordPath(session domain.Session) string {
	name := session.Metadata.ProcessDate.Format("2006-01-02") + "-" + slug.Make(session.Metadata.Customer+" "+session.Metadata.BatchLabel, "batch") + "-" + shortID(session.ID)
	return filepath.Join(s.vaultPath, "batches", name+".md")
}

func (s *VaultRecordStore) WriteRecord(_ context.Context, session domain.Session, results []domain.StoredResult) (string, error) {
	path := s.RecordPath(session)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create batches directory: %w", err)
	}

	header := s.header(session)
	readings, verdicts := readingsTable(session), resultsTable(results)

	body := ""
	if existing, err := os.ReadFile(path); err == nil {
		previous := RecordHeader{}
		if existingBody, decodeErr := markdown.DecodeFrontmatter(string(existing), &previous); decodeErr == nil {
			if unchanged(previous, header, existingBody, readings, verdicts) {
				return path, nil
			}
			body = existingBody
		}
	}
	if strings.TrimSpace(body) == "" {
		body = fmt.Sprintf("# %s / %s\n\n## Notes\n\n", session.Metadata.Customer, session.Metadata.Product)
	}
	body = readingsBlock.Replace(body, readings)
	body = resultsBlock.Replace(body, verdicts)

	rendered, err := markdown.RenderFrontmatter(header, body)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write batch record: %w", err)
	}
	return path, nil
}

// unchanged reports whether a rewrite would only bump updated_at.
func unchanged(previous, next RecordHeader, body, readings, verdicts string) bool {
	previous.UpdatedAt = next.UpdatedAt
	if !reflect.DeepEqual(previous, next) {
		return false
	}
	for block, generated := range map[markdown.Block]string{readingsBlock: readings, resultsBlock: verdicts} {
		current, ok := block.Content(body)
		if !ok || current != strings.Trim(generated, "\n") {
			return false
		}
	}
	return true
}

// ReadRecord decodes the header of a batch record note.
func ReadRecord(path string) (RecordHeader, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return RecordHeader{}, "", fmt.Errorf("read %s: %w", path, err)
	}
	header := RecordHeader{}
	body, err := markdown.DecodeFrontmatter(string(content), &header)
	if err != nil {
		return RecordHeader{}, "", fmt.Errorf("parse %s: %w", path, err)
	}
	return header, body, nil
}

func (s *VaultRecordStore) header(session domain.Session) RecordHeader {
	m := session.Metadata
	h := RecordHeader{
		SchemaVersion: domain.SchemaVersion,
		ID:            session.ID,
		AmendsID:      session.AmendsID,
		Customer:      m.Customer,
		Product:       m.Product,
		Contact:       m.Contact,
		BatchLabel:    m.BatchLabel,
		Operator:      m.Operator,
		ProcessDate:   m.ProcessDate.Format("2006-01-02"),
		PressureUnit:  string(m.PressureUnit),
		Baskets:       m.Baskets[:],
		InitialCount:  m.InitialCount,
		FinalCount:    m.FinalCount,
		ReadingCount:  len(session.Readings),
		UpdatedAt:     s.now().UTC().Truncate(time.Second),
	}
	if session.Sealed() {
		h.SealedAt = session.SealedAt.UTC().Format(time.RFC3339)
	}
	if session.Last != nil {
		h.TotalF0 = session.Last.TotalF0
		h.Holding = session.Last.HoldingVerdict
		h.ParamsKey = session.Last.ParamsKey
	}
	for _, w := range session.Warnings() {
		h.Warnings = append(h.Warnings, w.String())
	}
	return h
}

func readingsTable(session domain.Session) string {
	b := strings.Builder{}
	b.WriteString("| # | Temp (°C) | Pressure (" + string(session.Metadata.PressureUnit) + ") | Note |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, r := range session.Readings {
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", r.SequenceIndex, formatFloat(r.TemperatureC), formatFloat(r.Pressure), strings.ReplaceAll(r.Annotation, "|", "/"))
	}
	return b.String()
}

func resultsTable(results []domain.StoredResult) string {
	if len(results) == 0 {
		return "_no verdict recorded_\n"
	}
	b := strings.Builder{}
	b.WriteString("| Computed | Params | Total F0 | Holding |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, r := range results {
		verdict := "FAIL"
		if r.HoldingVerdict {
			verdict = "PASS"
		}
		fmt.Fprintf(&b, "| %s | `%s` | %.2f | %s |\n", r.ComputedAt.UTC().Format(time.RFC3339), r.ParamsKey, r.TotalF0, verdict)
	}
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "draft"
	}
	return id
}
