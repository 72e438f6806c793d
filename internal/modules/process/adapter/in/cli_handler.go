package in

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"retort/internal/modules/process/dto"
	processin "retort/internal/modules/process/port/in"
)

type CLIHandler struct {
	usecase processin.Usecase
}

func NewCLIHandler(usecase processin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Create(ctx context.Context, input dto.CreateSessionInput) (dto.SessionOutput, error) {
	return h.usecase.Create(ctx, input)
}

func (h CLIHandler) Append(ctx context.Context, sessionID string, entries []string) (dto.AppendOutput, error) {
	if strings.TrimSpace(sessionID) == "" {
		return dto.AppendOutput{}, fmt.Errorf("--session is required")
	}
	next := 0
	if !explicitIndexes(entries) {
		session, err := h.usecase.Get(ctx, sessionID)
		if err != nil {
			return dto.AppendOutput{}, err
		}
		if n := len(session.Readings); n > 0 {
			next = session.Readings[n-1].SequenceIndex + 1
		}
	}
	readings, err := ParseReadingsFrom(entries, next)
	if err != nil {
		return dto.AppendOutput{}, err
	}
	return h.usecase.Append(ctx, dto.AppendReadingsInput{SessionID: sessionID, Readings: readings})
}

func (h CLIHandler) Import(ctx context.Context, sessionID, path, format string) (dto.ImportOutput, error) {
	return h.usecase.Import(ctx, dto.ImportInput{SessionID: sessionID, Path: path, Format: format})
}

func (h CLIHandler) Show(ctx context.Context, sessionID string) (dto.SessionDetailOutput, error) {
	return h.usecase.Get(ctx, sessionID)
}

func (h CLIHandler) List(ctx context.Context) ([]dto.SessionOutput, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Amend(ctx context.Context, sessionID string) (dto.SessionOutput, error) {
	return h.usecase.Amend(ctx, dto.AmendInput{SessionID: sessionID})
}

// ParseReadings turns "index:temperature:pressure[:note]" entries into readings.
// An entry without an index continues from the previous one, starting at 0.
func ParseReadings(entries []string) ([]dto.Reading, error) {
	return ParseReadingsFrom(entries, 0)
}

// ParseReadingsFrom is ParseReadings with implicit indexes starting at next.
func ParseReadingsFrom(entries []string, next int) ([]dto.Reading, error) {
	out := make([]dto.Reading, 0, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 4)
		if len(parts) < 2 {
			return nil, fmt.Errorf("reading %q: expected index:temperature:pressure[:note]", entry)
		}
		r := dto.Reading{SequenceIndex: next}
		if parts[0] != "" {
			idx, err := strconv.Atoi(parts[0])
			if err != nil {
				return nil, fmt.Errorf("reading %q: index: %w", entry, err)
			}
			r.SequenceIndex = idx
		}
		temp, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("reading %q: temperature: %w", entry, err)
		}
		r.TemperatureC = temp
		if len(parts) > 2 && parts[2] != "" {
			pressure, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				return nil, fmt.Errorf("reading %q: pressure: %w", entry, err)
			}
			r.Pressure = pressure
		}
		if len(parts) > 3 {
			r.Annotation = parts[3]
		}
		out = append(out, r)
		next = r.SequenceIndex + 1
	}
	return out, nil
}

func explicitIndexes(entries []string) bool {
	for _, entry := range entries {
		if strings.HasPrefix(strings.TrimSpace(entry), ":") {
			return false
		}
	}
	return true
}
