package in

import (
	"context"
	"fmt"
	"strings"

	lethalitydto "retort/internal/modules/lethality/dto"
	"retort/internal/modules/report/dto"
	reportin "retort/internal/modules/report/port/in"
)

type CLIHandler struct {
	usecase reportin.Usecase
}

func NewCLIHandler(usecase reportin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Render(ctx context.Context, sessionID, format string, overrides lethalitydto.ParameterOverrides) (dto.RenderOutput, error) {
	if strings.TrimSpace(sessionID) == "" {
		return dto.RenderOutput{}, fmt.Errorf("--session is required")
	}
	if strings.TrimSpace(format) == "" {
		format = "pdf"
	}
	return h.usecase.Render(ctx, dto.RenderInput{SessionID: sessionID, Format: format, Overrides: overrides})
}

func (h CLIHandler) Formats(ctx context.Context) ([]dto.FormatInfo, error) {
	return h.usecase.Formats(ctx)
}

func (h CLIHandler) Inspect(ctx context.Context, path string) (dto.InspectOutput, error) {
	if strings.TrimSpace(path) == "" {
		return dto.InspectOutput{}, fmt.Errorf("pdf path is required")
	}
	return h.usecase.Inspect(ctx, path)
}

func (h CLIHandler) ListPlugins(ctx context.Context) ([]dto.PluginInfo, error) {
	return h.usecase.ListPlugins(ctx)
}

func (h CLIHandler) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return h.usecase.Doctor(ctx)
}
