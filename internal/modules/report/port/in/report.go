package in

import (
	"context"

	"retort/internal/modules/report/dto"
)

type Usecase interface {
	Render(ctx context.Context, input dto.RenderInput) (dto.RenderOutput, error)
	Formats(ctx context.Context) ([]dto.FormatInfo, error)
	Inspect(ctx context.Context, path string) (dto.InspectOutput, error)
	ListPlugins(ctx context.Context) ([]dto.PluginInfo, error)
	Doctor(ctx context.Context) ([]dto.DoctorResult, error)
}
