package in

import (
	"context"

	"retort/internal/modules/process/dto"
)

type Usecase interface {
	Create(ctx context.Context, input dto.CreateSessionInput) (dto.SessionOutput, error)
	Append(ctx context.Context, input dto.AppendReadingsInput) (dto.AppendOutput, error)
	Import(ctx context.Context, input dto.ImportInput) (dto.ImportOutput, error)
	Get(ctx context.Context, sessionID string) (dto.SessionDetailOutput, error)
	List(ctx context.Context) ([]dto.SessionOutput, error)
	Amend(ctx context.Context, input dto.AmendInput) (dto.SessionOutput, error)
	SaveResult(ctx context.Context, input dto.SaveResultInput) (dto.ResultOutput, error)
	LoadResult(ctx context.Context, sessionID, paramsKey string) (dto.ResultOutput, error)
}
