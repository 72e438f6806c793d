package in

import (
	"context"

	"retort/internal/modules/lethality/dto"
)

type Usecase interface {
	// Evaluate computes a stored session's verdict and seals the session with it.
	Evaluate(ctx context.Context, input dto.EvaluateInput) (dto.ResultOutput, error)
	Compute(ctx context.Context, input dto.ComputeInput) (dto.ResultOutput, error)
	CheckHold(ctx context.Context, input dto.ComputeInput) (dto.HoldOutput, error)
	Defaults(ctx context.Context) dto.ParametersOutput
}
