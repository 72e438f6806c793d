package in

import (
	"context"
	"fmt"
	"strings"

	"retort/internal/modules/lethality/dto"
	lethalityin "retort/internal/modules/lethality/port/in"
	processdto "retort/internal/modules/process/dto"
)

type CLIHandler struct {
	usecase lethalityin.Usecase
}

func NewCLIHandler(usecase lethalityin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Evaluate(ctx context.Context, sessionID string, overrides dto.ParameterOverrides) (dto.ResultOutput, error) {
	if strings.TrimSpace(sessionID) == "" {
		return dto.ResultOutput{}, fmt.Errorf("--session is required")
	}
	return h.usecase.Evaluate(ctx, dto.EvaluateInput{SessionID: sessionID, Overrides: overrides})
}

func (h CLIHandler) Compute(ctx context.Context, readings []processdto.Reading, overrides dto.ParameterOverrides) (dto.ResultOutput, error) {
	return h.usecase.Compute(ctx, dto.ComputeInput{Readings: readings, Overrides: overrides})
}

func (h CLIHandler) Verify(ctx context.Context, readings []processdto.Reading, overrides dto.ParameterOverrides) (dto.HoldOutput, error) {
	return h.usecase.CheckHold(ctx, dto.ComputeInput{Readings: readings, Overrides: overrides})
}

func (h CLIHandler) Defaults(ctx context.Context) dto.ParametersOutput {
	return h.usecase.Defaults(ctx)
}
