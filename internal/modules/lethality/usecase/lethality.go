package usecase

import (
	"context"
	"slices"

	"retort/internal/modules/lethality/domain"
	"retort/internal/modules/lethality/dto"
	lethalityin "retort/internal/modules/lethality/port/in"
	"retort/internal/modules/lethality/service"
	processdto "retort/internal/modules/process/dto"
	processin "retort/internal/modules/process/port/in"
)

type Interactor struct {
	svc      *service.LethalityService
	sessions processin.Usecase
}

func NewInteractor(svc *service.LethalityService, sessions processin.Usecase) lethalityin.Usecase {
	return &Interactor{svc: svc, sessions: sessions}
}

func (i *Interactor) Evaluate(ctx context.Context, input dto.EvaluateInput) (dto.ResultOutput, error) {
	p, h, err := i.svc.Resolve(input.Overrides)
	if err != nil {
		return dto.ResultOutput{}, err
	}
	session, err := i.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return dto.ResultOutput{}, err
	}
	result, cached, err := i.svc.EvaluateSession(ctx, session.ID, session.Readings, p, h)
	if err != nil {
		return dto.ResultOutput{}, err
	}
	if _, err := i.sessions.SaveResult(ctx, processdto.SaveResultInput{
		SessionID:      session.ID,
		ParamsKey:      result.ParamsKey,
		ReadingsDigest: result.ReadingsDigest,
		TotalF0:        result.TotalF0,
		HoldingVerdict: result.HoldingVerdict,
		ReadingCount:   len(session.Readings),
	}); err != nil {
		return dto.ResultOutput{}, err
	}
	out := toResultOutput(result, session.Readings)
	out.SessionID = session.ID
	out.Cached = cached
	out.Sealed = true
	return out, nil
}

func (i *Interactor) Compute(_ context.Context, input dto.ComputeInput) (dto.ResultOutput, error) {
	p, h, err := i.svc.Resolve(input.Overrides)
	if err != nil {
		return dto.ResultOutput{}, err
	}
	result, err := i.svc.Evaluate(input.Readings, p, h)
	if err != nil {
		return dto.ResultOutput{}, err
	}
	return toResultOutput(result, input.Readings), nil
}

func (i *Interactor) CheckHold(_ context.Context, input dto.ComputeInput) (dto.HoldOutput, error) {
	p, h, err := i.svc.Resolve(input.Overrides)
	if err != nil {
		return dto.HoldOutput{}, err
	}
	held, err := i.svc.CheckHold(input.Readings, p, h)
	if err != nil {
		return dto.HoldOutput{}, err
	}
	needed, err := h.RequiredSamples(p.IntervalMinutes)
	if err != nil {
		return dto.HoldOutput{}, err
	}
	return dto.HoldOutput{
		Held:            held,
		RequiredSamples: needed,
		Parameters:      toParametersOutput(p, h),
	}, nil
}

func (i *Interactor) Defaults(context.Context) dto.ParametersOutput {
	return toParametersOutput(i.svc.Defaults())
}

func toResultOutput(result domain.Result, readings []processdto.Reading) dto.ResultOutput {
	out := dto.ResultOutput{
		ParamsKey:      result.ParamsKey,
		ReadingsDigest: result.ReadingsDigest,
		Indexes:        make([]int, 0, len(readings)),
		Temperatures:   make([]float64, 0, len(readings)),
		PerSampleF0:    slices.Clone(result.PerSampleF0),
		CumulativeF0:   slices.Clone(result.CumulativeF0),
		TotalF0:        result.TotalF0,
		HoldingVerdict: result.HoldingVerdict,
		Parameters:     toParametersOutput(result.Parameters, result.Hold),
	}
	for _, r := range readings {
		out.Indexes = append(out.Indexes, r.SequenceIndex)
		out.Temperatures = append(out.Temperatures, r.TemperatureC)
	}
	return out
}

func toParametersOutput(p domain.Parameters, h domain.HoldParameters) dto.ParametersOutput {
	return dto.ParametersOutput{
		ReferenceTemperature:   p.ReferenceTemperature,
		ZValue:                 p.ZValue,
		ActivationThreshold:    p.ActivationThreshold,
		IntervalMinutes:        p.IntervalMinutes,
		MinimumHoldTemperature: h.MinimumTemperature,
		MinimumHoldMinutes:     h.MinimumDurationMinutes,
		Key:                    domain.Key(p, h),
	}
}
