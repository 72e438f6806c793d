package usecase

import (
	"context"

	lethalitydto "retort/internal/modules/lethality/dto"
	lethalityin "retort/internal/modules/lethality/port/in"
	processin "retort/internal/modules/process/port/in"
	"retort/internal/modules/report/domain"
	"retort/internal/modules/report/dto"
	reportin "retort/internal/modules/report/port/in"
	"retort/internal/modules/report/service"
	"retort/internal/platform/clock"
)

type Interactor struct {
	svc       *service.ReportService
	sessions  processin.Usecase
	lethality lethalityin.Usecase
	clock     clock.Clock
}

func NewInteractor(svc *service.ReportService, sessions processin.Usecase, lethality lethalityin.Usecase, clk clock.Clock) reportin.Usecase {
	return &Interactor{svc: svc, sessions: sessions, lethality: lethality, clock: clk}
}

// Render evaluates the session (sealing it) and renders the verdict.
func (i *Interactor) Render(ctx context.Context, input dto.RenderInput) (dto.RenderOutput, error) {
	result, err := i.lethality.Evaluate(ctx, lethalitydto.EvaluateInput{SessionID: input.SessionID, Overrides: input.Overrides})
	if err != nil {
		return dto.RenderOutput{}, err
	}
	session, err := i.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return dto.RenderOutput{}, err
	}
	p := result.Parameters
	report, err := domain.NewInput(domain.Batch{
		SessionID:    session.ID,
		AmendsID:     session.AmendsID,
		Customer:     session.Customer,
		Product:      session.Product,
		Contact:      session.Contact,
		ProcessDate:  session.ProcessDate,
		BatchLabel:   session.BatchLabel,
		Operator:     session.Operator,
		PressureUnit: session.PressureUnit,
		Baskets:      session.Baskets,
		InitialCount: session.InitialCount,
		FinalCount:   session.FinalCount,
		Warnings:     session.Warnings,
	}, session.Readings, domain.Curve{
		PerSampleF0:    result.PerSampleF0,
		CumulativeF0:   result.CumulativeF0,
		TotalF0:        result.TotalF0,
		HoldingVerdict: result.HoldingVerdict,
		ParamsKey:      result.ParamsKey,
		ReadingsDigest: result.ReadingsDigest,
		Parameters: domain.ParameterSet{
			ReferenceTemperature:   p.ReferenceTemperature,
			ZValue:                 p.ZValue,
			ActivationThreshold:    p.ActivationThreshold,
			IntervalMinutes:        p.IntervalMinutes,
			MinimumHoldTemperature: p.MinimumHoldTemperature,
			MinimumHoldMinutes:     p.MinimumHoldMinutes,
		},
	}, i.clock.Now())
	if err != nil {
		return dto.RenderOutput{}, err
	}
	artifact, renderer, location, err := i.svc.Render(ctx, report, input.Format)
	if err != nil {
		return dto.RenderOutput{}, err
	}
	return dto.RenderOutput{
		SessionID:   session.ID,
		Format:      artifact.Format,
		ContentType: artifact.ContentType,
		Location:    location,
		ParamsKey:   report.ParamsKey,
		TotalF0:     report.TotalF0,
		Holding:     report.HoldingVerdict,
		Body:        artifact.Body,
		Renderer:    renderer,
	}, nil
}

func (i *Interactor) Formats(ctx context.Context) ([]dto.FormatInfo, error) {
	return i.svc.Formats(ctx)
}

func (i *Interactor) Inspect(ctx context.Context, path string) (dto.InspectOutput, error) {
	inspection, err := i.svc.Inspect(ctx, path)
	if err != nil {
		return dto.InspectOutput{}, err
	}
	return dto.InspectOutput{
		Path:     path,
		Pages:    inspection.Pages,
		TotalF0:  inspection.TotalF0,
		HasTotal: inspection.HasTotal,
		Verdict:  inspection.Verdict,
		Text:     inspection.Text,
	}, nil
}

func (i *Interactor) ListPlugins(ctx context.Context) ([]dto.PluginInfo, error) {
	return i.svc.List(ctx)
}

func (i *Interactor) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return i.svc.Doctor(ctx)
}
