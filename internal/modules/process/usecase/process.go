package usecase

import (
	"context"

	"retort/internal/modules/process/domain"
	"retort/internal/modules/process/dto"
	processin "retort/internal/modules/process/port/in"
	"retort/internal/modules/process/service"
)

type Interactor struct {
	svc *service.SessionService
}

func NewInteractor(svc *service.SessionService) processin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Create(ctx context.Context, input dto.CreateSessionInput) (dto.SessionOutput, error) {
	session, err := i.svc.Create(ctx, domain.Metadata{
		Customer:     input.Customer,
		Product:      input.Product,
		Contact:      input.Contact,
		ProcessDate:  input.ProcessDate,
		BatchLabel:   input.BatchLabel,
		Operator:     input.Operator,
		PressureUnit: domain.PressureUnit(input.PressureUnit),
		Baskets:      input.Baskets,
		InitialCount: input.InitialCount,
		FinalCount:   input.FinalCount,
	}, input.Readings)
	if err != nil {
		return dto.SessionOutput{}, err
	}
	return toSessionOutput(session), nil
}

func (i *Interactor) Append(ctx context.Context, input dto.AppendReadingsInput) (dto.AppendOutput, error) {
	session, err := i.svc.Append(ctx, input.SessionID, input.Readings)
	if err != nil {
		return dto.AppendOutput{}, err
	}
	return dto.AppendOutput{
		SessionID:    session.ID,
		Appended:     len(input.Readings),
		ReadingCount: len(session.Readings),
		Warnings:     warningStrings(session.Warnings()),
	}, nil
}

func (i *Interactor) Import(ctx context.Context, input dto.ImportInput) (dto.ImportOutput, error) {
	session, batch, err := i.svc.Import(ctx, input.SessionID, input.Path, input.Format)
	out := dto.ImportOutput{
		SessionID: input.SessionID,
		Total:     batch.Total,
		Failed:    batch.Failed,
		Errors:    batch.Errors,
	}
	if err != nil {
		return out, err
	}
	out.Imported = len(batch.Readings)
	out.Warnings = warningStrings(session.Warnings())
	return out, nil
}

func (i *Interactor) Get(ctx context.Context, sessionID string) (dto.SessionDetailOutput, error) {
	session, err := i.svc.Get(ctx, sessionID)
	if err != nil {
		return dto.SessionDetailOutput{}, err
	}
	out := dto.SessionDetailOutput{
		SessionOutput: toSessionOutput(session),
		Contact:       session.Metadata.Contact,
		PressureUnit:  string(session.Metadata.PressureUnit),
		Baskets:       session.Metadata.Baskets,
		InitialCount:  session.Metadata.InitialCount,
		FinalCount:    session.Metadata.FinalCount,
		Readings:      session.Readings,
	}
	if session.Last != nil {
		out.Last = &dto.ResultOutput{
			SessionID:      session.ID,
			ParamsKey:      session.Last.ParamsKey,
			TotalF0:        session.Last.TotalF0,
			HoldingVerdict: session.Last.HoldingVerdict,
			ReadingCount:   len(session.Readings),
			ComputedAt:     session.Last.ComputedAt,
		}
	}
	return out, nil
}

func (i *Interactor) List(ctx context.Context) ([]dto.SessionOutput, error) {
	sessions, err := i.svc.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SessionOutput, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionOutput(session))
	}
	return out, nil
}

func (i *Interactor) Amend(ctx context.Context, input dto.AmendInput) (dto.SessionOutput, error) {
	session, err := i.svc.Amend(ctx, input.SessionID)
	if err != nil {
		return dto.SessionOutput{}, err
	}
	return toSessionOutput(session), nil
}

func (i *Interactor) SaveResult(ctx context.Context, input dto.SaveResultInput) (dto.ResultOutput, error) {
	stored, err := i.svc.SaveResult(ctx, domain.StoredResult{
		SessionID:      input.SessionID,
		ParamsKey:      input.ParamsKey,
		ReadingsDigest: input.ReadingsDigest,
		TotalF0:        input.TotalF0,
		HoldingVerdict: input.HoldingVerdict,
		ReadingCount:   input.ReadingCount,
	})
	if err != nil {
		return dto.ResultOutput{}, err
	}
	return toResultOutput(stored), nil
}

func (i *Interactor) LoadResult(ctx context.Context, sessionID, paramsKey string) (dto.ResultOutput, error) {
	stored, err := i.svc.LoadResult(ctx, sessionID, paramsKey)
	if err != nil {
		return dto.ResultOutput{}, err
	}
	return toResultOutput(stored), nil
}

func toSessionOutput(session domain.Session) dto.SessionOutput {
	return dto.SessionOutput{
		ID:           session.ID,
		AmendsID:     session.AmendsID,
		Customer:     session.Metadata.Customer,
		Product:      session.Metadata.Product,
		BatchLabel:   session.Metadata.BatchLabel,
		Operator:     session.Metadata.Operator,
		ProcessDate:  session.Metadata.ProcessDate,
		CreatedAt:    session.CreatedAt,
		SealedAt:     session.SealedAt,
		ReadingCount: len(session.Readings),
		Warnings:     warningStrings(session.Warnings()),
	}
}

func toResultOutput(stored domain.StoredResult) dto.ResultOutput {
	return dto.ResultOutput{
		SessionID:      stored.SessionID,
		ParamsKey:      stored.ParamsKey,
		ReadingsDigest: stored.ReadingsDigest,
		TotalF0:        stored.TotalF0,
		HoldingVerdict: stored.HoldingVerdict,
		ReadingCount:   stored.ReadingCount,
		ComputedAt:     stored.ComputedAt,
	}
}

func warningStrings(warnings []domain.DataIntegrityWarning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}
