package usecase_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	lethalityout "retort/internal/modules/lethality/adapter/out"
	"retort/internal/modules/lethality/domain"
	"retort/internal/modules/lethality/dto"
	lethalityin "retort/internal/modules/lethality/port/in"
	"retort/internal/modules/lethality/service"
	"retort/internal/modules/lethality/usecase"
	processout "retort/internal/modules/process/adapter/out"
	processdto "retort/internal/modules/process/dto"
	processin "retort/internal/modules/process/port/in"
	processservice "retort/internal/modules/process/service"
	processusecase "retort/internal/modules/process/usecase"
	"retort/internal/platform/clock"
	apperrors "retort/internal/platform/errors"
	"retort/internal/platform/id"
)

func newInteractors(t *testing.T) (lethalityin.Usecase, processin.Usecase) {
	t.Helper()
	store, err := processout.NewSQLiteSessionStore(filepath.Join(t.TempDir(), "retort.db"), id.UUID{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	sessions := processusecase.NewInteractor(processservice.NewSessionService(
		clock.Fixed(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)), store, nil, nil, processservice.Policy{}, nil,
	))
	svc := service.NewLethalityService(domain.DefaultParameters(), domain.DefaultHoldParameters(), lethalityout.NewMemoryResultCache(), nil)
	return usecase.NewInteractor(svc, sessions), sessions
}

func plateau(temps ...float64) []processdto.Reading {
	out := make([]processdto.Reading, 0, len(temps))
	for i, temp := range temps {
		out = append(out, processdto.Reading{SequenceIndex: i, TemperatureC: temp, Pressure: 1.1})
	}
	return out
}

func TestEvaluateSealsSessionAndUsesCache(t *testing.T) {
	t.Parallel()
	uc, sessions := newInteractors(t)
	ctx := context.Background()

	created, err := sessions.Create(ctx, processdto.CreateSessionInput{
		Customer: "CV Maju",
		Product:  "Rendang",
		Operator: "budi",
		Readings: plateau(100, 121.1, 121.1, 121.1, 115),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := uc.Evaluate(ctx, dto.EvaluateInput{SessionID: created.ID})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !first.HoldingVerdict || first.Cached || !first.Sealed {
		t.Fatalf("unexpected first evaluation %+v", first)
	}
	if n := len(first.CumulativeF0); n != 5 || first.CumulativeF0[n-1] != first.TotalF0 {
		t.Fatalf("cumulative curve inconsistent: %+v", first.CumulativeF0)
	}

	second, err := uc.Evaluate(ctx, dto.EvaluateInput{SessionID: created.ID})
	if err != nil {
		t.Fatalf("evaluate again: %v", err)
	}
	if !second.Cached || second.TotalF0 != first.TotalF0 {
		t.Fatalf("expected cached identical result, got %+v", second)
	}

	if _, err := sessions.Append(ctx, processdto.AppendReadingsInput{SessionID: created.ID, Readings: []processdto.Reading{{SequenceIndex: 5, TemperatureC: 120}}}); !errors.Is(err, apperrors.ErrSessionSealed) {
		t.Fatalf("expected sealed session, got %v", err)
	}

	stricter := 5.0
	third, err := uc.Evaluate(ctx, dto.EvaluateInput{SessionID: created.ID, Overrides: dto.ParameterOverrides{MinimumHoldMinutes: &stricter}})
	if err != nil {
		t.Fatalf("evaluate stricter: %v", err)
	}
	if third.HoldingVerdict || third.ParamsKey == first.ParamsKey {
		t.Fatalf("expected failing verdict under a new key, got %+v", third)
	}
	for _, key := range []string{first.ParamsKey, third.ParamsKey} {
		if _, err := sessions.LoadResult(ctx, created.ID, key); err != nil {
			t.Fatalf("result %s not stored: %v", key, err)
		}
	}
}

func TestCachedEvaluationIgnoresCallerEdits(t *testing.T) {
	t.Parallel()
	uc, sessions := newInteractors(t)
	ctx := context.Background()
	created, err := sessions.Create(ctx, processdto.CreateSessionInput{
		Customer: "CV Maju",
		Product:  "Gudeg",
		Operator: "budi",
		Readings: plateau(121.1, 121.1),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first, err := uc.Evaluate(ctx, dto.EvaluateInput{SessionID: created.ID})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	first.PerSampleF0[0] = 999
	first.CumulativeF0[1] = -5

	second, err := uc.Evaluate(ctx, dto.EvaluateInput{SessionID: created.ID})
	if err != nil {
		t.Fatalf("evaluate again: %v", err)
	}
	if !second.Cached {
		t.Fatalf("expected a cache hit")
	}
	if math.Abs(second.PerSampleF0[0]-1) > 1e-9 || second.CumulativeF0[1] < second.CumulativeF0[0] || second.CumulativeF0[1] != second.TotalF0 {
		t.Fatalf("cached curve was corrupted: per=%v cum=%v total=%v", second.PerSampleF0, second.CumulativeF0, second.TotalF0)
	}
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()
	uc, sessions := newInteractors(t)
	ctx := context.Background()

	if _, err := uc.Evaluate(ctx, dto.EvaluateInput{SessionID: "missing"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	empty, err := sessions.Create(ctx, processdto.CreateSessionInput{Customer: "c", Product: "p", Operator: "o"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := uc.Evaluate(ctx, dto.EvaluateInput{SessionID: empty.ID}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty session, got %v", err)
	}
	zero := 0.0
	if _, err := uc.Evaluate(ctx, dto.EvaluateInput{SessionID: empty.ID, Overrides: dto.ParameterOverrides{ZValue: &zero}}); !errors.Is(err, apperrors.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestComputeAndVerifyAdHocReadings(t *testing.T) {
	t.Parallel()
	uc, _ := newInteractors(t)
	ctx := context.Background()

	out, err := uc.Compute(ctx, dto.ComputeInput{Readings: plateau(89.9, 121.1, 131.1)})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if math.Abs(out.TotalF0-11) > 1e-9 || out.PerSampleF0[0] != 0 {
		t.Fatalf("unexpected compute output %+v", out)
	}
	if out.SessionID != "" || out.Sealed {
		t.Fatalf("ad-hoc compute must not touch sessions: %+v", out)
	}

	hold, err := uc.CheckHold(ctx, dto.ComputeInput{Readings: plateau(121.1, 121.1, 121.0, 121.1, 121.1, 121.1)})
	if err != nil {
		t.Fatalf("check hold: %v", err)
	}
	if !hold.Held || hold.RequiredSamples != 3 {
		t.Fatalf("unexpected hold output %+v", hold)
	}
	if uc.Defaults(ctx).Key != out.Parameters.Key {
		t.Fatalf("defaults key differs from compute key")
	}
}
