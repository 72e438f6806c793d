package service

import (
	"context"
	"fmt"

	hclog "github.com/hashicorp/go-hclog"

	"retort/internal/modules/lethality/domain"
	"retort/internal/modules/lethality/dto"
	lethalityout "retort/internal/modules/lethality/port/out"
	processdomain "retort/internal/modules/process/domain"
)

type LethalityService struct {
	defaults domain.Parameters
	hold     domain.HoldParameters
	cache    lethalityout.ResultCache
	logger   hclog.Logger
}

func NewLethalityService(defaults domain.Parameters, hold domain.HoldParameters, cache lethalityout.ResultCache, logger hclog.Logger) *LethalityService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &LethalityService{defaults: defaults, hold: hold, cache: cache, logger: logger}
}

func (s *LethalityService) Defaults() (domain.Parameters, domain.HoldParameters) {
	return s.defaults, s.hold
}

// Resolve applies overrides to the configured defaults and validates the outcome.
func (s *LethalityService) Resolve(o dto.ParameterOverrides) (domain.Parameters, domain.HoldParameters, error) {
	p, h := s.defaults, s.hold
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.ReferenceTemperature, o.ReferenceTemperature)
	set(&p.ZValue, o.ZValue)
	set(&p.ActivationThreshold, o.ActivationThreshold)
	set(&p.IntervalMinutes, o.IntervalMinutes)
	set(&h.MinimumTemperature, o.MinimumHoldTemperature)
	set(&h.MinimumDurationMinutes, o.MinimumHoldMinutes)
	if err := p.Validate(); err != nil {
		return domain.Parameters{}, domain.HoldParameters{}, err
	}
	if _, err := h.RequiredSamples(p.IntervalMinutes); err != nil {
		return domain.Parameters{}, domain.HoldParameters{}, err
	}
	return p, h, nil
}

// CacheKey names a session evaluation. The digest keeps amended readings from
// hitting a stale entry.
func CacheKey(sessionID, paramsKey, digest string) string {
	return fmt.Sprintf("retort:result:%s:%s:%s", sessionID, paramsKey, digest)
}

// EvaluateSession returns the cached evaluation when present, computing and
// caching it otherwise. Cache errors never fail the evaluation.
func (s *LethalityService) EvaluateSession(ctx context.Context, sessionID string, readings []processdomain.Reading, p domain.Parameters, h domain.HoldParameters) (domain.Result, bool, error) {
	key := CacheKey(sessionID, domain.Key(p, h), processdomain.DigestReadings(readings))
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("result cache read failed", "key", key, "error", err)
		case ok:
			s.logger.Debug("result cache hit", "key", key)
			return cached, true, nil
		}
	}
	result, err := domain.Evaluate(readings, p, h)
	if err != nil {
		return domain.Result{}, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.logger.Warn("result cache write failed", "key", key, "error", err)
		}
	}
	return result, false, nil
}

func (s *LethalityService) Evaluate(readings []processdomain.Reading, p domain.Parameters, h domain.HoldParameters) (domain.Result, error) {
	return domain.Evaluate(readings, p, h)
}

func (s *LethalityService) CheckHold(readings []processdomain.Reading, p domain.Parameters, h domain.HoldParameters) (bool, error) {
	return domain.CheckHoldingTime(readings, h, p.IntervalMinutes)
}
