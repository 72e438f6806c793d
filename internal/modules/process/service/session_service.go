package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"retort/internal/modules/process/domain"
	processout "retort/internal/modules/process/port/out"
	"retort/internal/platform/clock"
	apperrors "retort/internal/platform/errors"
)

// Policy carries site rules that sit outside the data model.
type Policy struct {
	Operators   []string
	MaxReadings int
}

type SessionService struct {
	clock       clock.Clock
	store       processout.SessionStore
	records     processout.RecordWriter
	decoders    map[string]processout.ReadingDecoder
	operators   map[string]struct{}
	maxReadings int
	logger      hclog.Logger

	// locks serializes mutation of one session's reading sequence.
	locks sync.Map
}

func NewSessionService(clock clock.Clock, store processout.SessionStore, records processout.RecordWriter, decoders []processout.ReadingDecoder, policy Policy, logger hclog.Logger) *SessionService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	byFormat := make(map[string]processout.ReadingDecoder, len(decoders))
	for _, d := range decoders {
		byFormat[d.Format()] = d
	}
	operators := make(map[string]struct{}, len(policy.Operators))
	for _, op := range policy.Operators {
		if op = strings.ToLower(strings.TrimSpace(op)); op != "" {
			operators[op] = struct{}{}
		}
	}
	return &SessionService{
		clock:       clock,
		store:       store,
		records:     records,
		decoders:    byFormat,
		operators:   operators,
		maxReadings: policy.MaxReadings,
		logger:      logger,
	}
}

func (s *SessionService) Create(ctx context.Context, meta domain.Metadata, readings []domain.Reading) (domain.Session, error) {
	if meta.PressureUnit == "" {
		meta.PressureUnit = domain.PressureBar
	}
	if err := meta.Validate(); err != nil {
		return domain.Session{}, err
	}
	if len(s.operators) > 0 {
		if _, ok := s.operators[strings.ToLower(strings.TrimSpace(meta.Operator))]; !ok {
			return domain.Session{}, fmt.Errorf("%w: operator %q is not registered", apperrors.ErrInvalidInput, meta.Operator)
		}
	}
	now := s.clock.Now()
	if meta.ProcessDate.IsZero() {
		meta.ProcessDate = now
	}
	session := domain.Session{Metadata: meta, CreatedAt: now}
	if len(readings) > 0 {
		if err := session.Append(readings...); err != nil {
			return domain.Session{}, err
		}
		if err := s.checkCapacity(0, len(readings)); err != nil {
			return domain.Session{}, err
		}
	}
	id, err := s.store.Create(ctx, session)
	if err != nil {
		return domain.Session{}, err
	}
	session.ID = id
	s.logger.Info("session created", "session", id, "customer", meta.Customer, "operator", meta.Operator, "readings", len(readings))
	return session, nil
}

func (s *SessionService) Append(ctx context.Context, sessionID string, readings []domain.Reading) (domain.Session, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	before := len(session.Readings)
	if err := session.Append(readings...); err != nil {
		return domain.Session{}, err
	}
	if err := s.checkCapacity(before, len(readings)); err != nil {
		return domain.Session{}, err
	}
	if err := s.store.AppendReadings(ctx, sessionID, readings); err != nil {
		return domain.Session{}, err
	}
	s.logger.Debug("readings appended", "session", sessionID, "count", len(readings), "total", len(session.Readings))
	return session, nil
}

// Import decodes a bulk file and appends the rows that parsed. Rows that fail
// are reported in the batch and do not stop the others.
func (s *SessionService) Import(ctx context.Context, sessionID, path, format string) (domain.Session, domain.ImportBatch, error) {
	if strings.TrimSpace(path) == "" {
		return domain.Session{}, domain.ImportBatch{}, fmt.Errorf("%w: import path is required", apperrors.ErrInvalidInput)
	}
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	decoder, ok := s.decoders[format]
	if !ok {
		return domain.Session{}, domain.ImportBatch{}, fmt.Errorf("%w: unsupported import format %q", apperrors.ErrInvalidInput, format)
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.Session{}, domain.ImportBatch{}, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	batch, err := decoder.Decode(ctx, f)
	if err != nil {
		return domain.Session{}, batch, err
	}
	if len(batch.Readings) == 0 {
		return domain.Session{}, batch, fmt.Errorf("%w: %s contains no usable readings", apperrors.ErrInvalidInput, filepath.Base(path))
	}
	session, err := s.Append(ctx, sessionID, batch.Readings)
	if err != nil {
		return domain.Session{}, batch, err
	}
	s.logger.Info("readings imported", "session", sessionID, "file", filepath.Base(path), "imported", len(batch.Readings), "failed", batch.Failed)
	return session, batch, nil
}

func (s *SessionService) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.Session{}, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	return s.store.Get(ctx, sessionID)
}

func (s *SessionService) List(ctx context.Context) ([]domain.Session, error) {
	return s.store.List(ctx)
}

// Amend copies a session into a new editable one. The source stays untouched.
func (s *SessionService) Amend(ctx context.Context, sessionID string) (domain.Session, error) {
	original, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	amended := original.Amend("", s.clock.Now())
	id, err := s.store.Create(ctx, amended)
	if err != nil {
		return domain.Session{}, err
	}
	amended.ID = id
	s.logger.Info("session amended", "session", id, "amends", sessionID)
	return amended, nil
}

// SaveResult persists a verdict and seals the session. The result must have
// been computed from the readings currently stored for the session.
func (s *SessionService) SaveResult(ctx context.Context, result domain.StoredResult) (domain.StoredResult, error) {
	if err := result.Validate(); err != nil {
		return domain.StoredResult{}, err
	}
	unlock := s.lock(result.SessionID)
	defer unlock()

	session, err := s.store.Get(ctx, result.SessionID)
	if err != nil {
		return domain.StoredResult{}, err
	}
	if result.ReadingsDigest != domain.DigestReadings(session.Readings) || result.ReadingCount != len(session.Readings) {
		return domain.StoredResult{}, fmt.Errorf("%w: %s", apperrors.ErrResultMismatch, result.SessionID)
	}
	if result.ComputedAt.IsZero() {
		result.ComputedAt = s.clock.Now()
	}
	if err := s.store.SaveResult(ctx, result); err != nil {
		return domain.StoredResult{}, err
	}
	s.logger.Info("result sealed", "session", result.SessionID, "params", result.ParamsKey, "total_f0", result.TotalF0, "holding", result.HoldingVerdict)

	if s.records != nil {
		if err := s.writeRecord(ctx, result.SessionID); err != nil {
			s.logger.Warn("batch record not written", "session", result.SessionID, "error", err)
		}
	}
	return result, nil
}

func (s *SessionService) LoadResult(ctx context.Context, sessionID, paramsKey string) (domain.StoredResult, error) {
	return s.store.LoadResult(ctx, sessionID, paramsKey)
}

func (s *SessionService) writeRecord(ctx context.Context, sessionID string) error {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	results, err := s.store.ListResults(ctx, sessionID)
	if err != nil {
		return err
	}
	path, err := s.records.WriteRecord(ctx, session, results)
	if err != nil {
		return err
	}
	s.logger.Debug("batch record written", "session", sessionID, "path", path)
	return nil
}

func (s *SessionService) checkCapacity(existing, adding int) error {
	if s.maxReadings > 0 && existing+adding > s.maxReadings {
		return fmt.Errorf("%w: session would hold %d readings, limit is %d", apperrors.ErrInvalidInput, existing+adding, s.maxReadings)
	}
	return nil
}

func (s *SessionService) lock(sessionID string) func() {
	mu, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
