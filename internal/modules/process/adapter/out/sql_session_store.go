package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"retort/internal/modules/process/domain"
	processout "retort/internal/modules/process/port/out"
	apperrors "retort/internal/platform/errors"
	"retort/internal/platform/id"
	"retort/internal/platform/tx"
)

type dialect struct {
	name string
	real string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

var (
	sqliteDialect   = dialect{name: "sqlite", real: "REAL"}
	postgresDialect = dialect{name: "postgres", real: "DOUBLE PRECISION", numbered: true}
)

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) schema() []string {
	return []string{
		`
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  amends_id TEXT NOT NULL DEFAULT '',
  customer TEXT NOT NULL,
  product TEXT NOT NULL,
  contact TEXT NOT NULL DEFAULT '',
  process_date TEXT NOT NULL,
  batch_label TEXT NOT NULL DEFAULT '',
  operator TEXT NOT NULL,
  pressure_unit TEXT NOT NULL,
  basket1 INTEGER NOT NULL,
  basket2 INTEGER NOT NULL,
  basket3 INTEGER NOT NULL,
  initial_count INTEGER NOT NULL,
  final_count INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  sealed_at TEXT,
  last_params_key TEXT,
  last_total_f0 ` + d.real + `,
  last_holding INTEGER,
  last_computed_at TEXT
)`,
		`
CREATE TABLE IF NOT EXISTS readings (
  session_id TEXT NOT NULL REFERENCES sessions(id),
  sequence_index INTEGER NOT NULL,
  temperature_c ` + d.real + ` NOT NULL,
  pressure ` + d.real + ` NOT NULL,
  annotation TEXT NOT NULL DEFAULT '',
  recorded_at TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (session_id, sequence_index)
)`,
		`
CREATE TABLE IF NOT EXISTS results (
  session_id TEXT NOT NULL REFERENCES sessions(id),
  params_key TEXT NOT NULL,
  readings_digest TEXT NOT NULL,
  total_f0 ` + d.real + ` NOT NULL,
  holding_verdict INTEGER NOT NULL,
  reading_count INTEGER NOT NULL,
  computed_at TEXT NOT NULL,
  PRIMARY KEY (session_id, params_key)
)`,
	}
}

// SQLSessionStore implements SessionStore over database/sql for sqlite and postgres.
type SQLSessionStore struct {
	db      *sql.DB
	tx      *tx.SQLManager
	ids     id.Generator
	dialect dialect
}

var _ processout.SessionStore = (*SQLSessionStore)(nil)

func newSQLSessionStore(db *sql.DB, d dialect, ids id.Generator) *SQLSessionStore {
	return &SQLSessionStore{db: db, tx: tx.NewSQLManager(db), ids: ids, dialect: d}
}

func (s *SQLSessionStore) ensureSchema(ctx context.Context) error {
	for _, ddl := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create %s schema: %w", s.dialect.name, err)
		}
	}
	return nil
}

func (s *SQLSessionStore) Close() error {
	return s.db.Close()
}

func (s *SQLSessionStore) Create(ctx context.Context, session domain.Session) (string, error) {
	sessionID := s.ids.New()
	m := session.Metadata
	err := s.tx.Within(ctx, func(ctx context.Context) error {
		const stmt = `
INSERT INTO sessions (id, amends_id, customer, product, contact, process_date, batch_label, operator, pressure_unit,
  basket1, basket2, basket3, initial_count, final_count, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := s.tx.Conn(ctx).ExecContext(ctx, s.dialect.rebind(stmt),
			sessionID,
			session.AmendsID,
			m.Customer,
			m.Product,
			m.Contact,
			formatTime(m.ProcessDate),
			m.BatchLabel,
			m.Operator,
			string(m.PressureUnit),
			m.Baskets[0],
			m.Baskets[1],
			m.Baskets[2],
			m.InitialCount,
			m.FinalCount,
			formatTime(session.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return s.insertReadings(ctx, sessionID, session.Readings)
	})
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (s *SQLSessionStore) AppendReadings(ctx context.Context, sessionID string, readings []domain.Reading) error {
	return s.tx.Within(ctx, func(ctx context.Context) error {
		var sealed sql.NullString
		row := s.tx.Conn(ctx).QueryRowContext(ctx, s.dialect.rebind(`SELECT sealed_at FROM sessions WHERE id = ?`), sessionID)
		if err := row.Scan(&sealed); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
			}
			return fmt.Errorf("load session state: %w", err)
		}
		if sealed.Valid && sealed.String != "" {
			return fmt.Errorf("%w: %s", apperrors.ErrSessionSealed, sessionID)
		}
		return s.insertReadings(ctx, sessionID, readings)
	})
}

func (s *SQLSessionStore) insertReadings(ctx context.Context, sessionID string, readings []domain.Reading) error {
	const stmt = `
INSERT INTO readings (session_id, sequence_index, temperature_c, pressure, annotation, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)`
	query := s.dialect.rebind(stmt)
	for _, r := range readings {
		_, err := s.tx.Conn(ctx).ExecContext(ctx, query,
			sessionID,
			r.SequenceIndex,
			r.TemperatureC,
			r.Pressure,
			r.Annotation,
			formatTime(r.RecordedAt),
		)
		if err != nil {
			return fmt.Errorf("insert reading %d: %w", r.SequenceIndex, err)
		}
	}
	return nil
}

const sessionColumns = `id, amends_id, customer, product, contact, process_date, batch_label, operator, pressure_unit,
  basket1, basket2, basket3, initial_count, final_count, created_at, sealed_at,
  last_params_key, last_total_f0, last_holding, last_computed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		session                         domain.Session
		processDate, createdAt, unit    string
		sealedAt, lastKey, lastComputed sql.NullString
		lastTotal                       sql.NullFloat64
		lastHolding                     sql.NullInt64
	)
	m := &session.Metadata
	err := row.Scan(
		&session.ID, &session.AmendsID, &m.Customer, &m.Product, &m.Contact, &processDate, &m.BatchLabel, &m.Operator, &unit,
		&m.Baskets[0], &m.Baskets[1], &m.Baskets[2], &m.InitialCount, &m.FinalCount, &createdAt, &sealedAt,
		&lastKey, &lastTotal, &lastHolding, &lastComputed,
	)
	if err != nil {
		return domain.Session{}, err
	}
	m.PressureUnit = domain.PressureUnit(unit)
	m.ProcessDate = parseTime(processDate)
	session.CreatedAt = parseTime(createdAt)
	if sealedAt.Valid {
		session.SealedAt = parseTime(sealedAt.String)
	}
	if lastKey.Valid && lastKey.String != "" {
		session.Last = &domain.Verdict{
			ParamsKey:      lastKey.String,
			TotalF0:        lastTotal.Float64,
			HoldingVerdict: lastHolding.Int64 == 1,
			ComputedAt:     parseTime(lastComputed.String),
		}
	}
	return session, nil
}

func (s *SQLSessionStore) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	conn := s.tx.Conn(ctx)
	row := conn.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), sessionID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
		}
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	readings, err := s.loadReadings(ctx, `WHERE session_id = ?`, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	session.Readings = readings[sessionID]
	return session, nil
}

// List returns every session with its readings, newest first.
func (s *SQLSessionStore) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.tx.Conn(ctx).QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := []domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	readings, err := s.loadReadings(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Readings = readings[out[i].ID]
	}
	return out, nil
}

func (s *SQLSessionStore) loadReadings(ctx context.Context, where string, args ...any) (map[string][]domain.Reading, error) {
	query := `SELECT session_id, sequence_index, temperature_c, pressure, annotation, recorded_at FROM readings ` + where + ` ORDER BY session_id ASC, sequence_index ASC`
	rows, err := s.tx.Conn(ctx).QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("load readings: %w", err)
	}
	defer rows.Close()

	out := map[string][]domain.Reading{}
	for rows.Next() {
		var sessionID, recordedAt string
		r := domain.Reading{}
		if err := rows.Scan(&sessionID, &r.SequenceIndex, &r.TemperatureC, &r.Pressure, &r.Annotation, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.RecordedAt = parseTime(recordedAt)
		out[sessionID] = append(out[sessionID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}

// SaveResult stores a result row and seals the session. A row already stored
// under the same parameter key is left as it is.
func (s *SQLSessionStore) SaveResult(ctx context.Context, result domain.StoredResult) error {
	return s.tx.Within(ctx, func(ctx context.Context) error {
		conn := s.tx.Conn(ctx)
		const insert = `
INSERT INTO results (session_id, params_key, readings_digest, total_f0, holding_verdict, reading_count, computed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, params_key) DO NOTHING`
		computedAt := formatTime(result.ComputedAt)
		if _, err := conn.ExecContext(ctx, s.dialect.rebind(insert),
			result.SessionID,
			result.ParamsKey,
			result.ReadingsDigest,
			result.TotalF0,
			boolToInt(result.HoldingVerdict),
			result.ReadingCount,
			computedAt,
		); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		const seal = `
UPDATE sessions SET
  sealed_at = COALESCE(sealed_at, ?),
  last_params_key = ?,
  last_total_f0 = ?,
  last_holding = ?,
  last_computed_at = ?
WHERE id = ?`
		res, err := conn.ExecContext(ctx, s.dialect.rebind(seal),
			computedAt,
			result.ParamsKey,
			result.TotalF0,
			boolToInt(result.HoldingVerdict),
			computedAt,
			result.SessionID,
		)
		if err != nil {
			return fmt.Errorf("seal session: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, result.SessionID)
		}
		return nil
	})
}

const resultColumns = `session_id, params_key, readings_digest, total_f0, holding_verdict, reading_count, computed_at`

func scanResult(row rowScanner) (domain.StoredResult, error) {
	var (
		result     domain.StoredResult
		holding    int
		computedAt string
	)
	if err := row.Scan(&result.SessionID, &result.ParamsKey, &result.ReadingsDigest, &result.TotalF0, &holding, &result.ReadingCount, &computedAt); err != nil {
		return domain.StoredResult{}, err
	}
	result.HoldingVerdict = holding == 1
	result.ComputedAt = parseTime(computedAt)
	return result, nil
}

func (s *SQLSessionStore) LoadResult(ctx context.Context, sessionID, paramsKey string) (domain.StoredResult, error) {
	row := s.tx.Conn(ctx).QueryRowContext(ctx, s.dialect.rebind(`SELECT `+resultColumns+` FROM results WHERE session_id = ? AND params_key = ?`), sessionID, paramsKey)
	result, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StoredResult{}, fmt.Errorf("%w: result %s/%s", apperrors.ErrNotFound, sessionID, paramsKey)
		}
		return domain.StoredResult{}, fmt.Errorf("load result: %w", err)
	}
	return result, nil
}

func (s *SQLSessionStore) ListResults(ctx context.Context, sessionID string) ([]domain.StoredResult, error) {
	rows, err := s.tx.Conn(ctx).QueryContext(ctx, s.dialect.rebind(`SELECT `+resultColumns+` FROM results WHERE session_id = ? ORDER BY computed_at ASC, params_key ASC`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()
	out := []domain.StoredResult{}
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
