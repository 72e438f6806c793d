package out

import (
	"context"
	"io"

	"retort/internal/modules/process/domain"
)

// SessionStore persists sessions. Create assigns the session identity.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session) (string, error)
	AppendReadings(ctx context.Context, sessionID string, readings []domain.Reading) error
	Get(ctx context.Context, sessionID string) (domain.Session, error)
	List(ctx context.Context) ([]domain.Session, error)
	SaveResult(ctx context.Context, result domain.StoredResult) error
	LoadResult(ctx context.Context, sessionID, paramsKey string) (domain.StoredResult, error)
	ListResults(ctx context.Context, sessionID string) ([]domain.StoredResult, error)
}

// RecordWriter keeps a human-readable audit copy of sealed sessions.
type RecordWriter interface {
	WriteRecord(ctx context.Context, session domain.Session, results []domain.StoredResult) (string, error)
}

type ReadingDecoder interface {
	Format() string
	Decode(ctx context.Context, r io.Reader) (domain.ImportBatch, error)
}
