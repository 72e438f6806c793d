package out

import (
	"context"

	"retort/internal/modules/lethality/domain"
)

// ResultCache memoizes evaluations keyed by session, parameter key and readings digest.
type ResultCache interface {
	Get(ctx context.Context, key string) (domain.Result, bool, error)
	Set(ctx context.Context, key string, result domain.Result) error
}
