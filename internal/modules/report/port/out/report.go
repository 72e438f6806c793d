package out

import (
	"context"

	"retort/internal/modules/report/domain"
)

// Renderer turns a validated report input into one artifact format.
type Renderer interface {
	Format() string
	Render(ctx context.Context, input domain.Input) (domain.Artifact, error)
}

type ManifestStore interface {
	Load(ctx context.Context) ([]domain.Manifest, error)
}

// PluginHost runs exporter plugins out of process.
type PluginHost interface {
	CheckLifecycle(ctx context.Context, manifest domain.Manifest) error
	GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error)
	Render(ctx context.Context, manifest domain.Manifest, format string, input domain.Input) (domain.Artifact, error)
}

// Sink stores rendered artifacts and reports where they went.
type Sink interface {
	Put(ctx context.Context, key string, artifact domain.Artifact) (string, error)
}

type Inspector interface {
	Inspect(ctx context.Context, path string) (domain.Inspection, error)
}
