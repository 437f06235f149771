package port

import "context"

// ArtifactStore persists rendered scan artifacts.
type ArtifactStore interface {
	// Save writes content under name and returns the location it was written to.
	Save(ctx context.Context, name string, content []byte) (string, error)
}
