package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"personashield/internal/port"
)

type artifactStore struct {
	dir string
}

// NewArtifactStore creates an ArtifactStore that writes into dir, creating it
// on first use.
func NewArtifactStore(dir string) port.ArtifactStore {
	return &artifactStore{dir: dir}
}

// NewJobArtifactStores returns a constructor for per-job stores, each writing
// into <root>/<job ID>, so jobs with the same source file name never share
// an artifact path.
func NewJobArtifactStores(root string) func(jobID uuid.UUID) port.ArtifactStore {
	return func(jobID uuid.UUID) port.ArtifactStore {
		return NewArtifactStore(filepath.Join(root, jobID.String()))
	}
}

func (s *artifactStore) Save(_ context.Context, name string, content []byte) (path string, err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path = filepath.Join(s.dir, filepath.Base(name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating artifact: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing artifact: %w", cerr)
		}
	}()

	if _, err := f.Write(content); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return path, nil
}
