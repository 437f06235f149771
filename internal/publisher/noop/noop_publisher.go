package noop

import (
	"context"
	"log"

	"github.com/google/uuid"

	"personashield/internal/port"
)

type noopPublisher struct{}

// NewNoopPublisher creates a PostPublisher that logs the post text instead of
// publishing it. Used when no publisher credentials are configured.
func NewNoopPublisher() port.PostPublisher {
	return &noopPublisher{}
}

func (p *noopPublisher) Publish(_ context.Context, text string) (string, error) {
	id := "noop-" + uuid.NewString()
	log.Printf("[NOOP PUBLISH] %s: %s", id, text)
	return id, nil
}
