package port

import "context"

// PostPublisher publishes text to a social-media account and returns the post ID.
type PostPublisher interface {
	Publish(ctx context.Context, text string) (string, error)
}
