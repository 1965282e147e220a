package driven

import (
	"context"
	"fmt"
)

// UnexpectedStatusError is returned by PostWriter implementations when the
// service answers with anything other than 201 Created.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("failed to insert post: %d - %s", e.StatusCode, e.Body)
}

// PostWriter defines the driven port for creating posts on the remote service.
type PostWriter interface {
	// CreatePost submits content using token as the bearer credential.
	// Returns nil only when the service confirms creation.
	CreatePost(ctx context.Context, token, content string) error
}
