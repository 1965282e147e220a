package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/postimport/internal/domain/model"
)

// ErrMissingContent indicates a source row has no value for the content column,
// either because the header lacks the column or the row is too short.
var ErrMissingContent = errors.New("row has no content field")

// PostSource defines the driven port for reading posts to import.
// Next returns posts in source order and io.EOF once the source is exhausted.
// A non-EOF error is terminal; callers must not call Next again.
type PostSource interface {
	Next(ctx context.Context) (model.Post, error)
}
