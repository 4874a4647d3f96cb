package artifact

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

// ErrArtifactNotFound is returned when a locator does not resolve to stored bytes
var ErrArtifactNotFound = errors.New("artifact not found")

// Store persists rendered reports keyed by job id.
//
// Locators returned by Save are opaque to callers and only meaningful to the
// Store that produced them.
type Store interface {
	Save(ctx context.Context, jobID uuid.UUID, data []byte) (string, error)
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	Delete(ctx context.Context, locator string) error
}
