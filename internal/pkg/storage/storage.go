package storage

import (
	"context"
	"io"
)

// ObjectStore is the minimal interface for the audit object backend.
// Archival is append-only; there is no delete path.
type ObjectStore interface {
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error
}
