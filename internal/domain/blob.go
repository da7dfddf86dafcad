package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// Archiver moves settled markets' event history to cold storage.
type Archiver interface {
	// ArchiveSettled archives every market resolved before the cutoff and
	// returns the number of markets archived.
	ArchiveSettled(ctx context.Context, before time.Time) (int64, error)
}
