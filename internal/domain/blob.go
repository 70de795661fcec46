package domain

import (
	"context"
	"io"
)

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	// Put uploads data in a single request. Suitable for small objects such
	// as snapshot JSON.
	Put(ctx context.Context, path string, data io.Reader, contentType string) error

	// PutMultipart uploads data via multipart upload, splitting it into
	// parts of partSize bytes. Used for large history exports.
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
