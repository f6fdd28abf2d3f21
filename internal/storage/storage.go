// Package storage provides the local key-value blob persistence the draft
// subsystem writes through. Each logical namespace is a single serialized
// JSON blob under a fixed key.
package storage

import "context"

// Fixed storage keys. Each holds one serialized blob.
const (
	KeyDrafts   = "flra_drafts"
	KeyArchive  = "flra_archive"
	KeyVersions = "flra_versions"
)

// BlobStore is durable, synchronous local storage of serialized blobs.
type BlobStore interface {
	// Get returns the blob for key. The bool reports whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes the blob for key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
