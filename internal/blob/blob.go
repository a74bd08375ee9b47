package blob

import (
	"context"
)

// Store is a versioned blob store. Blobs are whole JSON documents addressed
// by a path relative to the state root, there is no partial patching at this
// layer.
//
// Every read returns an opaque version token for the content it saw. Writers
// pass that token back so the store can detect that the blob changed
// underneath them. There is no content-level locking, concurrent writers race
// between read and write and one of them gets a conflict.
type Store interface {
	// Read returns the blob content and its current version token.
	// Returns model.ErrNotFound (wrapped) if the blob does not exist.
	Read(ctx context.Context, path string) (content []byte, versionToken string, err error)

	// Write stores the blob and returns the new version token.
	//
	// With an empty expectedToken the blob must not exist yet, otherwise
	// model.ErrAlreadyExists is returned. With a non-empty expectedToken the
	// write only succeeds if the blob still has that token, otherwise
	// model.ErrConflict is returned.
	Write(ctx context.Context, path string, content []byte, expectedToken string) (versionToken string, err error)
}
