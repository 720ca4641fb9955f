package blobstore

import (
	"context"
	"io"
)

// Store persists arbitrary byte streams under a key and returns a publicly
// resolvable URL for the stored object. Put consumes the reader as bytes
// become available, so a producer can stream into it through a pipe.
//
// Implementations must not leave a partially written object visible when Put
// returns an error.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
}
