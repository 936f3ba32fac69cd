package port

import (
	"context"
	"errors"
)

// ErrIdempotencyKeyExists is returned by Save when another operation already recorded the key.
var ErrIdempotencyKeyExists = errors.New("idempotency key already recorded")

// IdempotencyStore checks and records operation idempotency keys.
type IdempotencyStore interface {
	// Check returns true if the key was already processed, along with the cached response.
	Check(ctx context.Context, key string) (bool, []byte, error)
	// Save records a processed key with its response payload.
	// It returns ErrIdempotencyKeyExists when the key is still recorded.
	Save(ctx context.Context, key string, data []byte) error
}
