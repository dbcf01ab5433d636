// Package metadata is the client's durable key/value store. It holds the
// session credential and the locally persisted chat style.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyToken       = "melvin_token"
	KeyTone        = "tone"
	KeyDetailLevel = "detail_level"
)

// Repository stores opaque values by key. Get returns (nil, nil) for a
// missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
