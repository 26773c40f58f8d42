package storage

import (
	"context"
	"errors"
)

// DefaultKey is the slot the tally has always been kept under.
const DefaultKey = "mtl_emilywu_votes_v1"

var ErrNotFound = errors.New("not found")

// Slot is a durable key-value store holding raw string values.
// Set fully overwrites any previous value.
type Slot interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
