// Package metadata is the local key/value store of the CLI. It keeps the
// registration receipt between runs.
package metadata

import "context"

// Repository reads and writes metadata entries. Get returns
// common.ErrNotFound for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error
}
