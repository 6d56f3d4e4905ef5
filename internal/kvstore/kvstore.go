// Package kvstore defines the string key-value contract the cart mirror is
// written to, and hosts its backends.
package kvstore

import "context"

// Store is a string-keyed, string-valued persistent store.
//
// Get returns an error wrapping apperrors.ErrNotFound when the key has never
// been written. Set overwrites any previous value.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
}
