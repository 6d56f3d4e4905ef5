package repository

import (
	"context"
	"errors"

	"github.com/gomarketplace/cartstore/internal/domain"
)

// ErrCorrupt marks a persisted cart that exists but cannot be decoded.
var ErrCorrupt = errors.New("persisted cart is corrupt")

// CartRepository defines persistence of the cart mirror.
type CartRepository interface {
	// Load reads the persisted cart. found is false when nothing was ever saved.
	Load(ctx context.Context) (items domain.Items, found bool, err error)

	// Save overwrites the persisted cart with the complete list.
	Save(ctx context.Context, items domain.Items) error

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
