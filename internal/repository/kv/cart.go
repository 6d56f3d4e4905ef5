package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gomarketplace/cartstore/internal/domain"
	"github.com/gomarketplace/cartstore/internal/kvstore"
	"github.com/gomarketplace/cartstore/internal/repository"
	apperrors "github.com/gomarketplace/cartstore/pkg/errors"
)

// DefaultKey is the storage key the cart is mirrored under.
const DefaultKey = "cart:products"

// CartRepository implements repository.CartRepository by storing the whole
// cart as a JSON array under a single key.
type CartRepository struct {
	store kvstore.Store
	key   string
}

// NewCartRepository creates a repository writing to key in store. An empty
// key falls back to DefaultKey.
func NewCartRepository(store kvstore.Store, key string) *CartRepository {
	if key == "" {
		key = DefaultKey
	}
	return &CartRepository{
		store: store,
		key:   key,
	}
}

// Key returns the storage key in use.
func (r *CartRepository) Key() string { return r.key }

// Load reads and decodes the persisted cart.
func (r *CartRepository) Load(ctx context.Context) (domain.Items, bool, error) {
	raw, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Items{}, false, nil
		}
		return nil, false, fmt.Errorf("load cart: %w", err)
	}

	items, err := Decode(raw)
	if err != nil {
		return nil, true, err
	}
	return items, true, nil
}

// Save encodes and writes the complete cart.
func (r *CartRepository) Save(ctx context.Context, items domain.Items) error {
	raw, err := Encode(items)
	if err != nil {
		return err
	}

	if err := r.store.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Ping checks the underlying store.
func (r *CartRepository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// Encode renders items as a JSON array. A nil list encodes as "[]".
func Encode(items domain.Items) (string, error) {
	if items == nil {
		items = domain.Items{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal cart: %w", err)
	}
	return string(data), nil
}

// Decode parses a JSON array produced by Encode. A JSON null decodes to an
// empty list.
func Decode(raw string) (domain.Items, error) {
	var items domain.Items
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w: %w", repository.ErrCorrupt, err)
	}
	if items == nil {
		items = domain.Items{}
	}
	return items, nil
}
