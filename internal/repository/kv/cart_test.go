package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomarketplace/cartstore/internal/domain"
	"github.com/gomarketplace/cartstore/internal/kvstore/memory"
	"github.com/gomarketplace/cartstore/internal/repository"
)

type failingStore struct {
	err error
}

func (f failingStore) Get(context.Context, string) (string, error) { return "", f.err }
func (f failingStore) Set(context.Context, string, string) error { return f.err }
func (f failingStore) Ping(context.Context) error { return f.err }

func sampleItems() domain.Items {
	return domain.Items{
		{ID: "p1", Title: "Sneaker", ImageURL: "https://img/p1.png", Price: 139.9, Quantity: 2, FormatPrice: "R$ 139,90"},
		{ID: "p2", Title: "Shirt", ImageURL: "https://img/p2.png", Price: 59.5, Quantity: 1},
	}
}

func TestNewCartRepository_DefaultKey(t *testing.T) {
	repo := NewCartRepository(memory.New(), "")
	assert.Equal(t, DefaultKey, repo.Key())

	repo = NewCartRepository(memory.New(), "@GoMarketPlace:product")
	assert.Equal(t, "@GoMarketPlace:product", repo.Key())
}

func TestCartRepository_LoadMissing(t *testing.T) {
	repo := NewCartRepository(memory.New(), "")

	items, found, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, items)
}

func TestCartRepository_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository(memory.New(), "")

	require.NoError(t, repo.Save(ctx, sampleItems()))

	items, found, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sampleItems(), items)
}

func TestCartRepository_SaveNilWritesEmptyArray(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewCartRepository(store, "")

	require.NoError(t, repo.Save(ctx, nil))

	raw, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	items, found, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCartRepository_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, DefaultKey, "{not json"))

	_, found, err := NewCartRepository(store, "").Load(ctx)
	require.Error(t, err)
	assert.True(t, found)
	assert.True(t, errors.Is(err, repository.ErrCorrupt))
}

func TestCartRepository_StoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	repo := NewCartRepository(failingStore{err: boom}, "")

	_, _, err := repo.Load(ctx)
	assert.ErrorIs(t, err, boom)

	err = repo.Save(ctx, sampleItems())
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, repo.Ping(ctx), boom)
}

func TestEncode_PreservesFieldNames(t *testing.T) {
	raw, err := Encode(domain.Items{{ID: "p1", Title: "Cap", ImageURL: "u", Price: 10, Quantity: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"p1","title":"Cap","image_url":"u","price":10,"quantity":1}]`, raw)
}

func TestDecode_ReadsMobileClientShape(t *testing.T) {
	raw := `[{"id":"1","title":"Tenis","image_url":"https://x/1.jpg","price":139.9,"formatPrice":"R$ 139,90","quantity":3}]`

	items, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "R$ 139,90", items[0].FormatPrice)
}

func TestDecode_Null(t *testing.T) {
	items, err := Decode("null")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
