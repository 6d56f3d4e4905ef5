package domain

import (
	"slices"

	apperrors "github.com/gomarketplace/cartstore/pkg/errors"
	"github.com/gomarketplace/cartstore/pkg/validator"
)

// CartItem represents a single product line in the cart. Title, ImageURL,
// Price and FormatPrice are carried as-is; only ID and Quantity have meaning
// to the cart.
type CartItem struct {
	ID          string  `json:"id" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	ImageURL    string  `json:"image_url"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity" validate:"gte=1"`
	FormatPrice string  `json:"formatPrice,omitempty"`
}

// NewCartItem builds a validated item with a quantity of one.
func NewCartItem(id, title, imageURL string, price float64) (CartItem, error) {
	item := CartItem{
		ID:       id,
		Title:    title,
		ImageURL: imageURL,
		Price:    price,
		Quantity: 1,
	}
	if err := item.Validate(); err != nil {
		return CartItem{}, err
	}
	return item, nil
}

// Validate reports missing required fields or a non-positive quantity as an
// invalid-input error.
func (i CartItem) Validate() error {
	if err := validator.Validate(i); err != nil {
		return apperrors.InvalidInput("invalid cart item: " + err.Error())
	}
	return nil
}

// Items is the ordered cart content. Order is display order.
//
// The With* methods never modify the receiver; each returns a fresh backing
// array so a previously handed-out Items value stays untouched.
type Items []CartItem

// IndexByID returns the position of the item with the given id, or -1.
func (it Items) IndexByID(id string) int {
	return slices.IndexFunc(it, func(c CartItem) bool { return c.ID == id })
}

// IndexOf returns the position of an item equal to c in every field, or -1.
func (it Items) IndexOf(c CartItem) int {
	return slices.Index(it, c)
}

// ItemCount returns the total number of units across all lines.
func (it Items) ItemCount() int {
	var count int
	for _, item := range it {
		count += item.Quantity
	}
	return count
}

// Clone returns a copy with its own backing array.
func (it Items) Clone() Items {
	if it == nil {
		return Items{}
	}
	return slices.Clone(it)
}

// WithAppended returns a copy with c added at the end.
func (it Items) WithAppended(c CartItem) Items {
	out := make(Items, len(it), len(it)+1)
	copy(out, it)
	return append(out, c)
}

// WithQuantity returns a copy where the line at idx has the given quantity.
func (it Items) WithQuantity(idx, quantity int) Items {
	out := it.Clone()
	out[idx].Quantity = quantity
	return out
}

// WithoutIndex returns a copy with the line at idx removed.
func (it Items) WithoutIndex(idx int) Items {
	out := make(Items, 0, len(it)-1)
	out = append(out, it[:idx]...)
	return append(out, it[idx+1:]...)
}

// HasDuplicateIDs reports whether two lines share an id.
func (it Items) HasDuplicateIDs() bool {
	seen := make(map[string]struct{}, len(it))
	for _, item := range it {
		if _, ok := seen[item.ID]; ok {
			return true
		}
		seen[item.ID] = struct{}{}
	}
	return false
}
