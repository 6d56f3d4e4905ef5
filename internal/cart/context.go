package cart

import (
	"context"

	apperrors "github.com/gomarketplace/cartstore/pkg/errors"
)

// ScopeMessage is the message of the usage error returned when the cart is
// requested outside a provisioning scope.
const ScopeMessage = "cart store must be used within a provisioning scope"

type storeKey struct{}

// NotOpenedMessage is the message of the usage error returned when the cart
// is mutated before Open has started the initial load.
const NotOpenedMessage = "cart store must be opened before it is modified"

func errOutsideScope() error {
	return apperrors.Usage(ScopeMessage)
}

func errNotOpened() error {
	return apperrors.Usage(NotOpenedMessage)
}

// NewContext returns a context carrying s. Everything that receives the
// returned context is inside the store's provisioning scope until s is
// closed.
func NewContext(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, s)
}

// FromContext returns the store provided by NewContext. It fails with a
// usage error when no store was provided or the store has been closed.
func FromContext(ctx context.Context) (*Store, error) {
	s, ok := ctx.Value(storeKey{}).(*Store)
	if !ok || s == nil || s.Closed() {
		return nil, errOutsideScope()
	}
	return s, nil
}

// MustFromContext is like FromContext but panics with the usage error.
func MustFromContext(ctx context.Context) *Store {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
