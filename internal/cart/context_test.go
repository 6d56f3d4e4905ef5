package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomarketplace/cartstore/internal/kvstore/memory"
	"github.com/gomarketplace/cartstore/internal/repository/kv"
	apperrors "github.com/gomarketplace/cartstore/pkg/errors"
)

func TestFromContext_InsideScope(t *testing.T) {
	s, _ := newMemoryStore(t)
	ctx := NewContext(context.Background(), s)

	got, err := FromContext(ctx)

	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestFromContext_OutsideScope(t *testing.T) {
	_, err := FromContext(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUsage)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ScopeMessage, appErr.Message)
	assert.Equal(t, "USAGE_ERROR", appErr.Code)
}

func TestFromContext_NilStore(t *testing.T) {
	ctx := NewContext(context.Background(), nil)

	_, err := FromContext(ctx)

	assert.ErrorIs(t, err, apperrors.ErrUsage)
}

func TestFromContext_AfterClose(t *testing.T) {
	s := New(kv.NewCartRepository(memory.New(), ""), newTestLogger())
	s.Open(context.Background())
	ctx := NewContext(context.Background(), s)
	s.Close()

	_, err := FromContext(ctx)

	assert.ErrorIs(t, err, apperrors.ErrUsage)
}

func TestMustFromContext(t *testing.T) {
	s, _ := newMemoryStore(t)

	assert.Same(t, s, MustFromContext(NewContext(context.Background(), s)))

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		MustFromContext(context.Background())
	}()

	require.NotNil(t, recovered, "MustFromContext should panic outside a scope")
	err, ok := recovered.(error)
	require.True(t, ok, "panic value should be an error, got %T", recovered)
	assert.ErrorIs(t, err, apperrors.ErrUsage)
	assert.Equal(t, errOutsideScope().Error(), err.Error())
}

func TestParsePersistMode(t *testing.T) {
	tests := []struct {
		in      string
		want    PersistMode
		wantErr bool
	}{
		{"", PersistStrict, false},
		{"strict", PersistStrict, false},
		{" STRICT ", PersistStrict, false},
		{"best_effort", PersistBestEffort, false},
		{"best-effort", PersistBestEffort, false},
		{"eventual", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePersistMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMatchMode(t *testing.T) {
	tests := []struct {
		in      string
		want    MatchMode
		wantErr bool
	}{
		{"", MatchByID, false},
		{"id", MatchByID, false},
		{"Value", MatchByValue, false},
		{"title", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMatchMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeStrings(t *testing.T) {
	assert.Equal(t, "strict", PersistStrict.String())
	assert.Equal(t, "best_effort", PersistBestEffort.String())
	assert.Equal(t, "id", MatchByID.String())
	assert.Equal(t, "value", MatchByValue.String())
	assert.Equal(t, "MatchMode(7)", MatchMode(7).String())
}
