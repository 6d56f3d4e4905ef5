package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gomarketplace/cartstore/pkg/errors"
	"github.com/gomarketplace/cartstore/pkg/httputil"
)

func serveRecovered(t *testing.T, fn http.HandlerFunc) (*httptest.ResponseRecorder, httputil.Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	Recovery(discardLogger())(fn).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return rec, resp
}

func TestRecovery_StringPanic(t *testing.T) {
	rec, resp := serveRecovered(t, func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
}

func TestRecovery_AppErrorPanicKeepsCode(t *testing.T) {
	rec, resp := serveRecovered(t, func(w http.ResponseWriter, r *http.Request) {
		panic(apperrors.Usage("cart store must be used within a provisioning scope"))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "USAGE_ERROR", resp.Error.Code)
}

func TestRecovery_NoPanicPassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecovery_AbortHandlerRepanics(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
