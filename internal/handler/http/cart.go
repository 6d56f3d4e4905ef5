package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gomarketplace/cartstore/internal/cart"
	"github.com/gomarketplace/cartstore/internal/domain"
	"github.com/gomarketplace/cartstore/pkg/httputil"
	"github.com/gomarketplace/cartstore/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints. The store is taken
// from the request context; see ProvideCart.
type CartHandler struct {
	logger *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(logger *slog.Logger) *CartHandler {
	return &CartHandler{logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding an item to the cart.
// Quantity may be omitted and defaults to one.
type AddItemRequest struct {
	ID          string  `json:"id" validate:"required"`
	Title       string  `json:"title" validate:"required,max=500"`
	ImageURL    string  `json:"image_url"`
	Price       float64 `json:"price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	FormatPrice string  `json:"formatPrice,omitempty"`
}

func (req AddItemRequest) toItem() domain.CartItem {
	return domain.CartItem{
		ID:          req.ID,
		Title:       req.Title,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		Quantity:    req.Quantity,
		FormatPrice: req.FormatPrice,
	}
}

// --- Response DTOs ---

// CartResponse is the cart as returned by every endpoint.
type CartResponse struct {
	Version   uint64       `json:"version"`
	Items     domain.Items `json:"items"`
	ItemCount int          `json:"item_count"`
}

func newCartResponse(snap cart.Snapshot) CartResponse {
	items := snap.Items
	if items == nil {
		items = domain.Items{}
	}
	return CartResponse{
		Version:   snap.Version,
		Items:     items,
		ItemCount: snap.ItemCount(),
	}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, err := cart.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newCartResponse(store.Snapshot()))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, err := cart.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := store.AddToCart(r.Context(), req.toItem()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newCartResponse(store.Snapshot()))
}

// IncrementItem handles POST /api/v1/cart/items/{id}/increment
func (h *CartHandler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, (*cart.Store).Increment)
}

// DecrementItem handles POST /api/v1/cart/items/{id}/decrement
func (h *CartHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, (*cart.Store).Decrement)
}

func (h *CartHandler) adjust(w http.ResponseWriter, r *http.Request, op func(*cart.Store, context.Context, string) error) {
	store, err := cart.FromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	id := chi.URLParam(r, "id")
	if err := op(store, r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newCartResponse(store.Snapshot()))
}
