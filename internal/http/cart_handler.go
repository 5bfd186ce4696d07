package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_cart/cart-api/internal/domain"
	"github.com/fjod/go_cart/cart-api/internal/projection"
	"github.com/fjod/go_cart/cart-api/internal/service"
	"github.com/fjod/go_cart/cart-api/internal/validation"
)

// cartKeyCookie carries the guest session cart key between requests.
const cartKeyCookie = "cart_key"

type CartHandler struct {
	service *service.CartService
	timeout time.Duration
}

func NewCartHandler(cartService *service.CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		service: cartService,
		timeout: timeout,
	}
}

// AddItemRequestDTO mirrors the public add-item body. Identifiers and
// quantity arrive as strings for client compatibility.
type AddItemRequestDTO struct {
	ID        string                 `json:"id"`
	Quantity  string                 `json:"quantity"`
	Variation map[string]string      `json:"variation,omitempty"`
	ItemData  map[string]interface{} `json:"item_data,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *CartHandler) Routes(r chi.Router) {
	r.Route("/api/v2/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/add-item", h.AddItem)
		r.Get("/totals", h.GetTotals)
		r.Get("/{cart_key}", h.GetCart)
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartKey := h.resolveKey(w, r)

	opts := projection.ReadOptions{
		Raw:         boolParam(r, "raw"),
		Default:     boolParam(r, "default"),
		Thumb:       boolParam(r, "thumb"),
		CartItemKey: r.URL.Query().Get("cart_item_key"),
		// Reading another session's cart by key goes through the session
		// filter rather than the regular cart filter.
		FromSession: chi.URLParam(r, "cart_key") != "",
	}

	response, err := h.service.GetCart(ctx, cartKey, opts)
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartKey := h.resolveKey(w, r)

	var dto AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req, err := dto.toRequest()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	opts := projection.ReadOptions{Thumb: boolParam(r, "thumb")}

	response, err := h.service.AddItem(ctx, cartKey, req, opts)
	if err != nil {
		log.Printf("add-item failed: request=%s cart=%s: %v", getRequestID(r.Context()), cartKey, err)
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, response)
}

func (h *CartHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartKey := h.resolveKey(w, r)

	totals, err := h.service.GetTotals(ctx, cartKey, projection.TotalsOptions{
		HTML: boolParam(r, "html"),
	})
	if err != nil {
		respondCartError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, totals)
}

// resolveKey works out which cart the request addresses and refreshes the
// session cookie with the outcome.
func (h *CartHandler) resolveKey(w http.ResponseWriter, r *http.Request) string {
	requested := chi.URLParam(r, "cart_key")
	if requested == "" {
		requested = r.URL.Query().Get("cart_key")
	}

	var cookieKey string
	if cookie, err := r.Cookie(cartKeyCookie); err == nil {
		cookieKey = cookie.Value
	}

	cartKey := h.service.ResolveCartKey(requested, getCustomerIDFromContext(r.Context()), cookieKey)

	if cartKey != cookieKey {
		http.SetCookie(w, &http.Cookie{
			Name:     cartKeyCookie,
			Value:    cartKey,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		})
	}

	return cartKey
}

func (d AddItemRequestDTO) toRequest() (validation.AddItemRequest, error) {
	req := validation.AddItemRequest{
		Quantity:  1,
		Variation: d.Variation,
		ExtraData: d.ItemData,
	}

	productID, err := strconv.ParseInt(d.ID, 10, 64)
	if err != nil {
		return req, errInvalidField("id must be a numeric product id")
	}
	req.ProductID = productID

	if d.Quantity != "" {
		quantity, qErr := strconv.ParseFloat(d.Quantity, 64)
		if qErr != nil {
			return req, errInvalidField("quantity must be numeric")
		}
		req.Quantity = quantity
	}

	return req, nil
}

type errInvalidField string

func (e errInvalidField) Error() string { return string(e) }

func boolParam(r *http.Request, name string) bool {
	value := r.URL.Query().Get(name)
	if value == "" {
		return false
	}
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}

func getCustomerIDFromContext(ctx context.Context) string {
	if customerID, ok := ctx.Value(customerIDKey).(string); ok {
		return customerID
	}
	return ""
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondCartError maps typed cart failures to their HTTP status; anything
// untyped is an internal error and stays opaque.
func respondCartError(w http.ResponseWriter, err error) {
	if cartErr, ok := domain.AsCartError(err); ok {
		respondError(w, cartErr.Status, cartErr.Code, cartErr.Message)
		return
	}

	log.Printf("unhandled cart error: %v", err)
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
