package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/rl1809/cartstore/internal/core/domain"
	"github.com/rl1809/cartstore/internal/core/service"
	"github.com/rl1809/cartstore/internal/platform/logger"
	"github.com/rl1809/cartstore/internal/port"
)

type HTTPHandler struct {
	sessions *service.Sessions
	catalog  port.Catalog
	notifier port.Notifier
	storage  port.KeyValueStore
	log      *logger.Logger
}

type HTTPHandlerParams struct {
	Sessions *service.Sessions
	Catalog  port.Catalog
	Notifier port.Notifier
	Storage  port.KeyValueStore
	Logger   *logger.Logger
}

func NewHTTPHandler(p HTTPHandlerParams) *HTTPHandler {
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &HTTPHandler{
		sessions: p.Sessions,
		catalog:  p.Catalog,
		notifier: p.Notifier,
		storage:  p.Storage,
		log:      p.Logger,
	}
}

// Routes mounts the cart API. metrics may be nil.
func (h *HTTPHandler) Routes(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api/carts", func(r chi.Router) {
		r.Post("/", h.CreateCart)
		r.Route("/{cartID}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Get("/events", h.StreamCart)

			r.Post("/lines", h.AddLine)
			r.Delete("/lines", h.ClearCart)
			r.Put("/lines/{itemID}", h.SetQuantity)
			r.Delete("/lines/{itemID}", h.RemoveLine)

			r.Get("/caps/{itemID}", h.GetCap)
			r.Put("/caps/{itemID}", h.SetCap)
			r.Delete("/caps/{itemID}", h.ClearCap)

			r.Put("/discount", h.ApplyDiscount)
			r.Post("/checkout", h.PlaceOrder)
		})
	})
	return r
}

type snapshotView struct {
	Lines    domain.Snapshot `json:"lines"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func newSnapshotView(s domain.Snapshot) snapshotView {
	if s == nil {
		s = domain.Snapshot{}
	}
	return snapshotView{Lines: s, Count: s.Count(), Subtotal: s.Subtotal()}
}

type CartResponse struct {
	CartID string `json:"cartId"`
	snapshotView
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Total           decimal.Decimal `json:"total"`
}

func cartResponse(sess *service.Session) CartResponse {
	view := newSnapshotView(sess.Cart.Snapshot())
	percent := sess.Checkout.Discount()
	return CartResponse{
		CartID:          sess.ID,
		snapshotView:    view,
		DiscountPercent: percent,
		Total:           service.Total(view.Subtotal, percent),
	}
}

type AddLineRequest struct {
	ItemID    domain.ItemID    `json:"itemId" validate:"required"`
	VariantID domain.VariantID `json:"variantId"`
	Quantity  int              `json:"quantity" validate:"required,min=1,max=9999"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=9999"`
}

type SetCapRequest struct {
	Cap *int `json:"cap" validate:"required"`
}

type CapResponse struct {
	ItemID    domain.ItemID    `json:"itemId"`
	VariantID domain.VariantID `json:"variantId,omitempty"`
	Cap       *int             `json:"cap"`
}

type DiscountRequest struct {
	Percent *decimal.Decimal `json:"percent" validate:"required"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.storage.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "storage unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Create(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cartResponse(sess))
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(sess))
}

func (h *HTTPHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AddLineRequest
	if err := decodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	item, err := h.catalog.Item(ctx, req.ItemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	variant := domain.Variant{}
	if req.VariantID != domain.NoVariant {
		v, found := item.Variant(req.VariantID)
		if !found {
			h.writeError(w, r, fmt.Errorf("%w: item %s has no variant %q", errBadRequest, item.ID, req.VariantID))
			return
		}
		variant = v
	} else if len(item.Variants) > 0 {
		h.writeError(w, r, fmt.Errorf("%w: item %s requires a variant", errBadRequest, item.ID))
		return
	}

	key := domain.NewKey(item.ID, variant.ID)
	if stock, known := item.StockFor(variant); known {
		if stock <= 0 {
			h.notify(ctx, port.NotificationError, "Unavailable", "This item/size is currently unavailable.")
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: "item unavailable"})
			return
		}
		if err := sess.Cart.SetCap(ctx, key, stock); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	added, err := sess.Cart.AddCounted(ctx, item.Line(variant, req.Quantity))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if added > 0 {
		h.notify(ctx, port.NotificationSuccess, "Added to cart", fmt.Sprintf("%s ×%d added to cart", item.Name, added))
	} else {
		h.notify(ctx, port.NotificationInfo, "Limit reached", fmt.Sprintf("No more %s can be added to your cart.", item.Name))
	}
	writeJSON(w, http.StatusOK, cartResponse(sess))
}

func (h *HTTPHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SetQuantityRequest
	if err := decodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := sess.Cart.SetQuantity(r.Context(), lineKey(r), *req.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(sess))
}

func (h *HTTPHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Cart.Remove(r.Context(), lineKey(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(sess))
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Cart.Clear(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(sess))
}

func (h *HTTPHandler) GetCap(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	key := lineKey(r)
	writeJSON(w, http.StatusOK, capResponse(sess, key))
}

func (h *HTTPHandler) SetCap(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SetCapRequest
	if err := decodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	key := lineKey(r)
	if err := sess.Cart.SetCap(r.Context(), key, *req.Cap); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, capResponse(sess, key))
}

func (h *HTTPHandler) ClearCap(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	key := lineKey(r)
	if err := sess.Cart.ClearCap(r.Context(), key); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, capResponse(sess, key))
}

func capResponse(sess *service.Session, key domain.Key) CapResponse {
	resp := CapResponse{ItemID: key.ItemID, VariantID: key.VariantID}
	if limit, ok := sess.Cart.GetCap(key); ok {
		resp.Cap = &limit
	}
	return resp
}

func (h *HTTPHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req DiscountRequest
	if err := decodeJSONBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := sess.Checkout.ApplyDiscount(*req.Percent); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(sess))
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	order, err := sess.Checkout.PlaceOrder(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// StreamCart sends the cart as Server-Sent Events: the current state first,
// then every change. Slow clients skip to the newest state.
func (h *HTTPHandler) StreamCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// An evicted session ends the stream; the client reconnects to a fresh one.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-sess.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	for snap := range sess.Cart.Snapshots().Watch(ctx) {
		data, err := json.Marshal(newSnapshotView(snap))
		if err != nil {
			h.log.Error(r.Context(), "encode cart event", err)
			return
		}
		if _, err := fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (h *HTTPHandler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	sess, err := h.sessions.Open(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (h *HTTPHandler) notify(ctx context.Context, level port.NotificationLevel, title, msg string) {
	if h.notifier != nil {
		h.notifier.Notify(ctx, port.Notification{Level: level, Title: title, Message: msg})
	}
}

func lineKey(r *http.Request) domain.Key {
	return domain.NewKey(
		domain.ItemID(chi.URLParam(r, "itemID")),
		domain.VariantID(r.URL.Query().Get("variant")),
	)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Details: verr.fields})
	case errors.Is(err, errBadRequest),
		errors.Is(err, service.ErrInvalidCartID),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidDiscount),
		errors.Is(err, domain.ErrInvalidKey):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, port.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "item not found"})
	case errors.Is(err, service.ErrEmptyCart):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "cart is empty"})
	default:
		h.log.Error(r.Context(), "cart request failed", err, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
