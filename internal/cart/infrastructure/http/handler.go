package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mann275/marketplace/internal/cart/application"
	"github.com/Mann275/marketplace/pkg/auth"
	"github.com/Mann275/marketplace/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("cart-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Put("/items/{productID}", h.updateQuantity)
	r.Delete("/items/{productID}", h.removeItem)
	return r
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCart")
	defer span.End()

	session, _ := auth.SessionFrom(ctx)
	cart, err := h.service.Get(ctx, session.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{"cart": cart})
}

type addItemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddCartItem")
	defer span.End()

	session, _ := auth.SessionFrom(ctx)
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		httpx.Error(w, http.StatusBadRequest, "productId is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		httpx.Error(w, http.StatusBadRequest, "quantity must be between 1 and 99")
		return
	}

	if err := h.service.AddItem(ctx, session.UserID, req.ProductID, req.Quantity); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, httpx.Envelope{"message": "item added"})
}

type updateQuantityReq struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateCartQuantity")
	defer span.End()

	session, _ := auth.SessionFrom(ctx)
	var req updateQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		httpx.Error(w, http.StatusBadRequest, "quantity must be between 1 and 99")
		return
	}

	if err := h.service.UpdateQuantity(ctx, session.UserID, chi.URLParam(r, "productID"), req.Quantity); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{"message": "quantity updated"})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveCartItem")
	defer span.End()

	session, _ := auth.SessionFrom(ctx)
	if err := h.service.RemoveItem(ctx, session.UserID, chi.URLParam(r, "productID")); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{"message": "item removed"})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClearCart")
	defer span.End()

	session, _ := auth.SessionFrom(ctx)
	if err := h.service.Clear(ctx, session.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{"message": "cart cleared"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrCartNotFound),
		errors.Is(err, application.ErrItemNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("cart request failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "something went wrong")
	}
}
