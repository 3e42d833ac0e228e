package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mann275/marketplace/internal/order/application"
	"github.com/Mann275/marketplace/internal/order/domain"
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
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/create", h.createOrder)
	r.Post("/verify-payment", h.verifyPayment)
	r.Get("/my-orders", h.myOrders)
	r.Get("/seller-orders", h.sellerOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Put("/cancel/{orderID}", h.cancelOrder)
	r.Put("/status/{orderID}", h.updateStatus)
	return r
}

type createOrderReq struct {
	ShippingAddress domain.Address `json:"shippingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
	Items           []itemReq      `json:"items"`
	TotalAmount     int64          `json:"totalAmount"`
}

type itemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price,omitempty"`
	SellerID  string `json:"sellerId,omitempty"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	session, _ := auth.SessionFrom(ctx)
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]application.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, application.CheckoutItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			PriceCents: item.Price,
			SellerID:   item.SellerID,
		})
	}

	result, err := h.service.Checkout(ctx, application.CheckoutCommand{
		CustomerID: session.UserID,
		Address:    req.ShippingAddress,
		Method:     domain.PaymentMethod(req.PaymentMethod),
		Items:      items,
		TotalCents: req.TotalAmount,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	payload := httpx.Envelope{"orders": ordersResponse(result.Orders)}
	if result.Gateway != nil {
		payload["gatewayOrder"] = result.Gateway
		payload["message"] = "complete payment to place the order"
	} else {
		payload["message"] = "order placed"
	}
	httpx.JSON(w, http.StatusCreated, payload)
}

type verifyPaymentReq struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	PaymentID      string `json:"gatewayPaymentId"`
	Signature      string `json:"signature"`
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "VerifyPayment")
	defer span.End()

	var req verifyPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GatewayOrderID == "" || req.PaymentID == "" || req.Signature == "" {
		httpx.Error(w, http.StatusBadRequest, "gatewayOrderId, gatewayPaymentId and signature are required")
		return
	}

	orders, err := h.service.VerifyPayment(ctx, application.VerifyCommand{
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{
		"message": "payment verified",
		"orders":  ordersResponse(orders),
	})
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "MyOrders")
	defer span.End()

	session, _ := auth.SessionFrom(ctx)
	orders, err := h.service.MyOrders(ctx, session.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{"orders": ordersResponse(orders)})
}

func (h *Handler) sellerOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SellerOrders")
	defer span.End()

	session, _ := auth.SessionFrom(ctx)
	if session.Role != auth.RoleSeller && session.Role != auth.RoleAdmin {
		httpx.Error(w, http.StatusForbidden, "seller account required")
		return
	}
	orders, err := h.service.SellerOrders(ctx, session.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{"orders": ordersResponse(orders)})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	session, _ := auth.SessionFrom(ctx)
	o, err := h.service.Get(ctx, actor(session), chi.URLParam(r, "orderID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{"order": orderResponse(o)})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	session, _ := auth.SessionFrom(ctx)
	o, err := h.service.CancelOwn(ctx, actor(session), chi.URLParam(r, "orderID"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{
		"message": "order cancelled",
		"order":   orderResponse(o),
	})
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	session, _ := auth.SessionFrom(ctx)
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.service.UpdateStatus(ctx, actor(session), chi.URLParam(r, "orderID"), domain.Status(req.Status))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{
		"message": "status updated",
		"order":   orderResponse(o),
	})
}

func actor(s auth.Session) application.Actor {
	return application.Actor{UserID: s.UserID, Admin: s.Role == auth.RoleAdmin}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrCartEmpty),
		errors.Is(err, application.ErrInvalidMethod),
		errors.Is(err, application.ErrInvalidQuantity),
		errors.Is(err, application.ErrProductUnavailable),
		errors.Is(err, application.ErrInsufficientStock),
		errors.Is(err, application.ErrSellerUnresolved),
		errors.Is(err, application.ErrInvalidTransition),
		errors.Is(err, application.ErrNotCancellable),
		errors.Is(err, application.ErrSignatureMismatch):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrForbidden):
		httpx.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, application.ErrProductNotFound),
		errors.Is(err, application.ErrOrderNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("request failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "something went wrong")
	}
}

type orderDTO struct {
	ID              string             `json:"id"`
	CustomerID      string             `json:"customerId"`
	SellerID        string             `json:"sellerId"`
	Items           []domain.OrderItem `json:"items"`
	TotalAmount     int64              `json:"totalAmount"`
	PaymentMethod   string             `json:"paymentMethod"`
	Status          string             `json:"status"`
	TransactionID   string             `json:"transactionId,omitempty"`
	GatewayOrderID  string             `json:"gatewayOrderId,omitempty"`
	ShippingAddress domain.Address     `json:"shippingAddress"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func orderResponse(o domain.Order) orderDTO {
	return orderDTO{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		SellerID:        o.SellerID,
		Items:           o.Items,
		TotalAmount:     o.TotalCents,
		PaymentMethod:   string(o.PaymentMethod),
		Status:          string(o.Status),
		TransactionID:   o.TransactionID,
		GatewayOrderID:  o.GatewayOrderID,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func ordersResponse(orders []domain.Order) []orderDTO {
	out := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderResponse(o))
	}
	return out
}
