package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mann275/marketplace/internal/catalog/application"
	"github.com/Mann275/marketplace/internal/catalog/domain"
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
		tracer:  otel.Tracer("catalog-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)
	return r
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	products, err := h.service.List(ctx, limit, offset)
	if err != nil {
		h.log.Error("list products failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{"products": productsResponse(products)})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	p, err := h.service.Get(ctx, chi.URLParam(r, "productID"))
	if errors.Is(err, application.ErrProductNotFound) {
		httpx.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.log.Error("get product failed", "err", err)
		httpx.Error(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{"product": productResponse(p)})
}

type productDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	DiscountPct int       `json:"discountPct"`
	FinalPrice  int64     `json:"finalPrice"`
	Quantity    int       `json:"quantity"`
	SellerID    string    `json:"sellerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func productResponse(p domain.Product) productDTO {
	return productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.PriceCents,
		DiscountPct: p.DiscountPct,
		FinalPrice:  p.FinalPriceCents(),
		Quantity:    p.Quantity,
		SellerID:    p.SellerID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func productsResponse(products []domain.Product) []productDTO {
	out := make([]productDTO, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse(p))
	}
	return out
}
