package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/bekapono/shopping-cart/internal/pkg/logger"
	"github.com/bekapono/shopping-cart/internal/service/order/application"
	"github.com/bekapono/shopping-cart/internal/service/order/domain"
	"github.com/bekapono/shopping-cart/internal/service/order/domain/port"
)

const (
	serviceName     = "checkout-service"
	maxRequestBytes = 1 << 20
)

// StockReader 查询商品当前可预占的库存
type StockReader interface {
	Available(ctx context.Context, id domain.ProductID) (int, error)
}

// OrderHandler 封装了 checkout 服务的 HTTP 处理器
type OrderHandler struct {
	service  *application.CheckoutService
	catalog  port.ProductCatalog
	stock    StockReader
	gatherer prometheus.Gatherer
	tracer   trace.Tracer
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例，gatherer 为 nil 时使用默认注册表
func NewOrderHandler(service *application.CheckoutService, catalog port.ProductCatalog, stock StockReader, gatherer prometheus.Gatherer) *OrderHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &OrderHandler{
		service:  service,
		catalog:  catalog,
		stock:    stock,
		gatherer: gatherer,
		tracer:   otel.Tracer(serviceName),
	}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /checkout", h.checkoutHandler)
	mux.HandleFunc("GET /orders/{id}", h.getOrderHandler)
	mux.HandleFunc("GET /products/{id}/stock", h.stockHandler)
}

type errorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Order   *application.OrderView `json:"order,omitempty"`
}

func (h *OrderHandler) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := h.tracer.Start(ctx, "http.Checkout", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	var req application.CheckoutRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(domain.ReasonValidation), Message: "malformed request body: " + err.Error()})
		return
	}
	span.SetAttributes(attribute.String("customer.id", req.Customer.ID), attribute.Int("request.items", len(req.Items)))

	order, err := h.service.PlaceOrder(ctx, &req, h.catalog)
	if err != nil {
		h.writeFailure(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, application.ToOrderView(order))
}

func (h *OrderHandler) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrOrderNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "NOT_FOUND", Message: err.Error()})
		return
	}
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("failed to load order")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: string(domain.ReasonInternal), Message: "failed to load order"})
		return
	}
	writeJSON(w, http.StatusOK, application.ToOrderView(order))
}

func (h *OrderHandler) stockHandler(w http.ResponseWriter, r *http.Request) {
	id := domain.ProductID(r.PathValue("id"))
	n, err := h.stock.Available(r.Context(), id)
	if errors.Is(err, domain.ErrProductNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "NOT_FOUND", Message: err.Error()})
		return
	}
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Str("product", string(id)).Msg("failed to read stock")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: string(domain.ReasonInternal), Message: "failed to read stock"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": id, "available": n})
}

func (h *OrderHandler) writeFailure(ctx context.Context, w http.ResponseWriter, err error) {
	failure, ok := domain.AsCheckoutFailure(err)
	if !ok {
		failure = &domain.CheckoutFailure{Reason: domain.ReasonInternal, Err: err}
	}
	resp := errorResponse{Error: string(failure.Reason), Message: failure.Error()}
	if failure.Order != nil {
		resp.Order = application.ToOrderView(failure.Order)
	}
	if failure.Reason == domain.ReasonInternal {
		// 内部错误不向客户端暴露细节
		logger.Ctx(ctx).Error().Err(err).Msg("checkout failed with internal error")
		resp.Message = "internal error"
	}
	writeJSON(w, StatusFor(failure.Reason), resp)
}

// StatusFor 把失败原因映射为 HTTP 状态码
func StatusFor(reason domain.FailureReason) int {
	switch reason {
	case domain.ReasonValidation:
		return http.StatusBadRequest
	case domain.ReasonInventoryUnavailable:
		return http.StatusConflict
	case domain.ReasonPaymentDeclined:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
