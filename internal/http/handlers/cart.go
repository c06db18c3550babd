package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vmarkevych/storefront/internal/domain/cart"
	"github.com/vmarkevych/storefront/internal/http/middlewares"
	"github.com/vmarkevych/storefront/internal/observability"
)

type CartEngine interface {
	AddItem(ctx context.Context, principalID, productID string) (cart.Cart, error)
	RemoveItem(ctx context.Context, principalID, productID string) (cart.Cart, error)
	Checkout(ctx context.Context, principalID string) (cart.Order, error)
	Cart(ctx context.Context, principalID string) (cart.Cart, error)
	Orders(ctx context.Context, principalID string) ([]cart.Order, error)
}

// OrderPublisher hands a fresh order to the notification pipeline.
type OrderPublisher interface {
	PublishOrderConfirmation(ctx context.Context, order cart.Order, requestID string) error
}

type CartHandler struct {
	engine    CartEngine
	publisher OrderPublisher
	prom      *observability.Prom
	log       *slog.Logger
}

// publisher may be nil when no queue is configured.
func NewCartHandler(engine CartEngine, publisher OrderPublisher, prom *observability.Prom, log *slog.Logger) *CartHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CartHandler{engine: engine, publisher: publisher, prom: prom, log: log}
}

func principal(ctx *gin.Context) (string, bool) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
	}
	return id, ok
}

func (h *CartHandler) AddItem(ctx *gin.Context) {
	userID, ok := principal(ctx)
	if !ok {
		return
	}

	c, err := h.engine.AddItem(ctx.Request.Context(), userID, ctx.Param("idProduct"))
	h.prom.ObserveCartOp("add", err)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(ctx *gin.Context) {
	userID, ok := principal(ctx)
	if !ok {
		return
	}

	c, err := h.engine.RemoveItem(ctx.Request.Context(), userID, ctx.Param("idProduct"))
	h.prom.ObserveCartOp("remove", err)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (h *CartHandler) Checkout(ctx *gin.Context) {
	userID, ok := principal(ctx)
	if !ok {
		return
	}

	order, err := h.engine.Checkout(ctx.Request.Context(), userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	h.prom.ObserveCheckout(order.TotalPrice)
	h.log.InfoContext(ctx.Request.Context(), "cart checked out",
		"order_id", order.ID,
		"user_id", userID,
		"items", len(order.Items),
		"total", order.TotalPrice,
	)

	h.publish(ctx, order)

	ctx.JSON(http.StatusOK, order)
}

// publish never fails the checkout; the order is already in the ledger.
func (h *CartHandler) publish(ctx *gin.Context, order cart.Order) {
	if h.publisher == nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx.Request.Context()), 2*time.Second)
	defer cancel()

	if err := h.publisher.PublishOrderConfirmation(pctx, order, requestIDFrom(ctx)); err != nil {
		h.log.ErrorContext(pctx, "order confirmation enqueue failed", "order_id", order.ID, "err", err)
	}
}

func (h *CartHandler) GetCart(ctx *gin.Context) {
	userID, ok := principal(ctx)
	if !ok {
		return
	}

	c, err := h.engine.Cart(ctx.Request.Context(), userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	total := c.Total()
	c.TotalPrice = &total
	ctx.JSON(http.StatusOK, c)
}

func (h *CartHandler) ListOrders(ctx *gin.Context) {
	userID, ok := principal(ctx)
	if !ok {
		return
	}

	orders, err := h.engine.Orders(ctx.Request.Context(), userID)
	if err != nil {
		RespondErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": orders,
		"count": len(orders),
	})
}
