package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lavanya11112/SEPROJECT/internal/adapter/http/middleware"
	"github.com/lavanya11112/SEPROJECT/internal/usecase"
)

type CheckoutHandler struct {
	checkout *usecase.Checkout
	sessions *usecase.CartSessions
	timeout  time.Duration
}

func NewCheckoutHandler(checkout *usecase.Checkout, sessions *usecase.CartSessions, timeout time.Duration) *CheckoutHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CheckoutHandler{checkout: checkout, sessions: sessions, timeout: timeout}
}

type placeOrderReq struct {
	PromoCode       string `json:"promo_code"`
	DeliveryAddress string `json:"delivery_address"`
	ContactNumber   string `json:"contact_number"`
}

// PlaceOrder checks out the caller's current cart.
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid checkout body")
			return
		}
	}

	idemKey := c.GetHeader("X-Idempotency-Key") // prevent duplicated requests

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	sess, err := h.sessions.Open(ctx, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	out, err := h.checkout.PlaceOrder(ctx, sess, usecase.PlaceOrderInput{
		PromoCode:       req.PromoCode,
		DeliveryAddress: req.DeliveryAddress,
		ContactNumber:   req.ContactNumber,
		IdempotencyKey:  idemKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if out.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, out.Order)
}

func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	o, err := h.checkout.GetOrder(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *CheckoutHandler) ListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	list, err := h.checkout.ListOrders(ctx, middleware.UserID(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

type validatePromoReq struct {
	Code     string `json:"code" binding:"required"`
	Delivery bool   `json:"delivery"`
}

// ValidatePromo checks a code and previews the caller's totals with it.
func (h *CheckoutHandler) ValidatePromo(c *gin.Context) {
	var req validatePromoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code required")
		return
	}

	code, rate, err := h.checkout.ValidatePromo(req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"valid": true, "code": code, "discount_rate": rate.String()}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	if sess, err := h.sessions.Open(ctx, middleware.UserID(c)); err == nil && len(sess.Items()) > 0 {
		if q, err := h.checkout.Quote(sess, code, req.Delivery); err == nil {
			resp["quote"] = q
		}
	}
	c.JSON(http.StatusOK, resp)
}
