package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lavanya11112/SEPROJECT/internal/adapter/http/middleware"
	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/usecase"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	payments *usecase.Payments
	timeout  time.Duration
}

func NewPaymentHandler(payments *usecase.Payments, timeout time.Duration) *PaymentHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaymentHandler{payments: payments, timeout: timeout}
}

type createPaymentReq struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentType string          `json:"payment_type"`
	PlanID      string          `json:"plan_id"`
	OrderID     string          `json:"order_id"`
}

func (h *PaymentHandler) CreatePaymentOrder(c *gin.Context) {
	var req createPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payment body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	out, err := h.payments.CreatePaymentOrder(ctx, usecase.CreatePaymentInput{
		UserID:  middleware.UserID(c),
		Amount:  req.Amount,
		Type:    domain.PaymentType(req.PaymentType),
		PlanID:  req.PlanID,
		OrderID: req.OrderID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	gwOrderID := c.Param("gateway_order_id")
	st, err := h.payments.PaymentStatus(ctx, middleware.UserID(c), gwOrderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": gwOrderID, "status": st})
}
