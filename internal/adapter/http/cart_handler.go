package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lavanya11112/SEPROJECT/internal/adapter/http/middleware"
	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
	"github.com/lavanya11112/SEPROJECT/internal/usecase"
)

type CartHandler struct {
	sessions *usecase.CartSessions
	timeout  time.Duration
}

func NewCartHandler(sessions *usecase.CartSessions, timeout time.Duration) *CartHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &CartHandler{sessions: sessions, timeout: timeout}
}

type cartView struct {
	Items       []domain.CartItem `json:"items"`
	TotalItems  int               `json:"total_items"`
	TotalAmount string            `json:"total_amount"`
}

func viewOf(s *usecase.CartSession) cartView {
	return cartView{
		Items:       s.Items(),
		TotalItems:  s.TotalItems(),
		TotalAmount: s.TotalAmount().StringFixed(2),
	}
}

type addItemReq struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity"`
}

type updateItemReq struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *CartHandler) open(c *gin.Context) (*usecase.CartSession, context.Context, context.CancelFunc, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	sess, err := h.sessions.Open(ctx, middleware.UserID(c))
	if err != nil {
		cancel()
		writeError(c, err)
		return nil, nil, nil, false
	}
	return sess, ctx, cancel, true
}

// GetCart serves the session snapshot; ?refresh=true re-reads it first.
func (h *CartHandler) GetCart(c *gin.Context) {
	sess, ctx, cancel, ok := h.open(c)
	if !ok {
		return
	}
	defer cancel()

	if c.Query("refresh") == "true" {
		if err := sess.Refresh(ctx); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "menu_item_id required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	sess, ctx, cancel, ok := h.open(c)
	if !ok {
		return
	}
	defer cancel()

	item, err := sess.AddItem(ctx, req.MenuItemID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item, "cart": viewOf(sess)})
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req updateItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity required")
		return
	}

	sess, ctx, cancel, ok := h.open(c)
	if !ok {
		return
	}
	defer cancel()

	if err := sess.UpdateQuantity(ctx, c.Param("id"), *req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	sess, ctx, cancel, ok := h.open(c)
	if !ok {
		return
	}
	defer cancel()

	if err := sess.RemoveFromCart(ctx, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (h *CartHandler) Clear(c *gin.Context) {
	sess, ctx, cancel, ok := h.open(c)
	if !ok {
		return
	}
	defer cancel()

	if err := sess.ClearCart(ctx); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}
