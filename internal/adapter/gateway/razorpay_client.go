package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lavanya11112/SEPROJECT/internal/usecase"
)

// Client talks to a Razorpay-style orders API with HTTP basic auth
// (key id / key secret).
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

type Options struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		keyID:     opts.KeyID,
		keySecret: opts.KeySecret,
		http:      &http.Client{Timeout: opts.Timeout},
	}
}

type createOrderReq struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt,omitempty"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type createOrderResp struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("gateway http %d", e.Status)
	}
	return fmt.Sprintf("gateway http %d: %s: %s", e.Status, e.Code, e.Description)
}

func (c *Client) CreateOrder(ctx context.Context, req usecase.GatewayOrderRequest) (usecase.GatewayOrder, error) {
	notes := map[string]string{}
	for k, v := range req.Notes {
		if v != "" {
			notes[k] = v
		}
	}
	body, err := json.Marshal(createOrderReq{
		Amount:         req.AmountMinor,
		Currency:       req.Currency,
		Receipt:        req.Receipt,
		PaymentCapture: 1,
		Notes:          notes,
	})
	if err != nil {
		return usecase.GatewayOrder{}, fmt.Errorf("marshal order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return usecase.GatewayOrder{}, err
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return usecase.GatewayOrder{}, fmt.Errorf("reach gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return usecase.GatewayOrder{}, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ae := &APIError{Status: resp.StatusCode}
		var body apiError
		if json.Unmarshal(raw, &body) == nil {
			ae.Code, ae.Description = body.Error.Code, body.Error.Description
		}
		return usecase.GatewayOrder{}, ae
	}

	var out createOrderResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return usecase.GatewayOrder{}, fmt.Errorf("decode gateway response: %w", err)
	}
	if out.ID == "" {
		return usecase.GatewayOrder{}, fmt.Errorf("gateway returned no order id")
	}
	return usecase.GatewayOrder{ID: out.ID, AmountMinor: out.Amount, Currency: out.Currency}, nil
}

var _ usecase.PaymentGateway = (*Client)(nil)
