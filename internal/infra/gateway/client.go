package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"academy-booking/internal/pkg/config"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"

	"github.com/cenkalti/backoff/v4"
)

// Client talks to a Razorpay-compatible orders API.
type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	maxRetries    uint64
	httpClient    *http.Client
	logger        *slog.Logger
}

func NewClient(cfg config.PaymentConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		maxRetries:    cfg.MaxRetries,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		logger:        logger,
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder retries transport failures and 5xx responses with exponential
// backoff. A 4xx response is permanent and returned immediately.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*shared.ExternalOrder, error) {
	body, err := json.Marshal(createOrderRequest{Amount: amount, Currency: currency, Receipt: receipt})
	if err != nil {
		return nil, errs.Wrap(err, "encode order request")
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(200*time.Millisecond),
			backoff.WithMaxInterval(2*time.Second),
		), c.maxRetries),
		ctx,
	)

	var order *shared.ExternalOrder
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		o, err := c.postOrder(ctx, body)
		if err != nil {
			if errs.Is(err, shared.ErrGatewayRejected) {
				return backoff.Permanent(err)
			}
			c.logger.WarnContext(ctx, "payment gateway call failed",
				"attempt", attempt,
				"receipt", receipt,
				"error", err.Error())
			return err
		}
		order = o
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Client) postOrder(ctx context.Context, body []byte) (*shared.ExternalOrder, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, errs.Mark(errs.Wrap(err, "build order request"), shared.ErrGatewayRejected)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Mark(errs.Wrap(err, "call payment gateway"), shared.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errs.Mark(errs.Wrap(err, "read gateway response"), shared.ErrGatewayUnavailable)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, errs.Mark(fmt.Errorf("gateway returned %d", resp.StatusCode), shared.ErrGatewayUnavailable)
	case resp.StatusCode >= 400:
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		return nil, errs.Mark(
			fmt.Errorf("gateway rejected order (%d %s): %s", resp.StatusCode, e.Error.Code, e.Error.Description),
			shared.ErrGatewayRejected)
	}

	var o orderResponse
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "decode gateway order"), shared.ErrGatewayUnavailable)
	}
	if o.ID == "" {
		return nil, errs.Mark(errs.New("gateway order has no id"), shared.ErrGatewayUnavailable)
	}
	return &shared.ExternalOrder{
		ID:       o.ID,
		Amount:   o.Amount,
		Currency: o.Currency,
		Receipt:  o.Receipt,
		Status:   o.Status,
	}, nil
}

// ComputeSignature is the checkout signature: hex HMAC-SHA256 of "orderID|paymentID".
func (c *Client) ComputeSignature(orderID, paymentID string) string {
	return sign(c.keySecret, []byte(orderID+"|"+paymentID))
}

func (c *Client) ComputeWebhookSignature(body []byte) string {
	return sign(c.webhookSecret, body)
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

var _ shared.PaymentGateway = (*Client)(nil)
