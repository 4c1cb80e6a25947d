package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hostwise/nightly/internal/billing/domain"
	"go.uber.org/zap"
)

// RequestTimeout is the hard deadline for one billing API round-trip.
const RequestTimeout = 20 * time.Second

type Config struct {
	BaseURL   string
	SecretKey string
}

// Client speaks the provider's form-encoded REST API. Quantity updates are
// sent with proration disabled.
type Client struct {
	http *http.Client
	cfg  Config
	log  *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: RequestTimeout},
		cfg:  cfg,
		log:  log.Named("billing.client"),
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.ClientReferenceID)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}

	form.Set("line_items[0][price]", req.ParentPriceID)
	form.Set("line_items[0][quantity]", strconv.Itoa(req.ParentQty))
	if req.ChildQty > 0 && req.ChildPriceID != "" {
		form.Set("line_items[1][price]", req.ChildPriceID)
		form.Set("line_items[1][quantity]", strconv.Itoa(req.ChildQty))
	}
	if req.TrialDays > 0 {
		form.Set("subscription_data[trial_period_days]", strconv.Itoa(req.TrialDays))
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form, &out); err != nil {
		return domain.CheckoutSession{}, err
	}
	return domain.CheckoutSession{SessionID: out.ID, URL: out.URL, TrialDays: req.TrialDays}, nil
}

func (c *Client) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error {
	form := url.Values{}
	form.Set("quantity", strconv.Itoa(quantity))
	form.Set("proration_behavior", "none")
	return c.do(ctx, http.MethodPost, "/v1/subscription_items/"+url.PathEscape(itemID), form, nil)
}

func (c *Client) CreateItem(ctx context.Context, subscriptionID, priceID string, quantity int) (string, error) {
	form := url.Values{}
	form.Set("subscription", subscriptionID)
	form.Set("price", priceID)
	form.Set("quantity", strconv.Itoa(quantity))
	form.Set("proration_behavior", "none")

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/subscription_items", form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	form := url.Values{}
	form.Set("proration_behavior", "none")
	return c.do(ctx, http.MethodDelete, "/v1/subscription_items/"+url.PathEscape(itemID), form, nil)
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("billing.provider_error",
			zap.Int("status", resp.StatusCode),
			zap.String("path", path),
		)
		return fmt.Errorf("%w: status %d", domain.ErrProvider, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	return nil
}
