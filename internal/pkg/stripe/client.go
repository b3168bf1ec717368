package stripe

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
)

// Config holds Stripe API configuration
type Config struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

// Client represents Stripe payment gateway client
type Client struct {
	httpClient *http.Client
	config     Config
	baseURL    string
}

// Customer represents a Stripe customer
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PaymentIntent represents a Stripe payment intent
type PaymentIntent struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Customer     string `json:"customer"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

// CheckoutSession represents a Stripe checkout session
type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"`
	PaymentIntent string `json:"payment_intent"`
	Status        string `json:"status"`
}

// Payout represents a Stripe payout to an external bank account
type Payout struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
	Status      string `json:"status"` // pending, in_transit, paid, canceled, failed
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const defaultBaseURL = "https://api.stripe.com/v1"

// NewClient creates new Stripe API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
		baseURL:    defaultBaseURL,
	}
}

// SetBaseURL overrides the API endpoint, used in tests
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// CreateCustomer creates a Stripe customer for a platform user
func (c *Client) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (*Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("name", name)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out Customer
	if err := c.post(ctx, "/customers", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePaymentIntent creates a payment intent; amount is in the smallest
// currency unit (cents)
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, currency, customerID string, metadata map[string]string) (*PaymentIntent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", strings.ToLower(currency))
	if customerID != "" {
		form.Set("customer", customerID)
	}
	form.Set("payment_method_types[]", "card")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out PaymentIntent
	if err := c.post(ctx, "/payment_intents", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCheckoutSession creates a hosted checkout session for redirect-based
// payment flows
func (c *Client) CreateCheckoutSession(ctx context.Context, amount int64, currency, successURL, cancelURL, description string, metadata map[string]string) (*CheckoutSession, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("line_items[0][price_data][currency]", strings.ToLower(currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", description)
	form.Set("line_items[0][quantity]", "1")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out CheckoutSession
	if err := c.post(ctx, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPaymentIntent retrieves a payment intent by id (pi_...)
func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	var out PaymentIntent
	if err := c.get(ctx, "/payment_intents/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCheckoutSession retrieves a checkout session by id (cs_...)
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	var out CheckoutSession
	if err := c.get(ctx, "/checkout/sessions/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePayout pays out to an external bank account token; amount in cents
func (c *Client) CreatePayout(ctx context.Context, amount int64, currency, destination, description string, metadata map[string]string) (*Payout, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(destination) == "" {
		return nil, fmt.Errorf("validation error: destination must be non-empty")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("destination", destination)
	if description != "" {
		form.Set("description", description)
	}
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out Payout
	if err := c.post(ctx, "/payouts", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("stripe client is not initialized")
	}
	if strings.TrimSpace(c.config.SecretKey) == "" {
		return fmt.Errorf("stripe config error: secret_key is empty")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("stripe api call failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe api call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("stripe api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe api error (%d %s): %s", resp.StatusCode, apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("stripe api returned non-2xx status: %d, body: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse stripe response: %w", err)
	}
	return nil
}
