package flutterwave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds Flutterwave API configuration
type Config struct {
	SecretKey  string
	SecretHash string // pre-shared webhook verif-hash
	Timeout    time.Duration
}

// Client represents Flutterwave payment gateway client
type Client struct {
	httpClient *http.Client
	config     Config
	baseURL    string
}

// InitiatePaymentRequest represents a hosted payment page request
type InitiatePaymentRequest struct {
	TxRef       string
	Amount      string
	Currency    string
	RedirectURL string
	Email       string
	Name        string
	Description string
}

// InitiatePaymentResponse represents payment page creation response
type InitiatePaymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// VerifyResponse represents verify_by_reference response
type VerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		Status   string  `json:"status"` // successful, failed, pending
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"data"`
}

const defaultBaseURL = "https://api.flutterwave.com/v3"

// NewClient creates new Flutterwave API client
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

// InitiatePayment creates a hosted payment link keyed by the caller's tx_ref
func (c *Client) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	if strings.TrimSpace(req.TxRef) == "" {
		return nil, fmt.Errorf("validation error: tx_ref must be non-empty")
	}
	if strings.TrimSpace(req.Amount) == "" {
		return nil, fmt.Errorf("validation error: amount must be non-empty")
	}

	payload := map[string]interface{}{
		"tx_ref":       req.TxRef,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"redirect_url": req.RedirectURL,
		"customer": map[string]string{
			"email": req.Email,
			"name":  req.Name,
		},
		"customizations": map[string]string{
			"title": req.Description,
		},
	}

	var out InitiatePaymentResponse
	if err := c.post(ctx, "/payments", payload, &out); err != nil {
		return nil, err
	}
	if out.Data.Link == "" {
		return nil, fmt.Errorf("flutterwave response missing payment link: %s", out.Message)
	}
	return &out, nil
}

// VerifyByReference looks up a transaction by the tx_ref the platform supplied
// at initiation
func (c *Client) VerifyByReference(ctx context.Context, txRef string) (*VerifyResponse, error) {
	if strings.TrimSpace(txRef) == "" {
		return nil, fmt.Errorf("validation error: tx_ref must be non-empty")
	}

	var out VerifyResponse
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(txRef)
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode flutterwave request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("flutterwave client is not initialized")
	}
	if strings.TrimSpace(c.config.SecretKey) == "" {
		return fmt.Errorf("flutterwave config error: secret_key is empty")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("flutterwave api call failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("flutterwave api call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("flutterwave api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("flutterwave api returned non-2xx status: %d, body: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse flutterwave response: %w", err)
	}
	return nil
}
