package paystack

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

// Config holds Paystack API configuration
type Config struct {
	SecretKey string
	Timeout   time.Duration
}

// Client represents Paystack payment gateway client
type Client struct {
	httpClient *http.Client
	config     Config
	baseURL    string
}

// InitializeRequest represents a transaction initialization request.
// Amount is in the currency's subunit (kobo for NGN).
type InitializeRequest struct {
	Reference   string
	Email       string
	Amount      int64
	Currency    string
	CallbackURL string
}

// InitializeResponse represents transaction initialization response
type InitializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// VerifyResponse represents transaction verification response
type VerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"` // success, failed, abandoned
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// TransferRecipientResponse represents recipient creation response
type TransferRecipientResponse struct {
	Status bool `json:"status"`
	Data   struct {
		RecipientCode string `json:"recipient_code"`
	} `json:"data"`
}

// TransferResponse represents transfer initiation response
type TransferResponse struct {
	Status bool `json:"status"`
	Data   struct {
		TransferCode string `json:"transfer_code"`
		Reference    string `json:"reference"`
		Status       string `json:"status"`
	} `json:"data"`
}

const defaultBaseURL = "https://api.paystack.co"

// NewClient creates new Paystack API client
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

// InitializeTransaction starts a hosted checkout keyed by the caller's
// reference
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	if strings.TrimSpace(req.Reference) == "" {
		return nil, fmt.Errorf("validation error: reference must be non-empty")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be positive")
	}

	payload := map[string]interface{}{
		"reference":    req.Reference,
		"email":        req.Email,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"callback_url": req.CallbackURL,
	}

	var out InitializeResponse
	if err := c.post(ctx, "/transaction/initialize", payload, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, fmt.Errorf("paystack rejected initialization: %s", out.Message)
	}
	return &out, nil
}

// VerifyTransaction looks up a transaction by reference
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResponse, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("validation error: reference must be non-empty")
	}

	var out VerifyResponse
	if err := c.get(ctx, "/transaction/verify/"+url.PathEscape(reference), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTransferRecipient registers a bank account for payouts
func (c *Client) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode, currency string) (*TransferRecipientResponse, error) {
	payload := map[string]interface{}{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       currency,
	}

	var out TransferRecipientResponse
	if err := c.post(ctx, "/transferrecipient", payload, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, fmt.Errorf("paystack rejected recipient creation")
	}
	return &out, nil
}

// InitiateTransfer sends funds to a previously created recipient.
// Amount is in the currency's subunit.
func (c *Client) InitiateTransfer(ctx context.Context, recipientCode, reference string, amount int64, reason string) (*TransferResponse, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("validation error: amount must be positive")
	}

	payload := map[string]interface{}{
		"source":    "balance",
		"recipient": recipientCode,
		"reference": reference,
		"amount":    amount,
		"reason":    reason,
	}

	var out TransferResponse
	if err := c.post(ctx, "/transfer", payload, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, fmt.Errorf("paystack rejected transfer")
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode paystack request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("paystack client is not initialized")
	}
	if strings.TrimSpace(c.config.SecretKey) == "" {
		return fmt.Errorf("paystack config error: secret_key is empty")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("paystack api call failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paystack api call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("paystack api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paystack api returned non-2xx status: %d, body: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse paystack response: %w", err)
	}
	return nil
}
