package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fixia-app/FixiaCore/internal/pkg/env"
	"github.com/google/uuid"
)

const defaultGatewayAPIBaseURL = "https://api.pagos.example.com"

// ErrPaymentNotFound is returned when the gateway does not know the payment id.
var ErrPaymentNotFound = errors.New("payment not found at gateway")

// PaymentGateway is the outbound contract the reconciler depends on.
type PaymentGateway interface {
	FetchPayment(ctx context.Context, id string) (*GatewayPayment, error)
	CreatePreference(ctx context.Context, req PreferenceRequest) (*GatewayPreference, error)
}

// GatewayPayment is the authoritative payment detail fetched by id. Callback
// bodies are never trusted for amount or payer identity; only this is.
type GatewayPayment struct {
	ID            string
	Status        string
	AmountCents   int64
	Currency      string
	PaymentMethod string
	PayerEmail    string
	PayerID       string
	PaidAt        *time.Time
	Metadata      map[string]string
}

// PreferenceItem is one line item of a checkout preference.
type PreferenceItem struct {
	Title          string `json:"title"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Currency       string `json:"currency_id"`
}

// BackURLs are the redirect targets the gateway sends the payer back to.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest is the input for creating a payment-intent preference.
type PreferenceRequest struct {
	Items      []PreferenceItem
	PayerEmail string
	BackURLs   BackURLs
	Metadata   map[string]string
}

// GatewayPreference is the created payment intent the payer is redirected to.
type GatewayPreference struct {
	ID          string
	RedirectURL string
}

// GatewayClient talks to the payment gateway REST API.
type GatewayClient struct {
	AccessToken string
	APIBaseURL  string

	HTTPClient *http.Client
}

// NewGatewayClientFromEnv builds a gateway client from environment settings.
func NewGatewayClientFromEnv() *GatewayClient {
	return &GatewayClient{
		AccessToken: strings.TrimSpace(env.GetEnv("PAYMENT_GATEWAY_ACCESS_TOKEN", "")),
		APIBaseURL:  strings.TrimRight(env.GetEnv("PAYMENT_GATEWAY_API_BASE_URL", defaultGatewayAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *GatewayClient) doJSON(req *http.Request) (int, []byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, body, nil
}

// FetchPayment loads authoritative payment details by gateway payment id.
// Timeouts and 5xx responses come back as plain errors so callers treat them
// as transient, never as a payment state.
func (c *GatewayClient) FetchPayment(ctx context.Context, id string) (*GatewayPayment, error) {
	pid := strings.TrimSpace(id)
	if pid == "" {
		return nil, errors.New("payment id is required")
	}

	u := c.APIBaseURL + "/v1/payments/" + url.PathEscape(pid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	status, body, err := c.doJSON(req)
	if err != nil {
		return nil, fmt.Errorf("gateway payment fetch failed: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, ErrPaymentNotFound
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("gateway payment fetch failed: status=%d body=%s", status, string(body))
	}

	var raw struct {
		ID            string            `json:"id"`
		Status        string            `json:"status"`
		AmountCents   int64             `json:"transaction_amount_cents"`
		Currency      string            `json:"currency_id"`
		PaymentMethod string            `json:"payment_method_id"`
		DateApproved  string            `json:"date_approved"`
		Payer         struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"payer"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.ID) == "" {
		return nil, errors.New("gateway payment response missing id")
	}

	out := &GatewayPayment{
		ID:            strings.TrimSpace(raw.ID),
		Status:        strings.TrimSpace(raw.Status),
		AmountCents:   raw.AmountCents,
		Currency:      strings.TrimSpace(raw.Currency),
		PaymentMethod: strings.TrimSpace(raw.PaymentMethod),
		PayerEmail:    strings.TrimSpace(raw.Payer.Email),
		PayerID:       strings.TrimSpace(raw.Payer.ID),
		Metadata:      raw.Metadata,
	}
	if raw.DateApproved != "" {
		if t, perr := time.Parse(time.RFC3339, raw.DateApproved); perr == nil {
			out.PaidAt = &t
		}
	}
	return out, nil
}

// CreatePreference registers a payment intent and returns the redirect URL.
func (c *GatewayClient) CreatePreference(ctx context.Context, in PreferenceRequest) (*GatewayPreference, error) {
	if len(in.Items) == 0 {
		return nil, errors.New("at least one preference item is required")
	}
	if strings.TrimSpace(in.PayerEmail) == "" {
		return nil, errors.New("payer email is required")
	}

	payload := map[string]interface{}{
		"items": in.Items,
		"payer": map[string]string{
			"email": strings.TrimSpace(in.PayerEmail),
		},
		"back_urls":          in.BackURLs,
		"metadata":           in.Metadata,
		"external_reference": uuid.New().String(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/v1/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	status, respBody, err := c.doJSON(req)
	if err != nil {
		return nil, fmt.Errorf("gateway preference create failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("gateway preference create failed: status=%d body=%s", status, string(respBody))
	}

	var raw struct {
		ID        string `json:"id"`
		InitPoint string `json:"init_point"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw.ID) == "" {
		return nil, errors.New("gateway preference response missing id")
	}
	return &GatewayPreference{
		ID:          strings.TrimSpace(raw.ID),
		RedirectURL: strings.TrimSpace(raw.InitPoint),
	}, nil
}
