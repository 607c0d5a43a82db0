package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"restaurant-chatbot/config"
)

// PaymentGateway creates hosted-checkout sessions and verifies completed
// transactions.
type PaymentGateway interface {
	Initialize(ctx context.Context, req PaymentRequest) (authorizationURL string, err error)
	Verify(ctx context.Context, reference string) (*PaymentVerification, error)
}

type PaymentRequest struct {
	AmountCents int64 // gateway minor units
	Reference   string
	Email       string
	OrderID     int64
	DeviceID    string
}

type PaymentVerification struct {
	Status   string
	DeviceID string
	OrderID  string
}

// Paystack talks to the Paystack transaction API.
type Paystack struct {
	baseURL     string
	secretKey   string
	callbackURL string
	client      *http.Client
}

func NewPaystack(cfg config.PaystackConfig) *Paystack {
	return &Paystack{
		baseURL:     cfg.BaseURL,
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type initializeBody struct {
	Amount      int64             `json:"amount"`
	Reference   string            `json:"reference"`
	Email       string            `json:"email"`
	Metadata    map[string]string `json:"metadata"`
	CallbackURL string            `json:"callback_url,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
	} `json:"data"`
}

func (p *Paystack) Initialize(ctx context.Context, req PaymentRequest) (string, error) {
	body := initializeBody{
		Amount:    req.AmountCents,
		Reference: req.Reference,
		Email:     req.Email,
		Metadata: map[string]string{
			"order_id":  fmt.Sprintf("%d", req.OrderID),
			"device_id": req.DeviceID,
		},
		CallbackURL: p.callbackURL,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal initialize body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(b))
	}

	var res initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !res.Status {
		return "", fmt.Errorf("gateway declined: %s", res.Message)
	}
	return res.Data.AuthorizationURL, nil
}

type verifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Status   string `json:"status"`
		Metadata struct {
			OrderID  string `json:"order_id"`
			DeviceID string `json:"device_id"`
		} `json:"metadata"`
	} `json:"data"`
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*PaymentVerification, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(b))
	}

	var res verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &PaymentVerification{
		Status:   res.Data.Status,
		DeviceID: res.Data.Metadata.DeviceID,
		OrderID:  res.Data.Metadata.OrderID,
	}, nil
}
