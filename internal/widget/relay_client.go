package widget

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"checkout/internal/core/domain"
)

const sessionHeader = "X-Session-ID"

// HTTPRelayClient talks to the relay server the way the reference
// frontend did with fetch. One client instance carries one session id,
// so orders it creates can only be captured through it.
type HTTPRelayClient struct {
	baseURL   string
	client    *http.Client
	sessionID string
}

func NewHTTPRelayClient(baseURL string, timeout time.Duration) *HTTPRelayClient {
	return &HTTPRelayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		sessionID: uuid.NewString(),
	}
}

func (r *HTTPRelayClient) SessionID() string { return r.sessionID }

type createOrderBody struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

type createOrderReply struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (r *HTTPRelayClient) CreateOrder(ctx context.Context, amount, currency string) (domain.OrderIntentResult, error) {
	var reply createOrderReply
	status, err := r.post(ctx, "/create-paypal-order", createOrderBody{Amount: amount, Currency: currency}, &reply)
	if err != nil {
		return domain.OrderIntentResult{}, err
	}
	if status != http.StatusOK {
		return domain.OrderIntentResult{}, relayError(status, reply.Error)
	}
	return domain.OrderIntentResult{OrderID: reply.ID, Status: reply.Status}, nil
}

type captureOrderBody struct {
	OrderID string `json:"orderID"`
}

type captureReply struct {
	domain.CaptureResult
	Error string `json:"error"`
}

func (r *HTTPRelayClient) CaptureOrder(ctx context.Context, orderID string) (domain.CaptureResult, error) {
	var reply captureReply
	status, err := r.post(ctx, "/capture-paypal-order", captureOrderBody{OrderID: orderID}, &reply)
	if err != nil {
		return domain.CaptureResult{}, err
	}
	if status != http.StatusOK {
		return domain.CaptureResult{}, relayError(status, reply.Error)
	}
	return reply.CaptureResult, nil
}

func (r *HTTPRelayClient) post(ctx context.Context, path string, body, reply any) (int, error) {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(sessionHeader, r.sessionID)

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(reply); err != nil {
		if resp.StatusCode != http.StatusOK {
			// Error bodies are not always JSON (a proxy's HTML 502);
			// the status code is still worth reporting.
			return resp.StatusCode, nil
		}
		return resp.StatusCode, fmt.Errorf("failed to decode relay response: %w", err)
	}
	return resp.StatusCode, nil
}

func relayError(status int, message string) error {
	if message == "" {
		message = fmt.Sprintf("relay returned status %d", status)
	}
	return fmt.Errorf("relay: %s", message)
}
