package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"checkout/internal/config"
	"checkout/internal/core/domain"
	"checkout/internal/infra/circuitbreaker"
	"checkout/internal/metrics"
)

// PayPalGateway is the relay's only outbound dependency: the PayPal
// Orders v2 REST API. It owns OAuth2 token exchange and caching; the
// checkout-server-sdk used to hide this behind a client object.
type PayPalGateway struct {
	client       *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	breaker      *circuitbreaker.CircuitBreaker
	metrics      *metrics.Metrics
	log          *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalGateway(cfg *config.Settings, breaker *circuitbreaker.CircuitBreaker, m *metrics.Metrics, log *zap.Logger) *PayPalGateway {
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        64,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     120 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
		Timeout: cfg.ProcessorTimeout,
	}

	return &PayPalGateway{
		client:       client,
		baseURL:      strings.TrimRight(cfg.PayPalBaseURL, "/"),
		clientID:     cfg.PayPalClientID,
		clientSecret: cfg.PayPalClientSecret,
		breaker:      breaker,
		metrics:      m,
		log:          log.With(zap.String("component", "paypal_gateway")),
	}
}

// ---- wire types (PayPal Orders v2) ----

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount      orderAmount `json:"amount"`
	Description string      `json:"description,omitempty"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type captureResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Payer  struct {
		EmailAddress string `json:"email_address"`
		Name         struct {
			GivenName string `json:"given_name"`
			Surname   string `json:"surname"`
		} `json:"name"`
	} `json:"payer"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string      `json:"id"`
				Status string      `json:"status"`
				Amount orderAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	DebugID string `json:"debug_id"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
	OAuthError       string `json:"error"`
	OAuthDescription string `json:"error_description"`
}

func (e apiError) upstream(statusCode int) *domain.UpstreamError {
	msg := e.Message
	if len(e.Details) > 0 {
		if e.Details[0].Description != "" {
			msg = e.Details[0].Description
		} else if e.Details[0].Issue != "" {
			msg = e.Details[0].Issue
		}
	}
	if msg == "" {
		msg = e.OAuthDescription
	}
	if msg == "" {
		msg = e.OAuthError
	}
	if msg == "" {
		msg = fmt.Sprintf("processor returned status %d", statusCode)
	}
	return &domain.UpstreamError{Message: msg, DebugID: e.DebugID}
}

// ---- OAuth2 ----

const tokenExpirySkew = 60 * time.Second

func (g *PayPalGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && time.Now().Before(g.tokenExpiry) {
		return g.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(g.clientID, g.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e apiError
		_ = sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&e)
		if e.Message == "" && e.OAuthDescription == "" && e.OAuthError == "" {
			e.Message = "invalid processor credentials"
		}
		return "", e.upstream(resp.StatusCode)
	}

	var tr tokenResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	g.accessToken = tr.AccessToken
	g.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpirySkew)
	g.log.Info("access token refreshed", zap.Int("expires_in", tr.ExpiresIn))

	return g.accessToken, nil
}

// ---- operations ----

// CreateOrder opens a purchase intent at PayPal. requestID is forwarded
// as PayPal-Request-Id so a network-level retry by the caller does not
// open a second order.
func (g *PayPalGateway) CreateOrder(ctx context.Context, intent domain.OrderIntent, requestID string) (domain.OrderIntentResult, error) {
	if !g.breaker.CanExecute() {
		return domain.OrderIntentResult{}, &domain.UpstreamError{Message: "processor temporarily unavailable"}
	}

	token, err := g.token(ctx)
	if err != nil {
		g.breaker.OnFailure()
		return domain.OrderIntentResult{}, err
	}

	payload, err := sonic.Marshal(createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount:      orderAmount{CurrencyCode: intent.Currency, Value: intent.Value},
			Description: intent.Description,
		}},
	})
	if err != nil {
		return domain.OrderIntentResult{}, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v2/checkout/orders", bytes.NewReader(payload))
	if err != nil {
		return domain.OrderIntentResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Prefer", "return=representation")
	req.Header.Set("PayPal-Request-Id", requestID)

	start := time.Now()
	resp, err := g.client.Do(req)
	g.metrics.ProcessorLatency.WithLabelValues("create_order").Observe(time.Since(start).Seconds())
	if err != nil {
		g.breaker.OnFailure()
		return domain.OrderIntentResult{}, fmt.Errorf("order creation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			g.breaker.OnFailure()
		}
		var e apiError
		_ = sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&e)
		return domain.OrderIntentResult{}, e.upstream(resp.StatusCode)
	}

	var order orderResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&order); err != nil {
		return domain.OrderIntentResult{}, fmt.Errorf("failed to decode order response: %w", err)
	}

	g.breaker.OnSuccess()
	g.log.Info("order created", zap.String("order_id", order.ID), zap.String("status", order.Status))

	return domain.OrderIntentResult{OrderID: order.ID, Status: order.Status}, nil
}

// CaptureOrder finalizes an approved order. The body is an empty JSON
// object: no partial-capture override. Never retried here; a lost
// response after a successful capture upstream would otherwise risk a
// duplicate charge attempt.
func (g *PayPalGateway) CaptureOrder(ctx context.Context, orderID string) (domain.CaptureResult, error) {
	token, err := g.token(ctx)
	if err != nil {
		return domain.CaptureResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture",
		bytes.NewReader([]byte("{}")))
	if err != nil {
		return domain.CaptureResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := g.client.Do(req)
	g.metrics.ProcessorLatency.WithLabelValues("capture_order").Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.CaptureResult{}, fmt.Errorf("capture request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e apiError
		_ = sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&e)
		return domain.CaptureResult{}, e.upstream(resp.StatusCode)
	}

	var capture captureResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&capture); err != nil {
		return domain.CaptureResult{}, fmt.Errorf("failed to decode capture response: %w", err)
	}

	result := domain.CaptureResult{
		Success: true,
		OrderID: capture.ID,
		Status:  capture.Status,
		Payer: domain.Payer{
			Email: capture.Payer.EmailAddress,
			Name:  strings.TrimSpace(capture.Payer.Name.GivenName + " " + capture.Payer.Name.Surname),
		},
	}
	if len(capture.PurchaseUnits) > 0 && len(capture.PurchaseUnits[0].Payments.Captures) > 0 {
		amount := capture.PurchaseUnits[0].Payments.Captures[0].Amount
		result.Amount = domain.Money{Value: amount.Value, Currency: amount.CurrencyCode}
	}

	g.log.Info("payment captured",
		zap.String("order_id", result.OrderID),
		zap.String("status", result.Status))

	return result, nil
}
