package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkout/internal/core/domain"
	"checkout/internal/metrics"
)

// Gateway is the processor-facing side of the relay.
type Gateway interface {
	CreateOrder(ctx context.Context, intent domain.OrderIntent, requestID string) (domain.OrderIntentResult, error)
	CaptureOrder(ctx context.Context, orderID string) (domain.CaptureResult, error)
}

// OrderRegistry remembers which session an order id was issued to.
type OrderRegistry interface {
	Bind(ctx context.Context, sessionID, orderID string) error
	IsBound(ctx context.Context, sessionID, orderID string) (bool, error)
}

type CheckoutService struct {
	gateway         Gateway
	registry        OrderRegistry
	metrics         *metrics.Metrics
	log             *zap.Logger
	defaultCurrency string
	description     string
}

func NewCheckoutService(gw Gateway, registry OrderRegistry, m *metrics.Metrics, log *zap.Logger, defaultCurrency, description string) *CheckoutService {
	return &CheckoutService{
		gateway:         gw,
		registry:        registry,
		metrics:         m,
		log:             log.With(zap.String("component", "checkout_service")),
		defaultCurrency: defaultCurrency,
		description:     description,
	}
}

// CreateOrder validates and normalizes the payment request, opens a
// purchase intent at the processor, and binds the returned order id to
// the caller's session. Validation happens before any network call.
func (s *CheckoutService) CreateOrder(ctx context.Context, sessionID string, req domain.PaymentRequest) (domain.OrderIntentResult, error) {
	value, err := domain.NormalizeAmount(req.Amount.String())
	if err != nil {
		return domain.OrderIntentResult{}, err
	}
	currency := domain.NormalizeCurrency(req.Currency, s.defaultCurrency)

	// Caller-supplied key lets a retried request reuse the same order
	// at the processor. Without one, every call opens a fresh order.
	requestID := req.IdempotencyKey
	if requestID == "" {
		requestID = uuid.NewString()
	}

	result, err := s.gateway.CreateOrder(ctx, domain.OrderIntent{
		Value:       value,
		Currency:    currency,
		Description: s.description,
	}, requestID)
	if err != nil {
		s.log.Warn("order creation failed", zap.Error(err))
		return domain.OrderIntentResult{}, err
	}

	if err := s.registry.Bind(ctx, sessionID, result.OrderID); err != nil {
		// An unbound order could never be captured, so fail loudly now.
		s.log.Error("failed to bind order to session", zap.String("order_id", result.OrderID), zap.Error(err))
		return domain.OrderIntentResult{}, fmt.Errorf("failed to register order: %w", err)
	}

	s.metrics.OrdersCreated.Inc()
	s.log.Info("order initiated",
		zap.String("order_id", result.OrderID),
		zap.String("status", result.Status),
		zap.String("value", value),
		zap.String("currency", currency))

	return result, nil
}

// CaptureOrder finalizes an approved order. The order must have been
// issued to this very session by a prior CreateOrder; anything else is
// rejected before the processor is contacted.
func (s *CheckoutService) CaptureOrder(ctx context.Context, sessionID, orderID string) (domain.CaptureResult, error) {
	if orderID == "" {
		return domain.CaptureResult{}, fmt.Errorf("%w: orderID is required", domain.ErrValidation)
	}
	if sessionID == "" {
		return domain.CaptureResult{}, domain.ErrOrderNotBound
	}

	bound, err := s.registry.IsBound(ctx, sessionID, orderID)
	if err != nil {
		return domain.CaptureResult{}, fmt.Errorf("failed to check order binding: %w", err)
	}
	if !bound {
		s.log.Warn("capture rejected for unbound order", zap.String("order_id", orderID))
		return domain.CaptureResult{}, domain.ErrOrderNotBound
	}

	result, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		s.metrics.Captures.WithLabelValues("failed").Inc()
		s.log.Warn("capture failed", zap.String("order_id", orderID), zap.Error(err))
		return domain.CaptureResult{}, err
	}

	outcome := "completed"
	if result.Status != domain.StatusCompleted {
		// Transport succeeded but the processor reported a non-terminal
		// status. Surfaced as-is; the caller decides what to do with it.
		outcome = "not_completed"
	}
	s.metrics.Captures.WithLabelValues(outcome).Inc()

	s.log.Info("capture finished",
		zap.String("order_id", result.OrderID),
		zap.String("status", result.Status),
		zap.String("payer_email", result.Payer.Email))

	return result, nil
}
