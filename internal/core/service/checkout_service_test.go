package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"checkout/internal/core/domain"
	"checkout/internal/infra/storage"
	"checkout/internal/metrics"
)

type fakeGateway struct {
	createCalls  int
	captureCalls int
	requestIDs   []string
	captured     map[string]bool
	createErr    error
	captureErr   error
	status       string
}

func (f *fakeGateway) CreateOrder(_ context.Context, _ domain.OrderIntent, requestID string) (domain.OrderIntentResult, error) {
	f.createCalls++
	f.requestIDs = append(f.requestIDs, requestID)
	if f.createErr != nil {
		return domain.OrderIntentResult{}, f.createErr
	}
	return domain.OrderIntentResult{
		OrderID: fmt.Sprintf("ORDER%d", 122+f.createCalls),
		Status:  domain.StatusCreated,
	}, nil
}

func (f *fakeGateway) CaptureOrder(_ context.Context, orderID string) (domain.CaptureResult, error) {
	f.captureCalls++
	if f.captureErr != nil {
		return domain.CaptureResult{}, f.captureErr
	}
	if f.captured == nil {
		f.captured = make(map[string]bool)
	}
	if f.captured[orderID] {
		return domain.CaptureResult{}, &domain.UpstreamError{Message: "ORDER_ALREADY_CAPTURED"}
	}
	f.captured[orderID] = true

	status := f.status
	if status == "" {
		status = domain.StatusCompleted
	}
	return domain.CaptureResult{
		Success: true,
		OrderID: orderID,
		Status:  status,
		Payer:   domain.Payer{Email: "buyer@example.com", Name: "John Doe"},
		Amount:  domain.Money{Value: "10.00", Currency: "USD"},
	}, nil
}

func newTestService(gw *fakeGateway) (*CheckoutService, *storage.MemoryRegistry) {
	registry := storage.NewMemoryRegistry(time.Minute)
	m := metrics.New(prometheus.NewRegistry())
	svc := NewCheckoutService(gw, registry, m, zap.NewNop(), "USD", "Test Payment Product")
	return svc, registry
}

func paymentRequest(amount string) domain.PaymentRequest {
	return domain.PaymentRequest{Amount: domain.Amount(amount), Currency: "USD"}
}

func TestCreateOrderReturnsProcessorOrder(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw)

	result, err := svc.CreateOrder(context.Background(), "sess-1", paymentRequest("10.00"))
	require.NoError(t, err)
	assert.Equal(t, "ORDER123", result.OrderID)
	assert.Equal(t, domain.StatusCreated, result.Status)
}

func TestCreateOrderValidatesBeforeNetworkCall(t *testing.T) {
	tests := []string{"0", "-1", "abc", "9.999", ""}
	for _, amount := range tests {
		t.Run("amount "+amount, func(t *testing.T) {
			gw := &fakeGateway{}
			svc, _ := newTestService(gw)

			_, err := svc.CreateOrder(context.Background(), "sess-1", paymentRequest(amount))
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, gw.createCalls, "gateway must not be contacted for invalid input")
		})
	}
}

func TestCreateOrderTwiceCreatesTwoOrders(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw)

	first, err := svc.CreateOrder(context.Background(), "sess-1", paymentRequest("10.00"))
	require.NoError(t, err)
	second, err := svc.CreateOrder(context.Background(), "sess-1", paymentRequest("10.00"))
	require.NoError(t, err)

	assert.NotEqual(t, first.OrderID, second.OrderID)
	require.Len(t, gw.requestIDs, 2)
	assert.NotEqual(t, gw.requestIDs[0], gw.requestIDs[1], "unkeyed calls must carry distinct request ids")
}

func TestCreateOrderForwardsIdempotencyKey(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw)

	req := paymentRequest("10.00")
	req.IdempotencyKey = "retry-key-7"
	_, err := svc.CreateOrder(context.Background(), "sess-1", req)
	require.NoError(t, err)

	require.Len(t, gw.requestIDs, 1)
	assert.Equal(t, "retry-key-7", gw.requestIDs[0])
}

func TestCreateOrderPropagatesUpstreamError(t *testing.T) {
	gw := &fakeGateway{createErr: &domain.UpstreamError{Message: "INVALID_CURRENCY_CODE"}}
	svc, _ := newTestService(gw)

	_, err := svc.CreateOrder(context.Background(), "sess-1", paymentRequest("10.00"))
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))
	assert.Contains(t, err.Error(), "INVALID_CURRENCY_CODE")
}

func TestCaptureOrderHappyPath(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw)

	created, err := svc.CreateOrder(context.Background(), "sess-1", paymentRequest("10.00"))
	require.NoError(t, err)

	result, err := svc.CaptureOrder(context.Background(), "sess-1", created.OrderID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.Equal(t, created.OrderID, result.OrderID)
	assert.Equal(t, domain.Money{Value: "10.00", Currency: "USD"}, result.Amount)
}

func TestCaptureOrderRejectsUnknownOrder(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw)

	_, err := svc.CaptureOrder(context.Background(), "sess-1", "FORGED-ID")
	assert.ErrorIs(t, err, domain.ErrOrderNotBound)
	assert.Zero(t, gw.captureCalls, "processor must not see a capture for an order the relay never issued")
}

func TestCaptureOrderRejectsForeignSession(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw)

	created, err := svc.CreateOrder(context.Background(), "sess-1", paymentRequest("10.00"))
	require.NoError(t, err)

	_, err = svc.CaptureOrder(context.Background(), "sess-2", created.OrderID)
	assert.ErrorIs(t, err, domain.ErrOrderNotBound)
	assert.Zero(t, gw.captureCalls)
}

func TestCaptureOrderRejectsEmptyID(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw)

	_, err := svc.CaptureOrder(context.Background(), "sess-1", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCaptureOrderTwiceFailsSecondTime(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw)

	created, err := svc.CreateOrder(context.Background(), "sess-1", paymentRequest("10.00"))
	require.NoError(t, err)

	_, err = svc.CaptureOrder(context.Background(), "sess-1", created.OrderID)
	require.NoError(t, err)

	_, err = svc.CaptureOrder(context.Background(), "sess-1", created.OrderID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORDER_ALREADY_CAPTURED")
}

func TestCaptureOrderSurfacesNonCompletedStatus(t *testing.T) {
	gw := &fakeGateway{status: "DECLINED"}
	svc, _ := newTestService(gw)

	created, err := svc.CreateOrder(context.Background(), "sess-1", paymentRequest("10.00"))
	require.NoError(t, err)

	result, err := svc.CaptureOrder(context.Background(), "sess-1", created.OrderID)
	require.NoError(t, err)
	assert.True(t, result.Success, "transport-level success is reported as-is")
	assert.Equal(t, "DECLINED", result.Status, "status must be surfaced for the caller to inspect")
}

func TestCreateOrderFailsWhenBindingFails(t *testing.T) {
	gw := &fakeGateway{}
	registry := &failingRegistry{}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewCheckoutService(gw, registry, m, zap.NewNop(), "USD", "Test Payment Product")

	_, err := svc.CreateOrder(context.Background(), "sess-1", paymentRequest("10.00"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrValidation))
}

type failingRegistry struct{}

func (failingRegistry) Bind(context.Context, string, string) error { return errors.New("redis down") }
func (failingRegistry) IsBound(context.Context, string, string) (bool, error) {
	return false, errors.New("redis down")
}
