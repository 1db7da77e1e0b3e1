package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"checkout/internal/core/domain"
)

// State of one payment attempt as seen by the widget driver.
type State string

const (
	StateIdle             State = "IDLE"
	StateCreating         State = "CREATING"
	StateAwaitingApproval State = "AWAITING_APPROVAL"
	StateCapturing        State = "CAPTURING"
	StateSucceeded        State = "SUCCEEDED"
	StateFailed           State = "FAILED"
	StateCancelled        State = "CANCELLED"
)

// ErrClosed is returned by hooks invoked on a controller that has been
// torn down, which is how a stale in-flight callback from a previous
// render is neutralized.
var ErrClosed = errors.New("widget: controller closed")

// RelayClient is the controller's view of the relay server.
type RelayClient interface {
	CreateOrder(ctx context.Context, amount, currency string) (domain.OrderIntentResult, error)
	CaptureOrder(ctx context.Context, orderID string) (domain.CaptureResult, error)
}

// Controller drives the processor's hosted widget through one payment
// attempt. It replaces the reference frontend's closures over a mutable
// amount: the amount is captured by value at construction, and a new
// controller is built whenever the amount changes. The four hook
// methods mirror the widget's createOrder/onApprove/onCancel/onError
// callbacks and can be driven by tests without a real widget.
type Controller struct {
	relay    RelayClient
	amount   string
	currency string
	log      *zap.Logger

	mu      sync.Mutex
	state   State
	orderID string
	result  domain.CaptureResult
	err     error
	closed  bool
}

func NewController(relay RelayClient, amount, currency string, log *zap.Logger) *Controller {
	return &Controller{
		relay:    relay,
		amount:   amount,
		currency: currency,
		log:      log.With(zap.String("component", "widget_controller")),
		state:    StateIdle,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the capture result of a finished attempt. Valid once
// the state is Succeeded, and after a soft failure for inspection of
// the reported status.
func (c *Controller) Result() domain.CaptureResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close tears the controller down. Called on unmount or when the
// amount changes; every hook afterwards is a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// CreateOrder is the widget's createOrder hook: it asks the relay to
// open an order and hands the order id back to the widget.
func (c *Controller) CreateOrder(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.state != StateIdle {
		s := c.state
		c.mu.Unlock()
		return "", fmt.Errorf("widget: cannot create order in state %s", s)
	}
	c.state = StateCreating
	c.mu.Unlock()

	result, err := c.relay.CreateOrder(ctx, c.amount, c.currency)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrClosed
	}
	if c.state != StateCreating {
		// Cancel or Fail ran while the relay call was in flight; the
		// resumption is stale and must not undo that transition.
		if c.err != nil {
			return "", c.err
		}
		return "", fmt.Errorf("widget: order creation resumed in state %s", c.state)
	}
	if err != nil {
		c.state = StateFailed
		c.err = err
		c.log.Warn("order creation failed", zap.Error(err))
		return "", err
	}

	c.state = StateAwaitingApproval
	c.orderID = result.OrderID
	c.log.Info("order created, awaiting approval", zap.String("order_id", result.OrderID))
	return result.OrderID, nil
}

// Approve is the widget's onApprove hook, invoked after the payer has
// authorized the payment inside the processor's own UI. It issues the
// capture call; the attempt succeeds only when the capture is both
// transport-successful and reports the terminal COMPLETED status.
func (c *Controller) Approve(ctx context.Context, orderID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateAwaitingApproval {
		s := c.state
		c.mu.Unlock()
		return fmt.Errorf("widget: cannot approve in state %s", s)
	}
	if orderID != c.orderID {
		c.state = StateFailed
		c.err = fmt.Errorf("widget: approved order %s does not match created order %s", orderID, c.orderID)
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.state = StateCapturing
	c.mu.Unlock()

	result, err := c.relay.CaptureOrder(ctx, orderID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state != StateCapturing {
		// Same stale-resumption guard as CreateOrder: a transition
		// taken during the capture call wins.
		if c.err != nil {
			return c.err
		}
		return fmt.Errorf("widget: capture resumed in state %s", c.state)
	}
	if err != nil {
		c.state = StateFailed
		c.err = err
		c.log.Warn("capture failed", zap.String("order_id", orderID), zap.Error(err))
		return err
	}

	c.result = result
	if result.Success && result.Status == domain.StatusCompleted {
		c.state = StateSucceeded
		c.log.Info("payment succeeded",
			zap.String("order_id", result.OrderID),
			zap.String("payer", result.Payer.Name))
		return nil
	}

	// Declined inside a 2xx response: a soft failure the success flag
	// alone would hide.
	c.state = StateFailed
	c.err = fmt.Errorf("widget: capture finished with status %s", result.Status)
	return c.err
}

// Cancel is the widget's onCancel hook. Cancellation needs no server
// call and is only possible before the capture call has been issued.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	switch c.state {
	case StateIdle, StateCreating, StateAwaitingApproval:
		c.state = StateCancelled
		c.err = domain.ErrUserCancelled
		c.log.Info("payment cancelled by user")
	}
}

// Fail is the widget's onError hook for rendering or network faults
// reported by the widget itself.
func (c *Controller) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	switch c.state {
	case StateSucceeded, StateFailed, StateCancelled:
		return
	}
	c.state = StateFailed
	c.err = err
	c.log.Warn("widget reported error", zap.Error(err))
}
