package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Order statuses as reported by PayPal.
const (
	StatusCreated             = "CREATED"
	StatusPayerActionRequired = "PAYER_ACTION_REQUIRED"
	StatusCompleted           = "COMPLETED"
)

var (
	ErrValidation    = errors.New("invalid payment request")
	ErrOrderNotBound = errors.New("order not issued for this session")
	ErrUserCancelled = errors.New("payment cancelled by user")
)

// UpstreamError carries the processor's own rejection message so the
// relay can surface it without inventing one.
type UpstreamError struct {
	Message string
	DebugID string
}

func (e *UpstreamError) Error() string {
	if e.DebugID != "" {
		return fmt.Sprintf("paypal: %s (debug_id=%s)", e.Message, e.DebugID)
	}
	return "paypal: " + e.Message
}

func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// Amount is a raw client-supplied amount. It accepts both JSON string
// and number representations, and keeps the literal text so no float
// conversion ever happens.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	*a = Amount(data)
	return nil
}

func (a Amount) String() string { return string(a) }

// PaymentRequest is the client-supplied body of a create-order call.
// Amount is normalized to a two-decimal string before anything touches
// the wire.
type PaymentRequest struct {
	Amount         Amount `json:"amount" validate:"required"`
	Currency       string `json:"currency" validate:"omitempty,len=3,alpha"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,max=64"`
}

// OrderIntent is what the relay sends to PayPal: a single purchase unit
// captured immediately on approval.
type OrderIntent struct {
	Value       string
	Currency    string
	Description string
}

type OrderIntentResult struct {
	OrderID string
	Status  string
}

type Payer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// CaptureResult is the relay's output contract, the only entity a
// downstream ledger would persist. Success reflects the transport-level
// outcome; callers must still inspect Status, since PayPal can return a
// declined capture inside a 2xx response.
type CaptureResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderID"`
	Status  string `json:"status"`
	Payer   Payer  `json:"payer"`
	Amount  Money  `json:"amount"`
}
