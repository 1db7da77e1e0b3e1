package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeAmount turns a client-supplied amount into the fixed
// two-decimal string PayPal expects. Amounts are never handled as
// floats: the raw text is parsed as a decimal and rejected when it is
// not positive or carries more than two fractional digits.
func NormalizeAmount(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: amount is required", ErrValidation)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", fmt.Errorf("%w: amount %q is not a number", ErrValidation, raw)
	}
	if !d.IsPositive() {
		return "", fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	}
	if d.Exponent() < -2 {
		return "", fmt.Errorf("%w: amount %q has more than two decimal places", ErrValidation, raw)
	}

	return d.StringFixed(2), nil
}

// NormalizeCurrency uppercases a three-letter currency code, falling
// back to the given default when the client sent none.
func NormalizeCurrency(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	return strings.ToUpper(raw)
}
