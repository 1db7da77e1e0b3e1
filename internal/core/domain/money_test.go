package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "integer", raw: "10", want: "10.00"},
		{name: "one decimal", raw: "9.5", want: "9.50"},
		{name: "two decimals", raw: "9.99", want: "9.99"},
		{name: "whitespace trimmed", raw: " 10.5 ", want: "10.50"},
		{name: "large amount", raw: "10000", want: "10000.00"},
		{name: "three decimals rejected", raw: "9.999", wantErr: true},
		{name: "zero rejected", raw: "0", wantErr: true},
		{name: "negative rejected", raw: "-5", wantErr: true},
		{name: "non numeric rejected", raw: "ten", wantErr: true},
		{name: "empty rejected", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAmount(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation), "expected a validation error, got %v", err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "USD", NormalizeCurrency("", "USD"))
	assert.Equal(t, "EUR", NormalizeCurrency("eur", "USD"))
	assert.Equal(t, "BRL", NormalizeCurrency(" BRL ", "USD"))
}
