package quote

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

const (
	baseFee             = 20.00
	costPerKg           = 5.00
	internationalFactor = 1.5

	// Currency of every quote.
	Currency = "USD"
)

// ErrInvalidWeight is returned for absent, zero or negative weights.
var ErrInvalidWeight = errors.New("weight must be a valid number greater than zero")

type Quote struct {
	Amount   float64 `json:"quote"`
	Currency string  `json:"currency"`
}

// Calculate prices a shipment: base fee plus a per-kilogram rate, times the
// international surcharge when origin and destination fall in different
// zones. The amount is rounded to two decimals, halves away from zero.
// Pure function, safe for concurrent use.
func Calculate(origin, destination string, weight float64) (Quote, error) {
	if math.IsNaN(weight) || weight <= 0 {
		return Quote{}, ErrInvalidWeight
	}

	amount := baseFee + weight*costPerKg
	if Zone(origin) != Zone(destination) {
		amount *= internationalFactor
	}

	return Quote{Amount: round2(amount), Currency: Currency}, nil
}

// Zone is the address part after the last comma, trimmed and lowercased.
// An address without a comma is its own zone, so two identical comma-less
// addresses count as domestic.
func Zone(addr string) string {
	if i := strings.LastIndex(addr, ","); i >= 0 {
		addr = addr[i+1:]
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
