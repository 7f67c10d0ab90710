package calculator

import (
	"fmt"
	"math"
)

// FeeType selects how a fee is derived from an amount.
type FeeType string

const (
	FeeFlat       FeeType = "amount"
	FeePercentage FeeType = "percentage"
)

// Fee is an administrator-configured charge.
type Fee struct {
	Type  FeeType
	Value float64
}

// For returns the fee charged on amount.
func (f Fee) For(amount int64) (int64, error) {
	switch f.Type {
	case FeeFlat:
		return int64(math.Floor(f.Value)), nil
	case FeePercentage:
		if amount <= 0 {
			return 0, nil
		}
		return int64(math.Floor(float64(amount) * f.Value / 100)), nil
	default:
		return 0, fmt.Errorf("unknown fee type %q", f.Type)
	}
}

// WithdrawalTotal returns the fee on a withdrawal and the total debited
// from the balance.
func WithdrawalTotal(amount int64, f Fee) (fee int64, total int64, err error) {
	fee, err = f.For(amount)
	if err != nil {
		return 0, 0, err
	}
	return fee, amount + fee, nil
}
