package snip20

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for amounts that are not Uint128 decimal strings.
var ErrInvalidAmount = errors.New("invalid amount")

var maxUint128 = decimal.RequireFromString("340282366920938463463374607431768211455")

// ParseAmount parses a Uint128 decimal string.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q: %v", ErrInvalidAmount, s, err)
	}
	if !d.IsInteger() || d.IsNegative() || d.GreaterThan(maxUint128) {
		return decimal.Zero, fmt.Errorf("%w %q: not a uint128", ErrInvalidAmount, s)
	}
	return d, nil
}

// ValidateAmount checks that s is a Uint128 decimal string.
func ValidateAmount(s string) error {
	_, err := ParseAmount(s)
	return err
}

// AddAmounts returns a + b.
func AddAmounts(a, b string) (string, error) {
	da, err := ParseAmount(a)
	if err != nil {
		return "", err
	}
	db, err := ParseAmount(b)
	if err != nil {
		return "", err
	}
	sum := da.Add(db)
	if sum.GreaterThan(maxUint128) {
		return "", fmt.Errorf("%w: overflow", ErrInvalidAmount)
	}
	return sum.String(), nil
}

// SubAmounts returns a - b, failing when b exceeds a.
func SubAmounts(a, b string) (string, error) {
	da, err := ParseAmount(a)
	if err != nil {
		return "", err
	}
	db, err := ParseAmount(b)
	if err != nil {
		return "", err
	}
	if da.LessThan(db) {
		return "", fmt.Errorf("%w: %s is less than %s", ErrInvalidAmount, a, b)
	}
	return da.Sub(db).String(), nil
}

// CompareAmounts returns -1, 0 or 1 as a is less than, equal to or greater than b.
func CompareAmounts(a, b string) (int, error) {
	da, err := ParseAmount(a)
	if err != nil {
		return 0, err
	}
	db, err := ParseAmount(b)
	if err != nil {
		return 0, err
	}
	return da.Cmp(db), nil
}
