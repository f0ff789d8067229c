package domain

import (
	"fmt"
	"regexp"
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,15}$`)

// ValidateCurrency checks a soft-currency code ("GEMS", "COINS", "GOLD_BARS").
func ValidateCurrency(code string) error {
	if !currencyCodeRe.MatchString(code) {
		return ErrValidation(fmt.Sprintf("invalid currency code: %q", code))
	}
	return nil
}

// ValidateNonNegativeAmount rejects negative amounts. Zero is allowed.
func ValidateNonNegativeAmount(amount int64) error {
	if amount < 0 {
		return ErrValidation(fmt.Sprintf("amount must be non-negative, got %d", amount))
	}
	return nil
}

// ValidateOfferID checks that an offer id is present.
func ValidateOfferID(id string) error {
	if id == "" {
		return ErrValidation("offer id is required")
	}
	return nil
}
