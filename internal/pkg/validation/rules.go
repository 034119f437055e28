package validation

import (
	"math/big"
	"regexp"
	"strings"
)

// Validation rule patterns
var (
	// WalletPattern is a 0x-prefixed 20-byte hex address, 42 characters in total
	WalletPattern = `^0x[0-9a-fA-F]{40}$`

	// NumericPattern matches an unsigned decimal of at most 78 digits (ids, grades)
	NumericPattern = `^[0-9]{1,78}$`

	// NameMaxLength limits free-text fields
	NameMaxLength = 200

	// UintBits is the width of ledger integers
	UintBits = 256
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Wallet  *regexp.Regexp
	Numeric *regexp.Regexp
}{
	Wallet:  regexp.MustCompile(WalletPattern),
	Numeric: regexp.MustCompile(NumericPattern),
}

// IsWalletAddress reports whether s is a well-formed wallet address
func IsWalletAddress(s string) bool {
	return len(s) == 42 && CompiledPatterns.Wallet.MatchString(s)
}

// IsNumeric reports whether s is an unsigned decimal integer that fits in a uint256
func IsNumeric(s string) bool {
	if !CompiledPatterns.Numeric.MatchString(s) {
		return false
	}
	n, ok := new(big.Int).SetString(s, 10)
	return ok && n.BitLen() <= UintBits
}

// FieldError describes one failed rule
type FieldError struct {
	Field   string
	Message string
}

// Rules collects field failures in the order they were checked
type Rules struct {
	errors []FieldError
}

// Required records a failure when value is blank
func (r *Rules) Required(field, value string) *Rules {
	if strings.TrimSpace(value) == "" {
		r.errors = append(r.errors, FieldError{Field: field, Message: field + " is required"})
	}
	return r
}

// Numeric records a failure when a non-empty value is not a decimal integer
func (r *Rules) Numeric(field, value string) *Rules {
	if value != "" && !IsNumeric(value) {
		r.errors = append(r.errors, FieldError{Field: field, Message: field + " must be an unsigned decimal integer below 2^256"})
	}
	return r
}

// MaxLength records a failure when value is longer than max bytes
func (r *Rules) MaxLength(field, value string, max int) *Rules {
	if len(value) > max {
		r.errors = append(r.errors, FieldError{Field: field, Message: field + " is too long"})
	}
	return r
}

// Wallet records a failure when a non-empty value is not a wallet address
func (r *Rules) Wallet(field, value string) *Rules {
	if value != "" && !IsWalletAddress(value) {
		r.errors = append(r.errors, FieldError{Field: field, Message: field + " must be 0x followed by 40 hex characters"})
	}
	return r
}

// Errors returns the collected failures
func (r *Rules) Errors() []FieldError {
	return r.errors
}

// First returns the first failure, if any
func (r *Rules) First() (FieldError, bool) {
	if len(r.errors) == 0 {
		return FieldError{}, false
	}
	return r.errors[0], true
}
