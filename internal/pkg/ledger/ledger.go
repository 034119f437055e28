// Package ledger is a typed gateway over the StudentRegistry contract. Writes block until
// the transaction is mined; reads are side-effect free.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/yigit/diplomaregistry/internal/pkg/apperrors"
)

var (
	// ErrRejected means the contract refused the call (revert or failed receipt)
	ErrRejected = errors.New("ledger: call rejected by contract")
	// ErrNotSettled means a minted token id never became visible through the read accessors
	ErrNotSettled = errors.New("ledger: token id not visible before settle timeout")
	// ErrClosed is returned for writes submitted after the gateway was closed
	ErrClosed = errors.New("ledger: gateway closed")
	// ErrInvalidNumber is returned for ids and grades that are not unsigned decimal integers
	ErrInvalidNumber = errors.New("ledger: invalid unsigned integer")
)

// Enrollment is the input of addStudent
type Enrollment struct {
	ID        string
	Name      string
	Course    string
	BirthDate string
	Grade     string
	Wallet    string
}

// Student is the on-chain record
type Student struct {
	ID         string
	Name       string
	Course     string
	BirthDate  string
	Grade      string
	IsEnrolled bool
	Wallet     string
	TokenID    string
}

// HasToken reports whether a diploma token has been minted against the record
func (s *Student) HasToken() bool {
	return s.TokenID != "" && s.TokenID != "0"
}

// Receipt describes a mined transaction
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
}

// MintReceipt is the result of issueDiploma with the token id read back from the ledger
type MintReceipt struct {
	Receipt
	TokenID string
}

func parseUint(field, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, field, value)
	}
	return n, nil
}

// classify maps node and contract errors onto the gateway's error kinds. Nodes report fee
// problems as text, so matching is done on the message.
func classify(method string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("ledger: %s: %w: %v", method, apperrors.ErrInsufficientFunds, err)
	case strings.Contains(msg, "revert"):
		return fmt.Errorf("ledger: %s: %w: %v", method, ErrRejected, err)
	default:
		return fmt.Errorf("ledger: %s: %w", method, err)
	}
}
