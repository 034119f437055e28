package services

import (
	"context"

	"github.com/yigit/diplomaregistry/internal/pkg/ledger"
)

// Services defined in this package:
// - IssuanceService: publishes diplomas, enrolls students and mints credential tokens
// - RegistryService: lists enrolled students with resolved display links
// - AuthService: registrar login

// LedgerWriter is the write side of the ledger gateway
type LedgerWriter interface {
	Enroll(ctx context.Context, e ledger.Enrollment) (*ledger.Receipt, error)
	IssueToken(ctx context.Context, studentID, recipient, metadataURI string) (*ledger.MintReceipt, error)
	Remove(ctx context.Context, studentID string) (*ledger.Receipt, error)
}

// LedgerReader is the read side of the ledger gateway
type LedgerReader interface {
	GetStudent(ctx context.Context, studentID string) (*ledger.Student, error)
	GetTotalEnrolled(ctx context.Context) (uint64, error)
	GetStudentIDAt(ctx context.Context, index uint64) (string, error)
	GetTokenMetadataLocator(ctx context.Context, tokenID string) (string, error)
}

// LedgerGateway is implemented by *ledger.Gateway
type LedgerGateway interface {
	LedgerWriter
	LedgerReader
}

// ContentFetcher reads published content back by locator
type ContentFetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}
