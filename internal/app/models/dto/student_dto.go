package dto

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentRequest holds the form fields of an enrollment upload. The diploma file is a
// separate multipart part.
type EnrollmentRequest struct {
	ID            string `form:"id" binding:"required,numeric,max=78" example:"42"`
	Name          string `form:"name" binding:"required,max=200" example:"Ada"`
	Course        string `form:"course" binding:"required,max=200" example:"CS"`
	BirthDate     string `form:"birthDate" binding:"required,max=64" example:"2000-01-01"`
	Grade         string `form:"grade" binding:"required,numeric,max=78" example:"18"`
	StudentWallet string `form:"studentWallet" binding:"required,wallet" example:"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"`
}

// EnrollmentResponse is returned once the student is enrolled on the ledger
type EnrollmentResponse struct {
	IssuanceID      uuid.UUID `json:"issuanceId"`
	StudentID       string    `json:"studentId" example:"42"`
	EnrollTxHash    string    `json:"enrollTxHash"`
	MetadataLocator string    `json:"metadataLocator" example:"https://gateway.pinata.cloud/ipfs/bafy..."`
	DisplayLocator  string    `json:"displayLocator"`
	ArtifactLocator string    `json:"artifactLocator"`
}

// MintRequest names the wallets that receive a diploma token. At least one is required.
type MintRequest struct {
	MetadataLocator string `json:"metadataLocator" binding:"required"`
	CustodyWallet   string `json:"custodyWallet" binding:"omitempty,wallet" example:"0x2222222222222222222222222222222222222222"`
	StudentWallet   string `json:"studentWallet" binding:"omitempty,wallet" example:"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"`
}

// MintResponse carries the mints that succeeded. On a partial failure it is returned
// alongside the error.
type MintResponse struct {
	IssuanceID     uuid.UUID `json:"issuanceId"`
	StudentID      string    `json:"studentId"`
	AdminTxHash    string    `json:"adminTxHash,omitempty"`
	AdminTokenID   string    `json:"adminTokenId,omitempty"`
	StudentTxHash  string    `json:"studentTxHash,omitempty"`
	StudentTokenID string    `json:"studentTokenId,omitempty"`
}

// RemovalResponse confirms a removal
type RemovalResponse struct {
	StudentID string `json:"studentId"`
	TxHash    string `json:"txHash"`
	Success   bool   `json:"success"`
}

// StudentView is an enrolled student as shown in listings
type StudentView struct {
	ID              string `json:"id" example:"42"`
	Name            string `json:"name" example:"Ada"`
	Course          string `json:"course" example:"CS"`
	BirthDate       string `json:"birthDate" example:"2000-01-01"`
	Grade           string `json:"grade" example:"18"`
	Wallet          string `json:"wallet"`
	TokenID         string `json:"tokenId" example:"0"`
	MetadataLocator string `json:"metadataLocator,omitempty"`
	DisplayLink     string `json:"displayLink,omitempty"`
}

// StudentListResponse wraps a listing. Pagination is set only when a page was requested.
type StudentListResponse struct {
	Students   []StudentView   `json:"students"`
	Total      int             `json:"total"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

// IssuanceResponse is a journal entry
type IssuanceResponse struct {
	ID             uuid.UUID `json:"id"`
	StudentID      string    `json:"studentId"`
	State          string    `json:"state"`
	ErrorKind      string    `json:"errorKind,omitempty"`
	ErrorCause     string    `json:"errorCause,omitempty"`
	ArtifactDigest string    `json:"artifactDigest,omitempty"`
	ArtifactURI    string    `json:"artifactUri,omitempty"`
	PreviewURI     string    `json:"previewUri,omitempty"`
	MetadataURI    string    `json:"metadataUri,omitempty"`
	EnrollTxHash   string    `json:"enrollTxHash,omitempty"`
	AdminTxHash    string    `json:"adminTxHash,omitempty"`
	AdminTokenID   string    `json:"adminTokenId,omitempty"`
	StudentTxHash  string    `json:"studentTxHash,omitempty"`
	StudentTokenID string    `json:"studentTokenId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
