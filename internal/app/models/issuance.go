package models

import (
	"time"

	"github.com/google/uuid"
)

// IssuanceState is a step of the issuance pipeline
type IssuanceState string

const (
	StateUploading        IssuanceState = "UPLOADING"
	StateMetadataBuilding IssuanceState = "METADATA_BUILDING"
	StateEnrolling        IssuanceState = "ENROLLING"
	StateEnrolled         IssuanceState = "ENROLLED"
	StateMintingAdmin     IssuanceState = "MINTING_ADMIN"
	StateMintingStudent   IssuanceState = "MINTING_STUDENT"
	StateComplete         IssuanceState = "COMPLETE"
	StateFailed           IssuanceState = "FAILED"
)

// allowed lists the forward transitions; FAILED is reachable from every non-terminal state.
// A mint request may skip MINTING_ADMIN or MINTING_STUDENT when only one wallet is given.
var allowed = map[IssuanceState][]IssuanceState{
	StateUploading:        {StateMetadataBuilding},
	StateMetadataBuilding: {StateEnrolling},
	StateEnrolling:        {StateEnrolled},
	StateEnrolled:         {StateMintingAdmin, StateMintingStudent},
	StateMintingAdmin:     {StateMintingStudent, StateComplete},
	StateMintingStudent:   {StateComplete},
}

// Terminal reports whether no further transition is possible
func (s IssuanceState) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// CanTransition reports whether the pipeline may move from s to next
func (s IssuanceState) CanTransition(next IssuanceState) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	for _, candidate := range allowed[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IssuanceRecord is the journal entry of one issuance, updated at every transition
type IssuanceRecord struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	StudentID      string        `json:"studentId" db:"student_id"`
	State          IssuanceState `json:"state" db:"state"`
	ErrorKind      string        `json:"errorKind,omitempty" db:"error_kind"`
	ErrorCause     string        `json:"errorCause,omitempty" db:"error_cause"`
	ArtifactDigest string        `json:"artifactDigest,omitempty" db:"artifact_digest"`
	ArtifactURI    string        `json:"artifactUri,omitempty" db:"artifact_uri"`
	PreviewURI     string        `json:"previewUri,omitempty" db:"preview_uri"`
	MetadataURI    string        `json:"metadataUri,omitempty" db:"metadata_uri"`
	EnrollTxHash   string        `json:"enrollTxHash,omitempty" db:"enroll_tx_hash"`
	AdminTxHash    string        `json:"adminTxHash,omitempty" db:"admin_tx_hash"`
	AdminTokenID   string        `json:"adminTokenId,omitempty" db:"admin_token_id"`
	StudentTxHash  string        `json:"studentTxHash,omitempty" db:"student_tx_hash"`
	StudentTokenID string        `json:"studentTokenId,omitempty" db:"student_token_id"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`
}

// NewIssuanceRecord starts a journal entry in the given state
func NewIssuanceRecord(studentID string, state IssuanceState) *IssuanceRecord {
	now := time.Now().UTC()
	return &IssuanceRecord{
		ID:        uuid.New(),
		StudentID: studentID,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
