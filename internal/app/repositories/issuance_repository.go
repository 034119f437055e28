package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/diplomaregistry/internal/app/models"
	"github.com/yigit/diplomaregistry/internal/pkg/dberrors"
)

// Issuance journal error types
var (
	ErrIssuanceNotFound = errors.New("issuance record not found")
	ErrIssuanceExists   = errors.New("issuance record already exists")
)

const issuancePrimaryKey = "issuance_records_pkey"

// IssuanceRepository persists issuance journal entries
type IssuanceRepository interface {
	Create(ctx context.Context, record *models.IssuanceRecord) error
	Update(ctx context.Context, record *models.IssuanceRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.IssuanceRecord, error)
	FindLatestByStudent(ctx context.Context, studentID string) (*models.IssuanceRecord, error)
}

// PostgresIssuanceRepository stores the journal in the issuance_records table
type PostgresIssuanceRepository struct {
	db *pgxpool.Pool
}

// NewPostgresIssuanceRepository creates a new Postgres-backed journal
func NewPostgresIssuanceRepository(db *pgxpool.Pool) *PostgresIssuanceRepository {
	return &PostgresIssuanceRepository{
		db: db,
	}
}

const issuanceColumns = `id, student_id, state, error_kind, error_cause, artifact_digest, artifact_uri,
	preview_uri, metadata_uri, enroll_tx_hash, admin_tx_hash, admin_token_id, student_tx_hash,
	student_token_id, created_at, updated_at`

// Create inserts a new journal entry
func (r *PostgresIssuanceRepository) Create(ctx context.Context, record *models.IssuanceRecord) error {
	query := `
		INSERT INTO issuance_records (` + issuanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.Exec(ctx, query,
		record.ID,
		record.StudentID,
		record.State,
		record.ErrorKind,
		record.ErrorCause,
		record.ArtifactDigest,
		record.ArtifactURI,
		record.PreviewURI,
		record.MetadataURI,
		record.EnrollTxHash,
		record.AdminTxHash,
		record.AdminTokenID,
		record.StudentTxHash,
		record.StudentTokenID,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, issuancePrimaryKey) {
			return ErrIssuanceExists
		}
		if dberrors.IsUndefinedTable(err) {
			return fmt.Errorf("issuance journal table missing, run migrations: %w", err)
		}
		return fmt.Errorf("error creating issuance record: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of an entry
func (r *PostgresIssuanceRepository) Update(ctx context.Context, record *models.IssuanceRecord) error {
	query := `
		UPDATE issuance_records
		SET state = $2, error_kind = $3, error_cause = $4, artifact_digest = $5, artifact_uri = $6,
			preview_uri = $7, metadata_uri = $8, enroll_tx_hash = $9, admin_tx_hash = $10,
			admin_token_id = $11, student_tx_hash = $12, student_token_id = $13, updated_at = $14
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		record.ID,
		record.State,
		record.ErrorKind,
		record.ErrorCause,
		record.ArtifactDigest,
		record.ArtifactURI,
		record.PreviewURI,
		record.MetadataURI,
		record.EnrollTxHash,
		record.AdminTxHash,
		record.AdminTokenID,
		record.StudentTxHash,
		record.StudentTokenID,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error updating issuance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIssuanceNotFound
	}
	return nil
}

// GetByID retrieves an entry by its id
func (r *PostgresIssuanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.IssuanceRecord, error) {
	query := `SELECT ` + issuanceColumns + ` FROM issuance_records WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// FindLatestByStudent retrieves the most recent entry for a student
func (r *PostgresIssuanceRepository) FindLatestByStudent(ctx context.Context, studentID string) (*models.IssuanceRecord, error) {
	query := `
		SELECT ` + issuanceColumns + `
		FROM issuance_records
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, studentID))
}

func (r *PostgresIssuanceRepository) scanOne(row pgx.Row) (*models.IssuanceRecord, error) {
	var record models.IssuanceRecord
	err := row.Scan(
		&record.ID,
		&record.StudentID,
		&record.State,
		&record.ErrorKind,
		&record.ErrorCause,
		&record.ArtifactDigest,
		&record.ArtifactURI,
		&record.PreviewURI,
		&record.MetadataURI,
		&record.EnrollTxHash,
		&record.AdminTxHash,
		&record.AdminTokenID,
		&record.StudentTxHash,
		&record.StudentTokenID,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIssuanceNotFound
		}
		return nil, fmt.Errorf("error retrieving issuance record: %w", err)
	}
	return &record, nil
}
