package repositories

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/yigit/diplomaregistry/internal/app/models"
)

// MemoryIssuanceRepository keeps the journal in process memory. Used when no database is
// configured; entries are lost on restart.
type MemoryIssuanceRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]models.IssuanceRecord
	latest  map[string]uuid.UUID
}

// NewMemoryIssuanceRepository creates an empty journal
func NewMemoryIssuanceRepository() *MemoryIssuanceRepository {
	return &MemoryIssuanceRepository{
		records: make(map[uuid.UUID]models.IssuanceRecord),
		latest:  make(map[string]uuid.UUID),
	}
}

// Create stores a copy of record
func (r *MemoryIssuanceRepository) Create(ctx context.Context, record *models.IssuanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ID]; ok {
		return ErrIssuanceExists
	}
	r.records[record.ID] = *record
	r.latest[record.StudentID] = record.ID
	return nil
}

// Update replaces the stored copy of record
func (r *MemoryIssuanceRepository) Update(ctx context.Context, record *models.IssuanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ID]; !ok {
		return ErrIssuanceNotFound
	}
	r.records[record.ID] = *record
	return nil
}

// GetByID returns a copy of the entry
func (r *MemoryIssuanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.IssuanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return nil, ErrIssuanceNotFound
	}
	return &record, nil
}

// FindLatestByStudent returns the most recently created entry for a student
func (r *MemoryIssuanceRepository) FindLatestByStudent(ctx context.Context, studentID string) (*models.IssuanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.latest[studentID]
	if !ok {
		return nil, ErrIssuanceNotFound
	}
	record := r.records[id]
	return &record, nil
}
