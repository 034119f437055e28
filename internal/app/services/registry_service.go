package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/yigit/diplomaregistry/internal/app/models/dto"
	"github.com/yigit/diplomaregistry/internal/pkg/apperrors"
	"github.com/yigit/diplomaregistry/internal/pkg/ledger"
	"github.com/yigit/diplomaregistry/internal/pkg/metadata"
	"github.com/yigit/diplomaregistry/internal/pkg/validation"
)

// RegistryService reconciles ledger records with their off-chain metadata
type RegistryService struct {
	ledger          LedgerReader
	content         ContentFetcher
	limiter         *rate.Limiter
	readTimeout     time.Duration
	metadataTimeout time.Duration
	tracer          trace.Tracer
	logger          zerolog.Logger
}

// NewRegistryService creates a reconciler that reads at most readsPerSecond records per second
func NewRegistryService(
	reader LedgerReader,
	content ContentFetcher,
	readsPerSecond float64,
	readTimeout time.Duration,
	metadataTimeout time.Duration,
	logger zerolog.Logger,
) *RegistryService {
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	if metadataTimeout <= 0 {
		metadataTimeout = 10 * time.Second
	}
	limit := rate.Limit(readsPerSecond)
	if readsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &RegistryService{
		ledger:          reader,
		content:         content,
		limiter:         rate.NewLimiter(limit, 1),
		readTimeout:     readTimeout,
		metadataTimeout: metadataTimeout,
		tracer:          otel.Tracer(tracerName),
		logger:          logger,
	}
}

// ListEnrolled walks the ledger's id list and returns every enrolled student in ledger order.
// Only the total count read can fail the listing; a record whose reads fail is dropped.
func (s *RegistryService) ListEnrolled(ctx context.Context) ([]dto.StudentView, error) {
	ctx, span := s.tracer.Start(ctx, "registry.list")
	defer span.End()

	total, err := s.readTotal(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "total read failed")
		return nil, apperrors.Wrap(apperrors.ErrLedgerUnavailable, err, "Failed to read the number of enrolled students")
	}
	span.SetAttributes(attribute.Int64("registry.total", int64(total)))

	views := make([]dto.StudentView, 0, total)
	for i := uint64(0); i < total; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "read pacing interrupted")
			return nil, apperrors.Wrap(apperrors.ErrLedgerUnavailable, err, "Listing interrupted while pacing ledger reads")
		}

		view, ok, err := s.reconcileAt(ctx, i)
		if err != nil {
			s.logger.Warn().Err(apperrors.Wrap(apperrors.ErrReadReconciliation, err, "record dropped")).
				Uint64("index", i).
				Msg("Skipping registry record")
			continue
		}
		if ok {
			views = append(views, *view)
		}
	}

	span.SetAttributes(attribute.Int("registry.returned", len(views)))
	return views, nil
}

// GetStudent returns one enrolled student with its display link resolved
func (s *RegistryService) GetStudent(ctx context.Context, studentID string) (*dto.StudentView, error) {
	if first, failed := (&validation.Rules{}).Required("id", studentID).Numeric("id", studentID).First(); failed {
		return nil, apperrors.NewValidationError(first.Field, first.Message)
	}

	st, err := s.readStudent(ctx, studentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrLedgerUnavailable, err, "Failed to read student from the ledger")
	}
	if !st.IsEnrolled {
		return nil, apperrors.Wrap(apperrors.ErrStudentNotFound, nil, "Student not found")
	}

	view, err := s.resolve(ctx, st)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrLedgerUnavailable, err, "Failed to read token metadata locator")
	}
	return view, nil
}

func (s *RegistryService) reconcileAt(ctx context.Context, index uint64) (*dto.StudentView, bool, error) {
	readCtx, cancel := context.WithTimeout(ctx, s.readTimeout)
	id, err := s.ledger.GetStudentIDAt(readCtx, index)
	cancel()
	if err != nil {
		return nil, false, err
	}

	st, err := s.readStudent(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !st.IsEnrolled {
		return nil, false, nil
	}

	view, err := s.resolve(ctx, st)
	if err != nil {
		return nil, false, err
	}
	return view, true, nil
}

// resolve builds the view and, for minted records, the display link. A metadata fetch or
// parse failure falls back to the raw metadata locator.
func (s *RegistryService) resolve(ctx context.Context, st *ledger.Student) (*dto.StudentView, error) {
	view := &dto.StudentView{
		ID:        st.ID,
		Name:      st.Name,
		Course:    st.Course,
		BirthDate: st.BirthDate,
		Grade:     st.Grade,
		Wallet:    st.Wallet,
		TokenID:   st.TokenID,
	}
	if !st.HasToken() {
		return view, nil
	}

	readCtx, cancel := context.WithTimeout(ctx, s.readTimeout)
	locator, err := s.ledger.GetTokenMetadataLocator(readCtx, st.TokenID)
	cancel()
	if err != nil {
		return nil, err
	}
	view.MetadataLocator = locator
	view.DisplayLink = locator

	fetchCtx, cancel := context.WithTimeout(ctx, s.metadataTimeout)
	defer cancel()
	raw, err := s.content.Fetch(fetchCtx, locator)
	if err != nil {
		s.logger.Debug().Err(err).Str("locator", locator).Msg("Metadata fetch failed, using raw locator")
		return view, nil
	}
	doc, err := metadata.Parse(raw)
	if err != nil {
		s.logger.Debug().Err(err).Str("locator", locator).Msg("Metadata parse failed, using raw locator")
		return view, nil
	}
	if link := doc.DisplayLink(); link != "" {
		view.DisplayLink = link
	}
	return view, nil
}

func (s *RegistryService) readTotal(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()
	return s.ledger.GetTotalEnrolled(ctx)
}

func (s *RegistryService) readStudent(ctx context.Context, id string) (*ledger.Student, error) {
	ctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()
	return s.ledger.GetStudent(ctx, id)
}
