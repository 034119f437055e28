package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yigit/diplomaregistry/internal/app/models"
	"github.com/yigit/diplomaregistry/internal/app/models/dto"
	"github.com/yigit/diplomaregistry/internal/app/repositories"
	"github.com/yigit/diplomaregistry/internal/pkg/apperrors"
	"github.com/yigit/diplomaregistry/internal/pkg/filestorage"
	"github.com/yigit/diplomaregistry/internal/pkg/ipfs"
	"github.com/yigit/diplomaregistry/internal/pkg/ledger"
	"github.com/yigit/diplomaregistry/internal/pkg/metadata"
	"github.com/yigit/diplomaregistry/internal/pkg/preview"
	"github.com/yigit/diplomaregistry/internal/pkg/validation"
)

const tracerName = "github.com/yigit/diplomaregistry/internal/app/services"

// Messages returned to callers for classified ledger failures
const (
	msgInsufficientFunds = "Signing wallet needs funding to pay transaction fees"
	msgNotEnrolled       = "Student is not enrolled on the ledger"
)

// IssuanceTimeouts bound each external call made by the pipeline
type IssuanceTimeouts struct {
	Publish     time.Duration
	LedgerWrite time.Duration
	LedgerRead  time.Duration
}

func (t IssuanceTimeouts) withDefaults() IssuanceTimeouts {
	if t.Publish <= 0 {
		t.Publish = 60 * time.Second
	}
	if t.LedgerWrite <= 0 {
		t.LedgerWrite = 5 * time.Minute
	}
	if t.LedgerRead <= 0 {
		t.LedgerRead = 30 * time.Second
	}
	return t
}

// IssuanceService runs the diploma issuance pipeline: publish, enroll, then mint on request.
// Every step is recorded in the issuance journal.
type IssuanceService struct {
	publisher ipfs.Publisher
	ledger    LedgerGateway
	journal   repositories.IssuanceRepository
	uploads   filestorage.TempStorage
	timeouts  IssuanceTimeouts
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewIssuanceService creates a new IssuanceService
func NewIssuanceService(
	publisher ipfs.Publisher,
	gateway LedgerGateway,
	journal repositories.IssuanceRepository,
	uploads filestorage.TempStorage,
	timeouts IssuanceTimeouts,
	logger zerolog.Logger,
) *IssuanceService {
	return &IssuanceService{
		publisher: publisher,
		ledger:    gateway,
		journal:   journal,
		uploads:   uploads,
		timeouts:  timeouts.withDefaults(),
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

func validateEnrollment(req *dto.EnrollmentRequest) error {
	rules := &validation.Rules{}
	rules.Required("id", req.ID).Numeric("id", req.ID).
		Required("name", req.Name).MaxLength("name", req.Name, validation.NameMaxLength).
		Required("course", req.Course).MaxLength("course", req.Course, validation.NameMaxLength).
		Required("birthDate", req.BirthDate).
		Required("grade", req.Grade).Numeric("grade", req.Grade).
		Required("studentWallet", req.StudentWallet).Wallet("studentWallet", req.StudentWallet)

	if first, failed := rules.First(); failed {
		return apperrors.NewValidationError(first.Field, first.Message)
	}
	return nil
}

func validateMint(studentID string, req *dto.MintRequest) error {
	rules := &validation.Rules{}
	rules.Required("id", studentID).Numeric("id", studentID).
		Required("metadataLocator", req.MetadataLocator).
		Wallet("custodyWallet", req.CustodyWallet).
		Wallet("studentWallet", req.StudentWallet)

	if first, failed := rules.First(); failed {
		return apperrors.NewValidationError(first.Field, first.Message)
	}
	if req.CustodyWallet == "" && req.StudentWallet == "" {
		return apperrors.NewValidationError("studentWallet", "at least one of custodyWallet or studentWallet is required")
	}
	return nil
}

// SubmitEnrollment validates the form, reads the uploaded diploma through temp storage and
// runs the enrollment pipeline. The temp file is removed before returning.
func (s *IssuanceService) SubmitEnrollment(ctx context.Context, req *dto.EnrollmentRequest, upload *multipart.FileHeader) (*dto.EnrollmentResponse, error) {
	if err := validateEnrollment(req); err != nil {
		return nil, err
	}
	if upload == nil || upload.Size == 0 {
		return nil, apperrors.NewValidationError("diploma", "diploma file is required")
	}

	artifact, err := s.loadArtifact(upload)
	if err != nil {
		return nil, err
	}

	return s.Enroll(ctx, req, artifact)
}

func (s *IssuanceService) loadArtifact(upload *multipart.FileHeader) (*models.Artifact, error) {
	name, err := s.uploads.SaveFile(upload)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrBadRequest, err, "Failed to store uploaded diploma")
	}
	defer func() {
		if err := s.uploads.DeleteFile(name); err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("Failed to remove temp upload")
		}
	}()

	data, err := s.uploads.ReadFile(name)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrBadRequest, err, "Failed to read uploaded diploma")
	}

	return &models.Artifact{
		Filename:    upload.Filename,
		ContentType: detectContentType(data, upload.Header.Get("Content-Type")),
		Data:        data,
	}, nil
}

// detectContentType prefers the sniffed type; the declared header is used only when the
// content is not recognised.
func detectContentType(data []byte, declared string) string {
	detected := mimetype.Detect(data)
	if detected.Is("application/octet-stream") && declared != "" {
		return declared
	}
	return detected.String()
}

// Enroll publishes the artifact (plus a preview for documents), publishes the metadata
// document and enrolls the student on the ledger.
func (s *IssuanceService) Enroll(ctx context.Context, req *dto.EnrollmentRequest, artifact *models.Artifact) (*dto.EnrollmentResponse, error) {
	if err := validateEnrollment(req); err != nil {
		return nil, err
	}
	if artifact == nil || len(artifact.Data) == 0 {
		return nil, apperrors.NewValidationError("diploma", "diploma file is required")
	}

	ctx, span := s.tracer.Start(ctx, "issuance.enroll", trace.WithAttributes(
		attribute.String("student.id", req.ID),
		attribute.String("artifact.content_type", artifact.ContentType),
		attribute.Int("artifact.size", len(artifact.Data)),
	))
	defer span.End()

	rec := models.NewIssuanceRecord(req.ID, models.StateUploading)
	s.record(ctx, rec, true)
	log := s.logger.With().Str("issuance_id", rec.ID.String()).Str("student_id", req.ID).Logger()

	if digest, err := ipfs.DigestCID(artifact.Data); err == nil {
		rec.ArtifactDigest = digest.String()
	}

	artifactURI, err := s.publish(ctx, "issuance.publish_artifact", artifact.Data, artifact.ContentType, fmt.Sprintf("diploma-%s", req.ID))
	if err != nil {
		return nil, s.fail(ctx, span, rec, apperrors.ErrPublishFailed, err, "Failed to publish diploma")
	}
	rec.ArtifactURI = artifactURI

	fields := metadata.Student{ID: req.ID, Name: req.Name, Course: req.Course, BirthDate: req.BirthDate, Grade: req.Grade}
	image, animation := artifactURI, ""
	if artifact.NeedsPreview() {
		svg := preview.Render(preview.Fields{
			StudentID: req.ID,
			Name:      req.Name,
			Course:    req.Course,
			BirthDate: req.BirthDate,
			Grade:     req.Grade,
		})
		previewURI, err := s.publish(ctx, "issuance.publish_preview", svg, preview.ContentType, fmt.Sprintf("diploma-%s-preview.svg", req.ID))
		if err != nil {
			return nil, s.fail(ctx, span, rec, apperrors.ErrPublishFailed, err, "Failed to publish diploma preview")
		}
		rec.PreviewURI = previewURI
		image, animation = previewURI, artifactURI
	}
	s.transition(ctx, rec, models.StateMetadataBuilding)

	doc := metadata.Compose(fields, image, artifactURI, animation)
	if err := metadata.Validate(doc); err != nil {
		return nil, s.fail(ctx, span, rec, apperrors.ErrPublishFailed, err, "Metadata document is invalid")
	}
	metadataURI, err := s.publishDocument(ctx, doc, fmt.Sprintf("diploma-%s-metadata.json", req.ID))
	if err != nil {
		return nil, s.fail(ctx, span, rec, apperrors.ErrPublishFailed, err, "Failed to publish metadata")
	}
	rec.MetadataURI = metadataURI
	s.transition(ctx, rec, models.StateEnrolling)

	receipt, err := s.enroll(ctx, ledger.Enrollment{
		ID:        req.ID,
		Name:      req.Name,
		Course:    req.Course,
		BirthDate: req.BirthDate,
		Grade:     req.Grade,
		Wallet:    req.StudentWallet,
	})
	if err != nil {
		// Published content stays orphaned; content-addressed storage has no delete
		return nil, s.fail(ctx, span, rec, apperrors.ErrEnrollmentFailed, err, "Failed to enroll student on the ledger")
	}
	rec.EnrollTxHash = receipt.TxHash
	s.transition(ctx, rec, models.StateEnrolled)

	log.Info().Str("tx", receipt.TxHash).Str("metadata", metadataURI).Msg("Student enrolled")
	span.SetStatus(codes.Ok, "")

	return &dto.EnrollmentResponse{
		IssuanceID:      rec.ID,
		StudentID:       req.ID,
		EnrollTxHash:    receipt.TxHash,
		MetadataLocator: metadataURI,
		DisplayLocator:  image,
		ArtifactLocator: artifactURI,
	}, nil
}

func (s *IssuanceService) publish(ctx context.Context, spanName string, data []byte, contentType, name string) (string, error) {
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("content.type", contentType),
		attribute.Int("content.size", len(data)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Publish)
	defer cancel()

	locator, err := s.publisher.Publish(ctx, data, contentType, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return "", err
	}
	span.SetAttributes(attribute.String("content.locator", locator))
	return locator, nil
}

func (s *IssuanceService) publishDocument(ctx context.Context, doc metadata.Document, name string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "issuance.publish_metadata")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Publish)
	defer cancel()

	locator, err := s.publisher.PublishDocument(ctx, doc, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		return "", err
	}
	return locator, nil
}

func (s *IssuanceService) enroll(ctx context.Context, e ledger.Enrollment) (*ledger.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.enroll")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.LedgerWrite)
	defer cancel()

	receipt, err := s.ledger.Enroll(ctx, e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enroll failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("tx.hash", receipt.TxHash))
	return receipt, nil
}

// MintCredential mints a diploma token to the custody wallet and then to the student
// wallet. The two mints are independent: when the second fails the first one's result is
// returned together with the error.
func (s *IssuanceService) MintCredential(ctx context.Context, studentID string, req *dto.MintRequest) (*dto.MintResponse, error) {
	if err := validateMint(studentID, req); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "issuance.mint", trace.WithAttributes(
		attribute.String("student.id", studentID),
		attribute.Bool("mint.custody", req.CustodyWallet != ""),
		attribute.Bool("mint.student", req.StudentWallet != ""),
	))
	defer span.End()

	// The enrollment flag is re-read on every request; it may have changed since enrollment
	readCtx, cancel := context.WithTimeout(ctx, s.timeouts.LedgerRead)
	student, err := s.ledger.GetStudent(readCtx, studentID)
	cancel()
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(apperrors.ErrMintFailed, err, "Failed to read student from the ledger")
	}
	if !student.IsEnrolled {
		span.SetStatus(codes.Error, "not enrolled")
		return nil, apperrors.Wrap(apperrors.ErrMintFailed, apperrors.ErrNotEnrolled, msgNotEnrolled).
			WithDetails(map[string]interface{}{"studentId": studentID})
	}

	rec := s.mintRecord(ctx, studentID, req.MetadataLocator)
	resp := &dto.MintResponse{IssuanceID: rec.ID, StudentID: studentID}

	if req.CustodyWallet != "" {
		s.transition(ctx, rec, models.StateMintingAdmin)
		receipt, err := s.issue(ctx, "ledger.mint_custody", studentID, req.CustodyWallet, req.MetadataLocator)
		if receipt != nil {
			resp.AdminTxHash, resp.AdminTokenID = receipt.TxHash, receipt.TokenID
			rec.AdminTxHash, rec.AdminTokenID = receipt.TxHash, receipt.TokenID
		}
		if err != nil {
			return partial(resp), s.fail(ctx, span, rec, apperrors.ErrMintFailed, err, "Failed to mint diploma to custody wallet")
		}
	}

	if req.StudentWallet != "" {
		s.transition(ctx, rec, models.StateMintingStudent)
		receipt, err := s.issue(ctx, "ledger.mint_student", studentID, req.StudentWallet, req.MetadataLocator)
		if receipt != nil {
			resp.StudentTxHash, resp.StudentTokenID = receipt.TxHash, receipt.TokenID
			rec.StudentTxHash, rec.StudentTokenID = receipt.TxHash, receipt.TokenID
		}
		if err != nil {
			return partial(resp), s.fail(ctx, span, rec, apperrors.ErrMintFailed, err, "Failed to mint diploma to student wallet")
		}
	}

	s.transition(ctx, rec, models.StateComplete)
	span.SetStatus(codes.Ok, "")
	s.logger.Info().
		Str("issuance_id", rec.ID.String()).
		Str("student_id", studentID).
		Str("admin_token", resp.AdminTokenID).
		Str("student_token", resp.StudentTokenID).
		Msg("Diploma minted")

	return resp, nil
}

// partial returns resp only when at least one transaction reached the ledger
func partial(resp *dto.MintResponse) *dto.MintResponse {
	if resp.AdminTxHash == "" && resp.StudentTxHash == "" {
		return nil
	}
	return resp
}

// mintRecord continues the student's latest journal entry when it is waiting for a mint,
// otherwise it opens a new entry at ENROLLED.
func (s *IssuanceService) mintRecord(ctx context.Context, studentID, metadataURI string) *models.IssuanceRecord {
	rec, err := s.journal.FindLatestByStudent(ctx, studentID)
	if err == nil && rec.State == models.StateEnrolled {
		if rec.MetadataURI == "" {
			rec.MetadataURI = metadataURI
		}
		return rec
	}
	if err != nil && !errors.Is(err, repositories.ErrIssuanceNotFound) {
		s.logger.Warn().Err(err).Str("student_id", studentID).Msg("Failed to look up issuance journal")
	}

	rec = models.NewIssuanceRecord(studentID, models.StateEnrolled)
	rec.MetadataURI = metadataURI
	s.record(ctx, rec, true)
	return rec
}

func (s *IssuanceService) issue(ctx context.Context, spanName, studentID, recipient, metadataURI string) (*ledger.MintReceipt, error) {
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(attribute.String("mint.recipient", recipient)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.LedgerWrite)
	defer cancel()

	receipt, err := s.ledger.IssueToken(ctx, studentID, recipient, metadataURI)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mint failed")
	}
	if receipt != nil {
		span.SetAttributes(attribute.String("tx.hash", receipt.TxHash), attribute.String("token.id", receipt.TokenID))
	}
	return receipt, err
}

// RemoveStudent removes a student from the ledger registry
func (s *IssuanceService) RemoveStudent(ctx context.Context, studentID string) (*dto.RemovalResponse, error) {
	if first, failed := (&validation.Rules{}).Required("id", studentID).Numeric("id", studentID).First(); failed {
		return nil, apperrors.NewValidationError(first.Field, first.Message)
	}

	ctx, span := s.tracer.Start(ctx, "ledger.remove", trace.WithAttributes(attribute.String("student.id", studentID)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.LedgerWrite)
	defer cancel()

	receipt, err := s.ledger.Remove(ctx, studentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remove failed")
		return nil, classifyLedgerError(apperrors.ErrRemovalFailed, err, "Failed to remove student from the ledger")
	}

	s.logger.Info().Str("student_id", studentID).Str("tx", receipt.TxHash).Msg("Student removed")
	return &dto.RemovalResponse{StudentID: studentID, TxHash: receipt.TxHash, Success: true}, nil
}

// GetIssuance returns a journal entry
func (s *IssuanceService) GetIssuance(ctx context.Context, id string) (*dto.IssuanceResponse, error) {
	issuanceID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewValidationError("id", "id must be a UUID")
	}

	rec, err := s.journal.GetByID(ctx, issuanceID)
	if err != nil {
		if errors.Is(err, repositories.ErrIssuanceNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrIssuanceNotFound, err, "Issuance not found")
		}
		return nil, fmt.Errorf("error retrieving issuance %s: %w", id, err)
	}

	return &dto.IssuanceResponse{
		ID:             rec.ID,
		StudentID:      rec.StudentID,
		State:          string(rec.State),
		ErrorKind:      rec.ErrorKind,
		ErrorCause:     rec.ErrorCause,
		ArtifactDigest: rec.ArtifactDigest,
		ArtifactURI:    rec.ArtifactURI,
		PreviewURI:     rec.PreviewURI,
		MetadataURI:    rec.MetadataURI,
		EnrollTxHash:   rec.EnrollTxHash,
		AdminTxHash:    rec.AdminTxHash,
		AdminTokenID:   rec.AdminTokenID,
		StudentTxHash:  rec.StudentTxHash,
		StudentTokenID: rec.StudentTokenID,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}, nil
}

// transition moves rec to next and persists it. Illegal transitions are logged and ignored.
func (s *IssuanceService) transition(ctx context.Context, rec *models.IssuanceRecord, next models.IssuanceState) {
	if !rec.State.CanTransition(next) {
		s.logger.Error().Str("issuance_id", rec.ID.String()).Str("from", string(rec.State)).Str("to", string(next)).Msg("Illegal issuance transition")
		return
	}
	rec.State = next
	s.record(ctx, rec, false)
}

// fail moves rec to FAILED and returns the classified error
func (s *IssuanceService) fail(ctx context.Context, span trace.Span, rec *models.IssuanceRecord, kind, cause error, message string) error {
	appErr := classifyLedgerError(kind, cause, message).
		WithDetails(map[string]interface{}{"issuanceId": rec.ID.String(), "state": string(rec.State)})

	span.RecordError(cause)
	span.SetStatus(codes.Error, message)

	rec.ErrorKind = KindName(appErr)
	rec.ErrorCause = cause.Error()
	s.transition(ctx, rec, models.StateFailed)

	s.logger.Error().Err(cause).
		Str("issuance_id", rec.ID.String()).
		Str("student_id", rec.StudentID).
		Str("kind", rec.ErrorKind).
		Msg(message)
	return appErr
}

// record persists rec. The journal is an audit trail; its failures do not stop the pipeline.
func (s *IssuanceService) record(ctx context.Context, rec *models.IssuanceRecord, create bool) {
	rec.UpdatedAt = time.Now().UTC()
	var err error
	if create {
		err = s.journal.Create(ctx, rec)
	} else {
		err = s.journal.Update(ctx, rec)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("issuance_id", rec.ID.String()).Str("state", string(rec.State)).Msg("Failed to write issuance journal")
	}
}

// classifyLedgerError wraps cause under kind and swaps in the funding message when the
// signing wallet could not pay fees.
func classifyLedgerError(kind, cause error, message string) *apperrors.CustomError {
	if errors.Is(cause, apperrors.ErrInsufficientFunds) {
		message = msgInsufficientFunds
	}
	return apperrors.Wrap(kind, cause, message)
}

// KindName returns the failure kind reported to callers and stored in the journal
func KindName(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrValidationFailed):
		return "ValidationError"
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.Is(err, apperrors.ErrNotEnrolled):
		return "NotEnrolled"
	case errors.Is(err, apperrors.ErrPublishFailed):
		return "PublishFailure"
	case errors.Is(err, apperrors.ErrEnrollmentFailed):
		return "EnrollmentFailure"
	case errors.Is(err, apperrors.ErrMintFailed):
		return "MintFailure"
	case errors.Is(err, apperrors.ErrRemovalFailed):
		return "RemovalFailure"
	case errors.Is(err, apperrors.ErrReadReconciliation):
		return "ReadReconciliationError"
	default:
		return ""
	}
}
