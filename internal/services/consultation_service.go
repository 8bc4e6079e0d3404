// File: internal/services/consultation_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/lexserve/go-lexserve/internal/domain"
	advocaterepo "github.com/lexserve/go-lexserve/internal/repository/advocate"
	consultrepo "github.com/lexserve/go-lexserve/internal/repository/consultation"
	historyrepo "github.com/lexserve/go-lexserve/internal/repository/history"
	messagerepo "github.com/lexserve/go-lexserve/internal/repository/message"
	consultation "github.com/lexserve/go-lexserve/internal/services/consultation"
	"github.com/lexserve/go-lexserve/internal/ws"
)

// EventSink is the slice of the transport the services push through. The
// room router satisfies it; tests substitute a recorder.
type EventSink interface {
	Broadcast(roomKey string, ev ws.Event) int
	BroadcastAll(ev ws.Event) int
}

// ConsultationService owns the session lifecycle: start, end, cancel, list.
// Termination is first-writer-wins at the store level, so two parties ending
// simultaneously can never double-terminate.
type ConsultationService struct {
	config       *consultation.Config
	consultRepo  consultrepo.ConsultationRepository
	advocateRepo advocaterepo.AdvocateRepository
	messageRepo  messagerepo.MessageRepository
	historyRepo  historyrepo.HistoryRepository
	events       EventSink
	logger       Logger
}

func NewConsultationService(
	consultRepo consultrepo.ConsultationRepository,
	advocateRepo advocaterepo.AdvocateRepository,
	messageRepo messagerepo.MessageRepository,
	historyRepo historyrepo.HistoryRepository,
	events EventSink,
	logger Logger,
) (*ConsultationService, error) {
	// Validate dependencies
	if consultRepo == nil {
		return nil, consultation.NewValidationError("constructor", "consultation repository is required")
	}
	if advocateRepo == nil {
		return nil, consultation.NewValidationError("constructor", "advocate repository is required")
	}
	if messageRepo == nil {
		return nil, consultation.NewValidationError("constructor", "message repository is required")
	}
	if historyRepo == nil {
		return nil, consultation.NewValidationError("constructor", "history repository is required")
	}
	if events == nil {
		return nil, consultation.NewValidationError("constructor", "event sink is required")
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}

	config := consultation.DefaultConfig()
	if err := config.Validate(); err != nil {
		return nil, consultation.NewValidationError("config", err.Error())
	}

	return &ConsultationService{
		config:       config,
		consultRepo:  consultRepo,
		advocateRepo: advocateRepo,
		messageRepo:  messageRepo,
		historyRepo:  historyRepo,
		events:       events,
		logger:       logger,
	}, nil
}

// StartConsultation creates an active session between the client and the
// advocate and notifies the advocate's personal room. The row is born
// active; there is no handshake state.
func (s *ConsultationService) StartConsultation(ctx context.Context, userID, advocateID uint, consultationType string) (*domain.Consultation, error) {
	if userID == 0 {
		return nil, consultation.NewValidationError("start_consultation", "user id is required")
	}
	if advocateID == 0 {
		return nil, consultation.NewValidationError("start_consultation", "advocate id is required")
	}
	if consultationType == "" {
		consultationType = domain.ConsultationTypeChat
	}
	if !domain.IsValidConsultationType(consultationType) {
		return nil, consultation.NewValidationError("start_consultation", "unknown consultation type")
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	adv, err := s.advocateRepo.FindByID(storeCtx, advocateID)
	if err != nil {
		if errors.Is(err, advocaterepo.ErrAdvocateNotFound) {
			return nil, consultation.NewNotFoundError("start_consultation", 0)
		}
		return nil, consultation.NewStoreError("start_consultation", "could not load advocate", err)
	}
	if !adv.IsApproved {
		return nil, consultation.NewValidationError("start_consultation", "advocate is not accepting consultations")
	}

	// Best-effort duplicate guard. A race between two concurrent starts can
	// still slip through; the product tolerates a duplicate active pair far
	// better than a lost start.
	if active, err := s.consultRepo.HasActiveByPair(storeCtx, userID, advocateID); err == nil && active {
		return nil, consultation.NewValidationError("start_consultation", "an active consultation with this advocate already exists")
	}

	now := time.Now()
	created, err := s.consultRepo.Create(storeCtx, &domain.Consultation{
		UserID:     userID,
		AdvocateID: advocateID,
		Type:       consultationType,
		FeeAmount:  adv.FeeAmount,
		Status:     domain.ConsultationActive,
		StartedAt:  now,
	})
	if err != nil {
		return nil, consultation.NewStoreError("start_consultation", "could not create consultation", err)
	}

	advocateIdentity := domain.Identity{ID: advocateID, Role: domain.RoleAdvocate}
	delivered := s.events.Broadcast(advocateIdentity.RoomKey(), ws.NewConsultationEvent{
		ConsultationID: created.ID,
		UserID:         userID,
		Type:           created.Type,
		FeeAmount:      created.FeeAmount,
	})

	s.logger.Info("consultation started",
		"consultation_id", created.ID,
		"user_id", userID,
		"advocate_id", advocateID,
		"notified", delivered)
	return created, nil
}

// EndConsultation completes an active consultation on behalf of a
// participant. The second party to end gets ErrTypeNotFound: termination is
// single-shot by construction.
func (s *ConsultationService) EndConsultation(ctx context.Context, consultationID uint, by domain.Identity) (*domain.Consultation, error) {
	return s.terminate(ctx, "end_consultation", consultationID, by, domain.ConsultationCompleted)
}

// CancelConsultation moves an active consultation to cancelled. Same
// termination discipline as EndConsultation, different terminal status.
func (s *ConsultationService) CancelConsultation(ctx context.Context, consultationID uint, by domain.Identity) (*domain.Consultation, error) {
	return s.terminate(ctx, "cancel_consultation", consultationID, by, domain.ConsultationCancelled)
}

func (s *ConsultationService) terminate(ctx context.Context, op string, consultationID uint, by domain.Identity, status string) (*domain.Consultation, error) {
	if consultationID == 0 {
		return nil, consultation.NewValidationError(op, "consultation id is required")
	}
	if !by.IsValid() {
		return nil, consultation.NewValidationError(op, "a valid identity is required")
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.consultRepo.FindByID(storeCtx, consultationID)
	if err != nil {
		if errors.Is(err, consultrepo.ErrConsultationNotFound) {
			return nil, consultation.NewNotFoundError(op, consultationID)
		}
		return nil, consultation.NewStoreError(op, "could not load consultation", err)
	}
	if !record.IsParticipant(by) {
		return nil, consultation.NewUnauthorizedError(op, by.ID, consultationID)
	}

	endedAt := time.Now()
	terminated, err := s.consultRepo.Terminate(storeCtx, consultationID, status, endedAt)
	if err != nil {
		if errors.Is(err, consultrepo.ErrConsultationNotActive) {
			// Already terminal. The losing party of a concurrent end lands
			// here and must treat the session as over.
			return nil, consultation.NewNotFoundError(op, consultationID)
		}
		return nil, consultation.NewStoreError(op, "could not terminate consultation", err)
	}

	s.snapshotFinalHistory(storeCtx, terminated)

	counterpart := terminated.Counterpart(by)
	s.events.Broadcast(counterpart.RoomKey(), ws.ConsultationEndedEvent{
		ConsultationID: terminated.ID,
		Status:         terminated.Status,
		EndedBy:        by.Role,
		EndedAt:        endedAt,
	})

	s.logger.Info("consultation terminated",
		"consultation_id", terminated.ID,
		"status", terminated.Status,
		"ended_by", by.RoomKey())
	return terminated, nil
}

// snapshotFinalHistory writes the client-side history snapshot at
// termination. Best effort: the raw message rows remain the source of truth,
// so a failed snapshot is logged, not surfaced.
func (s *ConsultationService) snapshotFinalHistory(ctx context.Context, record *domain.Consultation) {
	messages, err := s.messageRepo.FindByConsultationID(ctx, record.ID)
	if err != nil {
		s.logger.Warn("final history snapshot skipped, could not load messages",
			"consultation_id", record.ID, "error", err.Error())
		return
	}

	snapshot := &domain.ChatHistory{
		UserID:         record.UserID,
		ConsultationID: record.ID,
	}
	if err := snapshot.SetMessages(messages); err != nil {
		s.logger.Warn("final history snapshot skipped, could not encode messages",
			"consultation_id", record.ID, "error", err.Error())
		return
	}
	if err := s.historyRepo.Upsert(ctx, snapshot); err != nil {
		s.logger.Warn("final history snapshot write failed",
			"consultation_id", record.ID, "error", err.Error())
	}
}

// GetConsultation loads one consultation visible to the identity.
func (s *ConsultationService) GetConsultation(ctx context.Context, consultationID uint, viewer domain.Identity) (*domain.Consultation, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.consultRepo.FindByID(storeCtx, consultationID)
	if err != nil {
		if errors.Is(err, consultrepo.ErrConsultationNotFound) {
			return nil, consultation.NewNotFoundError("get_consultation", consultationID)
		}
		return nil, consultation.NewStoreError("get_consultation", "could not load consultation", err)
	}
	if !record.IsParticipant(viewer) {
		return nil, consultation.NewUnauthorizedError("get_consultation", viewer.ID, consultationID)
	}
	return record, nil
}

// ListConsultations returns the identity's consultations, newest first.
func (s *ConsultationService) ListConsultations(ctx context.Context, viewer domain.Identity, limit, offset int) ([]domain.Consultation, int64, error) {
	if !viewer.IsValid() {
		return nil, 0, consultation.NewValidationError("list_consultations", "a valid identity is required")
	}
	limit = s.clampPageSize(limit)
	if offset < 0 {
		offset = 0
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	list, total, err := s.consultRepo.FindByParticipant(storeCtx, viewer, limit, offset)
	if err != nil {
		return nil, 0, consultation.NewStoreError("list_consultations", "could not list consultations", err)
	}
	return list, total, nil
}

// IsParticipant answers the transport's room-join membership check.
func (s *ConsultationService) IsParticipant(ctx context.Context, consultationID uint, identity domain.Identity) (bool, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.consultRepo.FindByID(storeCtx, consultationID)
	if err != nil {
		if errors.Is(err, consultrepo.ErrConsultationNotFound) {
			return false, nil
		}
		return false, err
	}
	return record.IsParticipant(identity), nil
}

func (s *ConsultationService) clampPageSize(limit int) int {
	if limit <= 0 {
		return s.config.DefaultPageSize
	}
	if limit > s.config.MaxPageSize {
		return s.config.MaxPageSize
	}
	return limit
}

func (s *ConsultationService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.StoreTimeout)
}
