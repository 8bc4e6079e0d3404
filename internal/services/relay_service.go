// File: internal/services/relay_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lexserve/go-lexserve/internal/domain"
	consultrepo "github.com/lexserve/go-lexserve/internal/repository/consultation"
	historyrepo "github.com/lexserve/go-lexserve/internal/repository/history"
	messagerepo "github.com/lexserve/go-lexserve/internal/repository/message"
	consultation "github.com/lexserve/go-lexserve/internal/services/consultation"
	"github.com/lexserve/go-lexserve/internal/ws"
)

// RelayService is the message path: validate, persist, then fan out to the
// counterpart's personal room. Persist-then-broadcast is the ordering
// invariant; a message is never announced before it exists in the store.
type RelayService struct {
	config      *consultation.Config
	consultRepo consultrepo.ConsultationRepository
	messageRepo messagerepo.MessageRepository
	historyRepo historyrepo.HistoryRepository
	events      EventSink
	logger      Logger
}

func NewRelayService(
	consultRepo consultrepo.ConsultationRepository,
	messageRepo messagerepo.MessageRepository,
	historyRepo historyrepo.HistoryRepository,
	events EventSink,
	logger Logger,
) (*RelayService, error) {
	// Validate dependencies
	if consultRepo == nil {
		return nil, consultation.NewValidationError("constructor", "consultation repository is required")
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

	return &RelayService{
		config:      config,
		consultRepo: consultRepo,
		messageRepo: messageRepo,
		historyRepo: historyRepo,
		events:      events,
		logger:      logger,
	}, nil
}

// SendMessage validates and persists a message, then broadcasts it to the
// counterpart's personal room. The persisted row (with its real id) is
// returned synchronously so the sender's optimistic UI confirms from the
// response, never from the broadcast.
func (s *RelayService) SendMessage(ctx context.Context, consultationID uint, sender domain.Identity, body, kind string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, consultation.NewValidationError("send_message", "message body cannot be empty")
	}
	if len(body) > s.config.MaxMessageLength {
		return nil, consultation.NewValidationError("send_message", "message body exceeds maximum length")
	}
	if kind == "" {
		kind = domain.MessageKindText
	}
	if !domain.IsValidMessageKind(kind) {
		return nil, consultation.NewValidationError("send_message", "unknown message kind")
	}
	if !sender.IsValid() {
		return nil, consultation.NewValidationError("send_message", "a valid sender identity is required")
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.consultRepo.FindByID(storeCtx, consultationID)
	if err != nil {
		if errors.Is(err, consultrepo.ErrConsultationNotFound) {
			return nil, consultation.NewNotFoundError("send_message", consultationID)
		}
		return nil, consultation.NewStoreError("send_message", "could not load consultation", err)
	}
	if !record.IsActive() {
		return nil, consultation.NewNotFoundError("send_message", consultationID)
	}
	if !record.IsParticipant(sender) {
		return nil, consultation.NewUnauthorizedError("send_message", sender.ID, consultationID)
	}

	persisted, err := s.messageRepo.Create(storeCtx, &domain.Message{
		ConsultationID: consultationID,
		SenderID:       sender.ID,
		SenderRole:     sender.Role,
		Body:           body,
		Kind:           kind,
	})
	if err != nil {
		// A failed write surfaces so the sender's optimistic entry rolls back.
		return nil, consultation.NewStoreError("send_message", "could not persist message", err)
	}

	// Projection and snapshot updates ride behind the persisted row. Both
	// are derivable from the message table, so failures degrade list views
	// without losing data.
	if err := s.consultRepo.UpdateLastMessage(storeCtx, consultationID, persisted.Body, persisted.CreatedAt); err != nil {
		s.logger.Warn("last-message projection update failed",
			"consultation_id", consultationID, "error", err.Error())
	}
	s.snapshotClientHistory(storeCtx, record)

	counterpart := record.Counterpart(sender)
	delivered := s.events.Broadcast(counterpart.RoomKey(), ws.NewMessageEvent{
		ConsultationID: consultationID,
		MessageID:      persisted.ID,
		SenderID:       sender.ID,
		SenderType:     sender.Role,
		Message:        persisted.Body,
		Kind:           persisted.Kind,
		CreatedAt:      persisted.CreatedAt,
	})
	if delivered == 0 {
		// Counterpart offline. Not an error: the message is durable and the
		// next history fetch delivers it.
		s.logger.Debug("message broadcast reached no live connection",
			"consultation_id", consultationID, "recipient", counterpart.RoomKey())
	}

	return persisted, nil
}

// ListMessages returns the consultation's messages in send order for a
// participant, paginated.
func (s *RelayService) ListMessages(ctx context.Context, consultationID uint, viewer domain.Identity, limit, offset int) ([]domain.Message, int64, error) {
	if limit <= 0 {
		limit = s.config.DefaultPageSize
	}
	if limit > s.config.MaxPageSize {
		limit = s.config.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.consultRepo.FindByID(storeCtx, consultationID)
	if err != nil {
		if errors.Is(err, consultrepo.ErrConsultationNotFound) {
			return nil, 0, consultation.NewNotFoundError("list_messages", consultationID)
		}
		return nil, 0, consultation.NewStoreError("list_messages", "could not load consultation", err)
	}
	if !record.IsParticipant(viewer) {
		return nil, 0, consultation.NewUnauthorizedError("list_messages", viewer.ID, consultationID)
	}

	list, total, err := s.messageRepo.FindByConsultationIDWithPagination(storeCtx, consultationID, limit, offset)
	if err != nil {
		return nil, 0, consultation.NewStoreError("list_messages", "could not list messages", err)
	}
	return list, total, nil
}

// MarkMessagesRead flags the counterpart's unread messages as read and
// returns how many flipped.
func (s *RelayService) MarkMessagesRead(ctx context.Context, consultationID uint, reader domain.Identity) (int64, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.consultRepo.FindByID(storeCtx, consultationID)
	if err != nil {
		if errors.Is(err, consultrepo.ErrConsultationNotFound) {
			return 0, consultation.NewNotFoundError("mark_read", consultationID)
		}
		return 0, consultation.NewStoreError("mark_read", "could not load consultation", err)
	}
	if !record.IsParticipant(reader) {
		return 0, consultation.NewUnauthorizedError("mark_read", reader.ID, consultationID)
	}

	flipped, err := s.messageRepo.MarkRead(storeCtx, consultationID, reader.ID)
	if err != nil {
		return 0, consultation.NewStoreError("mark_read", "could not mark messages read", err)
	}
	return flipped, nil
}

// HistoryEntry is one row of a participant's history view.
type HistoryEntry struct {
	ConsultationID uint       `json:"consultation_id"`
	Status         string     `json:"status"`
	LastMessage    string     `json:"last_message"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	MessageCount   int        `json:"message_count"`
}

// GetChatHistory returns the viewer's history overview. Clients read their
// denormalized snapshots; advocates have no snapshot rows and read the
// consultation projection instead.
func (s *RelayService) GetChatHistory(ctx context.Context, viewer domain.Identity) ([]HistoryEntry, error) {
	if !viewer.IsValid() {
		return nil, consultation.NewValidationError("get_history", "a valid identity is required")
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if viewer.Role == domain.RoleClient {
		snapshots, err := s.historyRepo.FindByUser(storeCtx, viewer.ID)
		if err != nil {
			return nil, consultation.NewStoreError("get_history", "could not load history snapshots", err)
		}
		entries := make([]HistoryEntry, 0, len(snapshots))
		for _, snap := range snapshots {
			at := snap.LastMessageAt
			entries = append(entries, HistoryEntry{
				ConsultationID: snap.ConsultationID,
				LastMessage:    snap.LastMessage,
				LastMessageAt:  &at,
				MessageCount:   snap.MessageCount,
			})
		}
		return entries, nil
	}

	list, _, err := s.consultRepo.FindByParticipant(storeCtx, viewer, s.config.MaxPageSize, 0)
	if err != nil {
		return nil, consultation.NewStoreError("get_history", "could not load consultations", err)
	}
	entries := make([]HistoryEntry, 0, len(list))
	for _, c := range list {
		entries = append(entries, HistoryEntry{
			ConsultationID: c.ID,
			Status:         c.Status,
			LastMessage:    c.LastMessage,
			LastMessageAt:  c.LastMessageAt,
		})
	}
	return entries, nil
}

// GetHistoryMessages returns the decoded snapshot for one consultation of a
// client, falling back to the raw message rows when no snapshot exists yet.
func (s *RelayService) GetHistoryMessages(ctx context.Context, consultationID uint, viewer domain.Identity) ([]domain.Message, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.consultRepo.FindByID(storeCtx, consultationID)
	if err != nil {
		if errors.Is(err, consultrepo.ErrConsultationNotFound) {
			return nil, consultation.NewNotFoundError("get_history_messages", consultationID)
		}
		return nil, consultation.NewStoreError("get_history_messages", "could not load consultation", err)
	}
	if !record.IsParticipant(viewer) {
		return nil, consultation.NewUnauthorizedError("get_history_messages", viewer.ID, consultationID)
	}

	if viewer.Role == domain.RoleClient {
		snap, err := s.historyRepo.FindByUserAndConsultation(storeCtx, viewer.ID, consultationID)
		if err == nil {
			if messages, decErr := snap.DecodeMessages(); decErr == nil {
				return messages, nil
			}
			s.logger.Warn("history snapshot undecodable, falling back to message rows",
				"consultation_id", consultationID, "user_id", viewer.ID)
		} else if !errors.Is(err, historyrepo.ErrHistoryNotFound) {
			return nil, consultation.NewStoreError("get_history_messages", "could not load history snapshot", err)
		}
	}

	messages, err := s.messageRepo.FindByConsultationID(storeCtx, consultationID)
	if err != nil {
		return nil, consultation.NewStoreError("get_history_messages", "could not load messages", err)
	}
	return messages, nil
}

// DeleteHistory removes a client's snapshot and the underlying message rows
// for a terminated consultation.
func (s *RelayService) DeleteHistory(ctx context.Context, consultationID uint, viewer domain.Identity) error {
	if viewer.Role != domain.RoleClient {
		return consultation.NewUnauthorizedError("delete_history", viewer.ID, consultationID)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.consultRepo.FindByID(storeCtx, consultationID)
	if err != nil {
		if errors.Is(err, consultrepo.ErrConsultationNotFound) {
			return consultation.NewNotFoundError("delete_history", consultationID)
		}
		return consultation.NewStoreError("delete_history", "could not load consultation", err)
	}
	if !record.IsParticipant(viewer) {
		return consultation.NewUnauthorizedError("delete_history", viewer.ID, consultationID)
	}
	if record.IsActive() {
		return consultation.NewValidationError("delete_history", "cannot delete history of an active consultation")
	}

	if err := s.historyRepo.DeleteByUserAndConsultation(storeCtx, viewer.ID, consultationID); err != nil {
		return consultation.NewStoreError("delete_history", "could not delete history snapshot", err)
	}
	if err := s.messageRepo.DeleteByConsultationID(storeCtx, consultationID); err != nil {
		return consultation.NewStoreError("delete_history", "could not delete messages", err)
	}
	return nil
}

// snapshotClientHistory refreshes the client-side snapshot after a send.
// Best effort, same rationale as the termination snapshot.
func (s *RelayService) snapshotClientHistory(ctx context.Context, record *domain.Consultation) {
	messages, err := s.messageRepo.FindByConsultationID(ctx, record.ID)
	if err != nil {
		s.logger.Warn("history snapshot skipped, could not load messages",
			"consultation_id", record.ID, "error", err.Error())
		return
	}

	snapshot := &domain.ChatHistory{
		UserID:         record.UserID,
		ConsultationID: record.ID,
	}
	if err := snapshot.SetMessages(messages); err != nil {
		s.logger.Warn("history snapshot skipped, could not encode messages",
			"consultation_id", record.ID, "error", err.Error())
		return
	}
	if err := s.historyRepo.Upsert(ctx, snapshot); err != nil {
		s.logger.Warn("history snapshot write failed",
			"consultation_id", record.ID, "error", err.Error())
	}
}

func (s *RelayService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.StoreTimeout)
}
