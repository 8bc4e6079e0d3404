// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lexserve/go-lexserve/internal/domain"
	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("message not found")

const maxBodyLength = 10000

type gormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

// Create appends a message row.
func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := r.validateInput(message); err != nil {
		log.Printf("[MessageRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		// Secure logging - message bodies are never logged
		log.Printf("[MessageRepository] Database error creating message for consultation %d: %v", message.ConsultationID, err)
		return nil, errors.New("database error creating message")
	}

	log.Printf("[MessageRepository] Message created with ID %d for consultation %d", message.ID, message.ConsultationID)
	return message, nil
}

// FindByConsultationID returns the full ordered transcript. Ordering is
// created_at then id so concurrent same-timestamp writes stay prefix-stable.
func (r *gormMessageRepository) FindByConsultationID(ctx context.Context, consultationID uint) ([]domain.Message, error) {
	if consultationID == 0 {
		return nil, errors.New("invalid consultation ID")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("consultation_id = ?", consultationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error fetching messages for consultation %d: %v", consultationID, err)
		return nil, errors.New("database error fetching messages")
	}
	return messages, nil
}

// FindByConsultationIDWithPagination loads one page of the ordered transcript.
func (r *gormMessageRepository) FindByConsultationIDWithPagination(ctx context.Context, consultationID uint, limit, offset int) ([]domain.Message, int64, error) {
	if consultationID == 0 {
		return nil, 0, errors.New("invalid consultation ID")
	}
	if limit <= 0 || limit > 1000 {
		return nil, 0, errors.New("invalid limit: must be between 1 and 1000")
	}
	if offset < 0 {
		return nil, 0, errors.New("invalid offset: must be >= 0")
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("consultation_id = ?", consultationID).Count(&total).Error; err != nil {
		log.Printf("[MessageRepository] Database error counting messages for consultation %d: %v", consultationID, err)
		return nil, 0, errors.New("database error counting messages")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("consultation_id = ?", consultationID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error in paginated query for consultation %d: %v", consultationID, err)
		return nil, 0, errors.New("database error retrieving paginated messages")
	}

	return messages, total, nil
}

func (r *gormMessageRepository) CountByConsultationID(ctx context.Context, consultationID uint) (int64, error) {
	if consultationID == 0 {
		return 0, errors.New("invalid consultation ID")
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("consultation_id = ?", consultationID).Count(&count).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error counting messages for consultation %d: %v", consultationID, err)
		return 0, errors.New("database error counting messages")
	}
	return count, nil
}

// MarkRead flags every message the reader did not author as read. The read
// flag is the only mutable field on a persisted message.
func (r *gormMessageRepository) MarkRead(ctx context.Context, consultationID, readerID uint) (int64, error) {
	if consultationID == 0 || readerID == 0 {
		return 0, errors.New("invalid consultation ID or reader ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("consultation_id = ? AND sender_id <> ? AND is_read = ?", consultationID, readerID, false).
		Update("is_read", true)
	if result.Error != nil {
		log.Printf("[MessageRepository] Database error marking messages read for consultation %d: %v", consultationID, result.Error)
		return 0, errors.New("database error marking messages read")
	}
	return result.RowsAffected, nil
}

// DeleteByConsultationID removes a consultation's messages. Only invoked by
// the history cascade when a client deletes a transcript.
func (r *gormMessageRepository) DeleteByConsultationID(ctx context.Context, consultationID uint) error {
	if consultationID == 0 {
		return errors.New("invalid consultation ID")
	}

	result := r.db.WithContext(ctx).Where("consultation_id = ?", consultationID).Delete(&domain.Message{})
	if result.Error != nil {
		log.Printf("[MessageRepository] Database error deleting messages for consultation %d: %v", consultationID, result.Error)
		return errors.New("database error deleting messages")
	}

	log.Printf("[MessageRepository] Deleted %d messages for consultation %d", result.RowsAffected, consultationID)
	return nil
}

func (r *gormMessageRepository) validateInput(message *domain.Message) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if message.ConsultationID == 0 {
		return errors.New("consultation ID is required")
	}
	if message.SenderID == 0 {
		return errors.New("sender ID is required")
	}
	if message.SenderRole != domain.RoleClient && message.SenderRole != domain.RoleAdvocate {
		return errors.New("invalid sender role")
	}
	if strings.TrimSpace(message.Body) == "" {
		return errors.New("message body cannot be empty")
	}
	if len(message.Body) > maxBodyLength {
		return errors.New("message body too long (max 10000 characters)")
	}
	if message.Kind != "" && !domain.IsValidMessageKind(message.Kind) {
		return errors.New("invalid message kind")
	}
	return nil
}
