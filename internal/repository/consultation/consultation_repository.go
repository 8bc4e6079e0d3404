// File: internal/repository/consultation/consultation_repository.go
package consultation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lexserve/go-lexserve/internal/domain"
	"gorm.io/gorm"
)

var ErrConsultationNotFound = errors.New("consultation not found")
var ErrConsultationNotActive = errors.New("consultation not found or not active")

type gormConsultationRepository struct {
	db *gorm.DB
}

func NewConsultationRepository(db *gorm.DB) ConsultationRepository {
	return &gormConsultationRepository{db: db}
}

// Create inserts the consultation row. Creation and activation are atomic:
// the row is written with its final active status in a single insert.
func (r *gormConsultationRepository) Create(ctx context.Context, c *domain.Consultation) (*domain.Consultation, error) {
	if err := r.validateInput(c); err != nil {
		log.Printf("[ConsultationRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		log.Printf("[ConsultationRepository] Database error creating consultation for user %d, advocate %d: %v", c.UserID, c.AdvocateID, err)
		return nil, errors.New("database error creating consultation")
	}

	log.Printf("[ConsultationRepository] Consultation created with ID %d (user %d, advocate %d)", c.ID, c.UserID, c.AdvocateID)
	return c, nil
}

func (r *gormConsultationRepository) FindByID(ctx context.Context, id uint) (*domain.Consultation, error) {
	if id == 0 {
		return nil, errors.New("invalid consultation ID")
	}

	var c domain.Consultation
	err := r.db.WithContext(ctx).First(&c, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConsultationNotFound
		}
		log.Printf("[ConsultationRepository] FindByID database error: %v", err)
		return nil, errors.New("database query failed")
	}
	return &c, nil
}

// FindByParticipant lists consultations for one side of the pair, newest
// activity first.
func (r *gormConsultationRepository) FindByParticipant(ctx context.Context, identity domain.Identity, limit, offset int) ([]domain.Consultation, int64, error) {
	if !identity.IsValid() {
		return nil, 0, errors.New("invalid identity")
	}
	if limit <= 0 || limit > 1000 {
		return nil, 0, errors.New("invalid limit: must be between 1 and 1000")
	}
	if offset < 0 {
		return nil, 0, errors.New("invalid offset: must be >= 0")
	}

	column := "user_id"
	if identity.Role == domain.RoleAdvocate {
		column = "advocate_id"
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Consultation{}).Where(column+" = ?", identity.ID).Count(&total).Error; err != nil {
		log.Printf("[ConsultationRepository] Database error counting consultations for %s %d: %v", identity.Role, identity.ID, err)
		return nil, 0, errors.New("database error counting consultations")
	}

	var consultations []domain.Consultation
	err := r.db.WithContext(ctx).
		Where(column+" = ?", identity.ID).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&consultations).Error
	if err != nil {
		log.Printf("[ConsultationRepository] Database error listing consultations for %s %d: %v", identity.Role, identity.ID, err)
		return nil, 0, errors.New("database error fetching consultations")
	}

	return consultations, total, nil
}

// HasActiveByPair reports whether the (client, advocate) pair already has an
// active consultation. Best-effort: callers treat a store error as "unknown"
// and proceed, first writer wins.
func (r *gormConsultationRepository) HasActiveByPair(ctx context.Context, userID, advocateID uint) (bool, error) {
	if userID == 0 || advocateID == 0 {
		return false, errors.New("invalid user ID or advocate ID")
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Consultation{}).
		Where("user_id = ? AND advocate_id = ? AND status = ?", userID, advocateID, domain.ConsultationActive).
		Count(&count).Error
	if err != nil {
		log.Printf("[ConsultationRepository] Database error checking active pair (%d, %d): %v", userID, advocateID, err)
		return false, errors.New("database error checking active consultations")
	}
	return count > 0, nil
}

// UpdateLastMessage refreshes the lightweight last-message projection.
func (r *gormConsultationRepository) UpdateLastMessage(ctx context.Context, id uint, body string, at time.Time) error {
	if id == 0 {
		return errors.New("invalid consultation ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Consultation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message":    body,
			"last_message_at": at,
		})
	if result.Error != nil {
		log.Printf("[ConsultationRepository] Database error updating last message for consultation %d: %v", id, result.Error)
		return errors.New("database error updating last message")
	}
	if result.RowsAffected == 0 {
		return ErrConsultationNotFound
	}
	return nil
}

// Terminate conditionally moves an active consultation into a terminal
// status. The WHERE status = 'active' clause makes the transition
// first-writer-wins: a second attempt affects zero rows and is rejected.
func (r *gormConsultationRepository) Terminate(ctx context.Context, id uint, status string, endedAt time.Time) (*domain.Consultation, error) {
	if id == 0 {
		return nil, errors.New("invalid consultation ID")
	}
	if status != domain.ConsultationCompleted && status != domain.ConsultationCancelled {
		return nil, errors.New("invalid terminal status")
	}

	var c domain.Consultation
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConsultationNotActive
		}
		log.Printf("[ConsultationRepository] Terminate lookup error for consultation %d: %v", id, err)
		return nil, errors.New("database query failed")
	}

	duration := int(endedAt.Sub(c.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Consultation{}).
		Where("id = ? AND status = ?", id, domain.ConsultationActive).
		Updates(map[string]interface{}{
			"status":   status,
			"ended_at": endedAt,
			"duration": duration,
		})
	if result.Error != nil {
		log.Printf("[ConsultationRepository] Database error terminating consultation %d: %v", id, result.Error)
		return nil, errors.New("database error terminating consultation")
	}
	if result.RowsAffected == 0 {
		return nil, ErrConsultationNotActive
	}

	c.Status = status
	c.EndedAt = &endedAt
	c.Duration = duration
	log.Printf("[ConsultationRepository] Consultation %d moved to %s", id, status)
	return &c, nil
}

func (r *gormConsultationRepository) validateInput(c *domain.Consultation) error {
	if c == nil {
		return errors.New("consultation cannot be nil")
	}
	if c.UserID == 0 {
		return errors.New("user ID is required")
	}
	if c.AdvocateID == 0 {
		return errors.New("advocate ID is required")
	}
	if !domain.IsValidConsultationType(c.Type) {
		return errors.New("invalid consultation type")
	}
	if c.FeeAmount < 0 {
		return errors.New("fee amount cannot be negative")
	}
	return nil
}
