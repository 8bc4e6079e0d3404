// File: internal/repository/history/history_repository.go
package history

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/lexserve/go-lexserve/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrHistoryNotFound = errors.New("chat history not found")

type gormHistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &gormHistoryRepository{db: db}
}

// Upsert writes the snapshot, replacing any existing row for the same
// (user, consultation) pair in a single atomic statement.
func (r *gormHistoryRepository) Upsert(ctx context.Context, snapshot *domain.ChatHistory) error {
	if err := r.validateInput(snapshot); err != nil {
		log.Printf("[HistoryRepository] Validation failed: %v", err)
		return fmt.Errorf("validation failed: %w", err)
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "consultation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"messages", "last_message", "last_message_at", "message_count", "updated_at",
			}),
		}).
		Create(snapshot).Error
	if err != nil {
		log.Printf("[HistoryRepository] Database error upserting snapshot for user %d, consultation %d: %v", snapshot.UserID, snapshot.ConsultationID, err)
		return errors.New("database error upserting chat history")
	}
	return nil
}

// FindByUser lists a user's snapshots, most recent conversation first.
func (r *gormHistoryRepository) FindByUser(ctx context.Context, userID uint) ([]domain.ChatHistory, error) {
	if userID == 0 {
		return nil, errors.New("invalid user ID")
	}

	var snapshots []domain.ChatHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_message_at DESC, id DESC").
		Find(&snapshots).Error
	if err != nil {
		log.Printf("[HistoryRepository] Database error fetching snapshots for user %d: %v", userID, err)
		return nil, errors.New("database error fetching chat history")
	}
	return snapshots, nil
}

func (r *gormHistoryRepository) FindByUserAndConsultation(ctx context.Context, userID, consultationID uint) (*domain.ChatHistory, error) {
	if userID == 0 || consultationID == 0 {
		return nil, errors.New("invalid user ID or consultation ID")
	}

	var snapshot domain.ChatHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND consultation_id = ?", userID, consultationID).
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHistoryNotFound
		}
		log.Printf("[HistoryRepository] FindByUserAndConsultation database error: %v", err)
		return nil, errors.New("database query failed")
	}
	return &snapshot, nil
}

func (r *gormHistoryRepository) DeleteByUserAndConsultation(ctx context.Context, userID, consultationID uint) error {
	if userID == 0 || consultationID == 0 {
		return errors.New("invalid user ID or consultation ID")
	}

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND consultation_id = ?", userID, consultationID).
		Delete(&domain.ChatHistory{})
	if result.Error != nil {
		log.Printf("[HistoryRepository] Database error deleting snapshot for user %d, consultation %d: %v", userID, consultationID, result.Error)
		return errors.New("database error deleting chat history")
	}
	if result.RowsAffected == 0 {
		return ErrHistoryNotFound
	}
	return nil
}

func (r *gormHistoryRepository) validateInput(snapshot *domain.ChatHistory) error {
	if snapshot == nil {
		return errors.New("snapshot cannot be nil")
	}
	if snapshot.UserID == 0 {
		return errors.New("user ID is required")
	}
	if snapshot.ConsultationID == 0 {
		return errors.New("consultation ID is required")
	}
	return nil
}
