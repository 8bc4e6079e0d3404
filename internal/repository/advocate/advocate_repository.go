// File: internal/repository/advocate/advocate_repository.go
package advocate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lexserve/go-lexserve/internal/domain"
	"gorm.io/gorm"
)

var ErrAdvocateNotFound = errors.New("advocate not found")

type gormAdvocateRepository struct {
	db *gorm.DB
}

func NewAdvocateRepository(db *gorm.DB) AdvocateRepository {
	return &gormAdvocateRepository{db: db}
}

func (r *gormAdvocateRepository) Create(ctx context.Context, a *domain.Advocate) (*domain.Advocate, error) {
	if a == nil {
		return nil, errors.New("advocate cannot be nil")
	}
	if err := a.IsValid(); err != nil {
		log.Printf("[AdvocateRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		log.Printf("[AdvocateRepository] Database error creating advocate: %v", err)
		return nil, errors.New("database error creating advocate")
	}
	return a, nil
}

func (r *gormAdvocateRepository) FindByID(ctx context.Context, id uint) (*domain.Advocate, error) {
	if id == 0 {
		return nil, errors.New("invalid advocate ID")
	}

	var a domain.Advocate
	err := r.db.WithContext(ctx).First(&a, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdvocateNotFound
		}
		log.Printf("[AdvocateRepository] FindByID database error: %v", err)
		return nil, errors.New("database query failed")
	}
	return &a, nil
}

// FindApproved lists approved advocates for the discovery surface. Online
// ones sort first so the live overlay matches the default order.
func (r *gormAdvocateRepository) FindApproved(ctx context.Context, limit, offset int) ([]domain.Advocate, int64, error) {
	if limit <= 0 || limit > 1000 {
		return nil, 0, errors.New("invalid limit: must be between 1 and 1000")
	}
	if offset < 0 {
		return nil, 0, errors.New("invalid offset: must be >= 0")
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Advocate{}).Where("is_approved = ?", true).Count(&total).Error; err != nil {
		log.Printf("[AdvocateRepository] Database error counting approved advocates: %v", err)
		return nil, 0, errors.New("database error counting advocates")
	}

	var advocates []domain.Advocate
	err := r.db.WithContext(ctx).
		Where("is_approved = ?", true).
		Order("is_online DESC, last_seen DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&advocates).Error
	if err != nil {
		log.Printf("[AdvocateRepository] Database error listing approved advocates: %v", err)
		return nil, 0, errors.New("database error fetching advocates")
	}

	return advocates, total, nil
}

// UpdatePresence writes the durable presence fallback. The in-memory registry
// remains authoritative for live state; callers swallow failures here.
func (r *gormAdvocateRepository) UpdatePresence(ctx context.Context, id uint, online bool, lastSeen time.Time) error {
	if id == 0 {
		return errors.New("invalid advocate ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Advocate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_online": online,
			"last_seen": lastSeen,
		})
	if result.Error != nil {
		log.Printf("[AdvocateRepository] Database error updating presence for advocate %d: %v", id, result.Error)
		return errors.New("database error updating presence")
	}
	if result.RowsAffected == 0 {
		return ErrAdvocateNotFound
	}
	return nil
}
