// File: internal/repository/consultation/interface.go
package consultation

import (
	"context"
	"time"

	"github.com/lexserve/go-lexserve/internal/domain"
)

// ConsultationRepository handles consultation data operations.
type ConsultationRepository interface {
	Create(ctx context.Context, c *domain.Consultation) (*domain.Consultation, error)
	FindByID(ctx context.Context, id uint) (*domain.Consultation, error)
	FindByParticipant(ctx context.Context, identity domain.Identity, limit, offset int) ([]domain.Consultation, int64, error)
	HasActiveByPair(ctx context.Context, userID, advocateID uint) (bool, error)
	UpdateLastMessage(ctx context.Context, id uint, body string, at time.Time) error
	// Terminate moves an active consultation to a terminal status. It returns
	// ErrConsultationNotActive when the row is missing or already terminal,
	// which is what makes ending idempotently rejectable.
	Terminate(ctx context.Context, id uint, status string, endedAt time.Time) (*domain.Consultation, error)
}
