// File: internal/repository/advocate/interface.go
package advocate

import (
	"context"
	"time"

	"github.com/lexserve/go-lexserve/internal/domain"
)

// AdvocateRepository handles advocate data operations, including the durable
// presence fallback columns written behind the in-memory registry.
type AdvocateRepository interface {
	Create(ctx context.Context, a *domain.Advocate) (*domain.Advocate, error)
	FindByID(ctx context.Context, id uint) (*domain.Advocate, error)
	FindApproved(ctx context.Context, limit, offset int) ([]domain.Advocate, int64, error)
	UpdatePresence(ctx context.Context, id uint, online bool, lastSeen time.Time) error
}
