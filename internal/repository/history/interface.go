// File: internal/repository/history/interface.go
package history

import (
	"context"

	"github.com/lexserve/go-lexserve/internal/domain"
)

// HistoryRepository handles chat-history snapshot operations. Snapshots are
// upserted: at most one row exists per (user, consultation) pair.
type HistoryRepository interface {
	Upsert(ctx context.Context, snapshot *domain.ChatHistory) error
	FindByUser(ctx context.Context, userID uint) ([]domain.ChatHistory, error)
	FindByUserAndConsultation(ctx context.Context, userID, consultationID uint) (*domain.ChatHistory, error)
	DeleteByUserAndConsultation(ctx context.Context, userID, consultationID uint) error
}
