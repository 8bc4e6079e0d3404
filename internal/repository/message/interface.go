// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/lexserve/go-lexserve/internal/domain"
)

// MessageRepository handles message data operations. Messages are
// append-only: there is no update path other than the read flag, and rows are
// only removed by the consultation-level cascade.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	FindByConsultationID(ctx context.Context, consultationID uint) ([]domain.Message, error)
	FindByConsultationIDWithPagination(ctx context.Context, consultationID uint, limit, offset int) ([]domain.Message, int64, error)
	CountByConsultationID(ctx context.Context, consultationID uint) (int64, error)
	MarkRead(ctx context.Context, consultationID, readerID uint) (int64, error)
	DeleteByConsultationID(ctx context.Context, consultationID uint) error
}
