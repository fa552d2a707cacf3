package contract

import (
	"context"

	"corevai-be/internal/entity"
	"corevai-be/internal/repository/specification"

	"github.com/google/uuid"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}
