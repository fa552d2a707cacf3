package contract

import (
	"context"

	"corevai-be/internal/entity"
	"corevai-be/internal/repository/specification"

	"github.com/google/uuid"
)

type TwoFactorRepository interface {
	Create(ctx context.Context, config *entity.TwoFactorConfig) error
	Update(ctx context.Context, config *entity.TwoFactorConfig) error
	DeleteByUserId(ctx context.Context, userId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.TwoFactorConfig, error)
}

type BackupCodeRepository interface {
	CreateBulk(ctx context.Context, codes []*entity.BackupCode) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.BackupCode, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
	DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
