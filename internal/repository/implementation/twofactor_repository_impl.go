package implementation

import (
	"context"
	"errors"
	"time"

	"corevai-be/internal/entity"
	"corevai-be/internal/mapper"
	"corevai-be/internal/model"
	"corevai-be/internal/repository/contract"
	"corevai-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TwoFactorRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TwoFactorMapper
}

func NewTwoFactorRepository(db *gorm.DB) contract.TwoFactorRepository {
	return &TwoFactorRepositoryImpl{
		db:     db,
		mapper: mapper.NewTwoFactorMapper(),
	}
}

func (r *TwoFactorRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *TwoFactorRepositoryImpl) Create(ctx context.Context, config *entity.TwoFactorConfig) error {
	m := r.mapper.ConfigToModel(config)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*config = *r.mapper.ConfigToEntity(m)
	return nil
}

func (r *TwoFactorRepositoryImpl) Update(ctx context.Context, config *entity.TwoFactorConfig) error {
	m := r.mapper.ConfigToModel(config)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*config = *r.mapper.ConfigToEntity(m)
	return nil
}

func (r *TwoFactorRepositoryImpl) DeleteByUserId(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&model.TwoFactorConfig{}).Error
}

func (r *TwoFactorRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.TwoFactorConfig, error) {
	var m model.TwoFactorConfig
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.mapper.ConfigToEntity(&m), nil
}

type BackupCodeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TwoFactorMapper
}

func NewBackupCodeRepository(db *gorm.DB) contract.BackupCodeRepository {
	return &BackupCodeRepositoryImpl{
		db:     db,
		mapper: mapper.NewTwoFactorMapper(),
	}
}

func (r *BackupCodeRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *BackupCodeRepositoryImpl) CreateBulk(ctx context.Context, codes []*entity.BackupCode) error {
	if len(codes) == 0 {
		return nil
	}
	models := make([]*model.BackupCode, len(codes))
	for i, c := range codes {
		models[i] = r.mapper.BackupCodeToModel(c)
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*codes[i] = *r.mapper.BackupCodeToEntity(m)
	}
	return nil
}

func (r *BackupCodeRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.BackupCode, error) {
	var models []*model.BackupCode
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	return r.mapper.BackupCodesToEntities(models), nil
}

func (r *BackupCodeRepositoryImpl) MarkUsed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.BackupCode{}).Where("id = ?", id).Update("used_at", time.Now()).Error
}

func (r *BackupCodeRepositoryImpl) DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&model.BackupCode{}).Error
}

func (r *BackupCodeRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.BackupCode{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
