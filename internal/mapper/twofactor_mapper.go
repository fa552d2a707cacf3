package mapper

import (
	"corevai-be/internal/entity"
	"corevai-be/internal/model"
)

type TwoFactorMapper struct{}

func NewTwoFactorMapper() *TwoFactorMapper {
	return &TwoFactorMapper{}
}

func (m *TwoFactorMapper) ConfigToEntity(c *model.TwoFactorConfig) *entity.TwoFactorConfig {
	if c == nil {
		return nil
	}
	return &entity.TwoFactorConfig{
		Id:        c.Id,
		UserId:    c.UserId,
		Secret:    c.Secret,
		Enabled:   c.Enabled,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (m *TwoFactorMapper) ConfigToModel(c *entity.TwoFactorConfig) *model.TwoFactorConfig {
	if c == nil {
		return nil
	}
	return &model.TwoFactorConfig{
		Id:        c.Id,
		UserId:    c.UserId,
		Secret:    c.Secret,
		Enabled:   c.Enabled,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (m *TwoFactorMapper) BackupCodeToEntity(b *model.BackupCode) *entity.BackupCode {
	if b == nil {
		return nil
	}
	return &entity.BackupCode{
		Id:        b.Id,
		UserId:    b.UserId,
		CodeHash:  b.CodeHash,
		UsedAt:    b.UsedAt,
		CreatedAt: b.CreatedAt,
	}
}

func (m *TwoFactorMapper) BackupCodeToModel(b *entity.BackupCode) *model.BackupCode {
	if b == nil {
		return nil
	}
	return &model.BackupCode{
		Id:        b.Id,
		UserId:    b.UserId,
		CodeHash:  b.CodeHash,
		UsedAt:    b.UsedAt,
		CreatedAt: b.CreatedAt,
	}
}

func (m *TwoFactorMapper) BackupCodesToEntities(codes []*model.BackupCode) []*entity.BackupCode {
	entities := make([]*entity.BackupCode, len(codes))
	for i, c := range codes {
		entities[i] = m.BackupCodeToEntity(c)
	}
	return entities
}
