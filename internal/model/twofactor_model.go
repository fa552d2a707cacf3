package model

import (
	"time"

	"github.com/google/uuid"
)

type TwoFactorConfig struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Secret    string    `gorm:"type:varchar(255);not null"`
	Enabled   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (TwoFactorConfig) TableName() string {
	return "two_factor_configs"
}

type BackupCode struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	CodeHash  string    `gorm:"type:varchar(255);not null"`
	UsedAt    *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (BackupCode) TableName() string {
	return "backup_codes"
}
