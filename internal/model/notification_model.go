package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Notification struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Type      string         `gorm:"type:varchar(100);not null"`
	Title     string         `gorm:"type:varchar(255);not null"`
	Body      string         `gorm:"type:text"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	ReadAt    *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
