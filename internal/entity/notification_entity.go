package entity

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Type      string
	Title     string
	Body      string
	Payload   map[string]interface{}
	ReadAt    *time.Time
	CreatedAt time.Time
}
