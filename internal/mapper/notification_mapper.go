package mapper

import (
	"encoding/json"

	"corevai-be/internal/entity"
	"corevai-be/internal/model"

	"gorm.io/datatypes"
)

type NotificationMapper struct{}

func NewNotificationMapper() *NotificationMapper {
	return &NotificationMapper{}
}

func (m *NotificationMapper) ToEntity(n *model.Notification) *entity.Notification {
	if n == nil {
		return nil
	}

	var payload map[string]interface{}
	if len(n.Payload) > 0 {
		_ = json.Unmarshal(n.Payload, &payload)
	}

	return &entity.Notification{
		Id:        n.Id,
		UserId:    n.UserId,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Payload:   payload,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func (m *NotificationMapper) ToModel(n *entity.Notification) *model.Notification {
	if n == nil {
		return nil
	}

	var payload datatypes.JSON
	if n.Payload != nil {
		raw, err := json.Marshal(n.Payload)
		if err == nil {
			payload = datatypes.JSON(raw)
		}
	}

	return &model.Notification{
		Id:        n.Id,
		UserId:    n.UserId,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Payload:   payload,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
