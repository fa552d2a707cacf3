package service

import (
	"context"
	"fmt"
	"time"

	"corevai-be/internal/dto"
	"corevai-be/internal/entity"
	"corevai-be/internal/pkg/logger"
	"corevai-be/internal/pkg/mailer"
	"corevai-be/internal/repository/specification"
	"corevai-be/internal/repository/unitofwork"
	"corevai-be/pkg/events"
	pktNats "corevai-be/pkg/nats"

	"github.com/google/uuid"
)

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification dto.NotificationDTO)
}

type NotificationService struct {
	uowFactory   unitofwork.RepositoryFactory
	subscriber   *pktNats.Subscriber
	delivery     NotificationDelivery
	emailService mailer.IEmailService
	logger       logger.ILogger
}

func NewNotificationService(
	uowFactory unitofwork.RepositoryFactory,
	sub *pktNats.Subscriber,
	delivery NotificationDelivery,
	emailService mailer.IEmailService,
	log logger.ILogger,
) *NotificationService {
	return &NotificationService{
		uowFactory:   uowFactory,
		subscriber:   sub,
		delivery:     delivery,
		emailService: emailService,
		logger:       log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("events.>", "notif-service-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

// securityTemplates maps event types to user-facing copy.
var securityTemplates = map[string]struct {
	Title string
	Body  string
}{
	events.TypeTwoFactorEnabled: {
		Title: "Two-factor authentication enabled",
		Body:  "Two-factor authentication was turned on for your account. New backup codes were issued.",
	},
	events.TypeTwoFactorDisabled: {
		Title: "Two-factor authentication disabled",
		Body:  "Two-factor authentication was turned off for your account. Your backup codes no longer work.",
	},
	events.TypeBackupCodesGenerated: {
		Title: "Backup codes regenerated",
		Body:  "A new set of backup codes was generated. All previous codes are now invalid.",
	},
	events.TypePasswordChanged: {
		Title: "Password changed",
		Body:  "Your account password was changed.",
	},
	events.TypeAccountDeleted: {
		Title: "Account deleted",
		Body:  "Your account was scheduled for deletion.",
	},
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	template, known := securityTemplates[event.EventType()]
	if !known {
		s.logger.Warn("NotificationService", fmt.Sprintf("No template for event type: %s", event.EventType()), nil)
		return nil
	}

	payload := event.Payload()
	uidStr, _ := payload["user_id"].(string)
	userId, err := uuid.Parse(uidStr)
	if err != nil {
		s.logger.Warn("NotificationService", "Event without valid user_id, dropping", map[string]interface{}{"type": event.EventType()})
		return nil
	}
	email, _ := payload["email"].(string)

	notif := &entity.Notification{
		Id:        uuid.New(),
		UserId:    userId,
		Type:      event.EventType(),
		Title:     template.Title,
		Body:      template.Body,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.NotificationRepository().Create(ctx, notif); err != nil {
		s.logger.Error("NotificationService", "Failed to save notification", map[string]interface{}{"error": err.Error()})
		return err // NATS will retry
	}

	if s.delivery != nil {
		s.delivery.Send(userId, dto.NotificationDTO{
			Id:        notif.Id,
			Type:      notif.Type,
			Title:     notif.Title,
			Body:      notif.Body,
			Payload:   notif.Payload,
			CreatedAt: notif.CreatedAt,
		})
	}

	// Account deletion skips email: the address just left the system.
	if email != "" && event.EventType() != events.TypeAccountDeleted {
		go func() {
			if emailErr := s.emailService.SendSecurityAlert(email, template.Title, template.Title, template.Body); emailErr != nil {
				s.logger.Warn("NotificationService", "Failed to send security email", map[string]interface{}{"error": emailErr.Error()})
			}
		}()
	}

	return nil
}

// List fetches notifications for a user, newest first.
func (s *NotificationService) List(ctx context.Context, userId uuid.UUID, limit int) ([]dto.NotificationDTO, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	notifs, err := uow.NotificationRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Limit{N: limit},
	)
	if err != nil {
		return nil, err
	}

	result := make([]dto.NotificationDTO, len(notifs))
	for i, n := range notifs {
		result[i] = dto.NotificationDTO{
			Id:        n.Id,
			Type:      n.Type,
			Title:     n.Title,
			Body:      n.Body,
			Payload:   n.Payload,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		}
	}
	return result, nil
}

// MarkRead marks a notification as read after an ownership check.
func (s *NotificationService) MarkRead(ctx context.Context, userId, notificationId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	notifs, err := uow.NotificationRepository().FindAll(ctx,
		specification.ByID{ID: notificationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if len(notifs) == 0 {
		return ErrNotFound
	}

	return uow.NotificationRepository().MarkRead(ctx, notificationId)
}
