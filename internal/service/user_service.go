package service

import (
	"context"
	"fmt"
	"time"

	"corevai-be/internal/dto"
	"corevai-be/internal/repository/specification"
	"corevai-be/internal/repository/stepup"
	"corevai-be/internal/repository/unitofwork"

	"corevai-be/pkg/events"
	pktNats "corevai-be/pkg/nats"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type IUserService interface {
	Profile(ctx context.Context, userId uuid.UUID) (*dto.UserDTO, error)
	UpdatePassword(ctx context.Context, userId uuid.UUID, req *dto.UpdatePasswordRequest) error
	DeleteAccount(ctx context.Context, userId uuid.UUID) error
}

type userService struct {
	uowFactory     unitofwork.RepositoryFactory
	grantStore     stepup.GrantStore
	eventPublisher *pktNats.Publisher
}

func NewUserService(uowFactory unitofwork.RepositoryFactory, grantStore stepup.GrantStore, eventPublisher *pktNats.Publisher) IUserService {
	return &userService{
		uowFactory:     uowFactory,
		grantStore:     grantStore,
		eventPublisher: eventPublisher,
	}
}

func (s *userService) publishEvent(ctx context.Context, eventType string, userId uuid.UUID, email string) {
	if s.eventPublisher == nil {
		return
	}
	event := events.NewSecurityEvent(eventType, userId.String(), email, nil)
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		fmt.Printf("[WARN] Failed to publish %s event: %v\n", eventType, err)
	}
}

func (s *userService) Profile(ctx context.Context, userId uuid.UUID) (*dto.UserDTO, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	result := userDTO(user)
	return &result, nil
}

// UpdatePassword requires the current password for accounts that have
// one. OAuth-only accounts set their first password here.
func (s *userService) UpdatePassword(ctx context.Context, userId uuid.UUID, req *dto.UpdatePasswordRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		return ErrUnauthorized
	}

	if user.HasPassword() {
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			return ErrUnauthorized
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := uow.UserRepository().UpdatePassword(ctx, userId, string(hash)); err != nil {
		return err
	}

	s.publishEvent(ctx, events.TypePasswordChanged, userId, user.Email)
	return nil
}

// DeleteAccount soft-deletes the user and hard-deletes their security
// material so a re-registration starts clean.
func (s *userService) DeleteAccount(ctx context.Context, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		return ErrUnauthorized
	}
	email := user.Email

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.TwoFactorRepository().DeleteByUserId(ctx, userId); err != nil {
		return err
	}
	if err := uow.BackupCodeRepository().DeleteAllByUserId(ctx, userId); err != nil {
		return err
	}

	convs, err := uow.ConversationRepository().FindAll(ctx, specification.OwnedBy{OwnerID: userId})
	if err != nil {
		return err
	}
	for _, c := range convs {
		if err := uow.ConversationRepository().Delete(ctx, c.Id); err != nil {
			return err
		}
	}

	if err := uow.UserRepository().Delete(ctx, userId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	go func() {
		revokeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.grantStore.RevokeAll(revokeCtx, userId)
	}()

	s.publishEvent(ctx, events.TypeAccountDeleted, userId, email)
	return nil
}
