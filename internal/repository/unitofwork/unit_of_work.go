package unitofwork

import (
	"context"

	"corevai-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	TwoFactorRepository() contract.TwoFactorRepository
	BackupCodeRepository() contract.BackupCodeRepository

	ConversationRepository() contract.ConversationRepository
	MessageRepository() contract.MessageRepository
	ProjectRepository() contract.ProjectRepository
	NotificationRepository() contract.NotificationRepository
}
