package service

import (
	"context"
	"fmt"
	"time"

	"corevai-be/internal/constant"
	"corevai-be/internal/dto"
	"corevai-be/internal/entity"
	"corevai-be/internal/pkg/backupcode"
	"corevai-be/internal/pkg/totp"
	"corevai-be/internal/repository/specification"
	"corevai-be/internal/repository/stepup"
	"corevai-be/internal/repository/unitofwork"

	"corevai-be/pkg/events"
	pktNats "corevai-be/pkg/nats"

	"github.com/google/uuid"
)

// Two-factor lifecycle: Unconfigured -> (StartSetup) -> Pending ->
// (VerifyAndEnable) -> Enabled -> (Disable) -> Unconfigured.
// Backup codes only exist while Enabled and are rotated as a full set.

type ITwoFactorService interface {
	Status(ctx context.Context, userId uuid.UUID) (*dto.TwoFactorStatusResponse, error)
	StartSetup(ctx context.Context, userId uuid.UUID) (*dto.TwoFactorSetupResponse, error)
	VerifyAndEnable(ctx context.Context, userId uuid.UUID, code string) (*dto.TwoFactorCodesResponse, error)
	Disable(ctx context.Context, userId uuid.UUID, code string) error
	RegenerateBackupCodes(ctx context.Context, userId uuid.UUID) (*dto.TwoFactorCodesResponse, error)
	StepUpVerify(ctx context.Context, userId uuid.UUID, code string) (string, error)
	CheckStepUp(ctx context.Context, userId uuid.UUID, token string) (bool, error)
}

type twoFactorService struct {
	uowFactory     unitofwork.RepositoryFactory
	grantStore     stepup.GrantStore
	eventPublisher *pktNats.Publisher
}

func NewTwoFactorService(uowFactory unitofwork.RepositoryFactory, grantStore stepup.GrantStore, eventPublisher *pktNats.Publisher) ITwoFactorService {
	return &twoFactorService{
		uowFactory:     uowFactory,
		grantStore:     grantStore,
		eventPublisher: eventPublisher,
	}
}

func (s *twoFactorService) publishEvent(ctx context.Context, eventType string, userId uuid.UUID, email string) {
	if s.eventPublisher == nil {
		return
	}
	event := events.NewSecurityEvent(eventType, userId.String(), email, nil)
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		fmt.Printf("[WARN] Failed to publish %s event: %v\n", eventType, err)
	}
}

func (s *twoFactorService) Status(ctx context.Context, userId uuid.UUID) (*dto.TwoFactorStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	config, err := uow.TwoFactorRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}

	if config == nil {
		return &dto.TwoFactorStatusResponse{Ok: true, State: "unconfigured"}, nil
	}
	if !config.Enabled {
		return &dto.TwoFactorStatusResponse{Ok: true, State: "pending"}, nil
	}

	left, err := uow.BackupCodeRepository().Count(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.Unused{},
	)
	if err != nil {
		return nil, err
	}

	return &dto.TwoFactorStatusResponse{
		Ok:         true,
		State:      "enabled",
		BackupLeft: int(left),
	}, nil
}

// StartSetup generates a fresh secret and stores it disabled, from any
// prior state. Calling it again before verification replaces the pending
// secret; calling it while enabled drops the account back to pending
// until the new secret is verified.
func (s *twoFactorService) StartSetup(ctx context.Context, userId uuid.UUID) (*dto.TwoFactorSetupResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}

	config, err := uow.TwoFactorRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(constant.TOTPIssuer, user.Email)
	if err != nil {
		return nil, err
	}

	if config == nil {
		config = &entity.TwoFactorConfig{
			Id:        uuid.New(),
			UserId:    userId,
			Secret:    key.Secret,
			Enabled:   false,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := uow.TwoFactorRepository().Create(ctx, config); err != nil {
			return nil, err
		}
	} else {
		config.Secret = key.Secret
		config.Enabled = false
		config.UpdatedAt = time.Now()
		if err := uow.TwoFactorRepository().Update(ctx, config); err != nil {
			return nil, err
		}
	}

	return &dto.TwoFactorSetupResponse{
		Ok:              true,
		Secret:          key.Secret,
		ProvisioningURI: key.ProvisioningURI,
		QRCode:          key.QRCodeBase64,
	}, nil
}

// VerifyAndEnable confirms the pending secret with a live code, flips the
// config to enabled and issues a brand new backup-code set. Any previous
// codes are dropped so exactly one set is valid at a time.
func (s *twoFactorService) VerifyAndEnable(ctx context.Context, userId uuid.UUID, code string) (*dto.TwoFactorCodesResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}

	config, err := uow.TwoFactorRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, ErrNotSetup
	}

	if !totp.Verify(code, config.Secret) {
		return nil, ErrInvalidCode
	}

	plaintext, err := backupcode.Generate(constant.BackupCodeCount)
	if err != nil {
		return nil, err
	}
	hashes, err := backupcode.HashAll(plaintext)
	if err != nil {
		return nil, err
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	config.Enabled = true
	config.UpdatedAt = time.Now()
	if err := uow.TwoFactorRepository().Update(ctx, config); err != nil {
		return nil, err
	}

	if err := uow.BackupCodeRepository().DeleteAllByUserId(ctx, userId); err != nil {
		return nil, err
	}

	codes := make([]*entity.BackupCode, len(hashes))
	for i, h := range hashes {
		codes[i] = &entity.BackupCode{
			Id:        uuid.New(),
			UserId:    userId,
			CodeHash:  h,
			CreatedAt: time.Now(),
		}
	}
	if err := uow.BackupCodeRepository().CreateBulk(ctx, codes); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.TypeTwoFactorEnabled, userId, user.Email)

	// The code just verified doubles as step-up proof for this session.
	grant, err := s.grantStore.Grant(ctx, userId)
	if err != nil {
		fmt.Printf("[WARN] Failed to issue step-up grant: %v\n", err)
	}

	return &dto.TwoFactorCodesResponse{Ok: true, BackupCodes: plaintext, GrantToken: grant}, nil
}

// Disable accepts a live TOTP code or an unused backup code, then removes
// the config row and all backup codes, returning the account to the
// unconfigured state.
func (s *twoFactorService) Disable(ctx context.Context, userId uuid.UUID, code string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		return ErrUnauthorized
	}

	config, err := uow.TwoFactorRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return err
	}
	if config == nil {
		return ErrNotEnabled
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	// Consuming the backup code inside the transaction keeps it alive if
	// anything below fails: a burned code with two-factor still on would
	// strand the user.
	if !totp.Verify(code, config.Secret) {
		if _, err := s.consumeBackupCode(ctx, uow, userId, code); err != nil {
			return err
		}
	}

	if err := uow.TwoFactorRepository().DeleteByUserId(ctx, userId); err != nil {
		return err
	}
	if err := uow.BackupCodeRepository().DeleteAllByUserId(ctx, userId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	// Lingering grants would let a dropped factor keep vouching for the user.
	if err := s.grantStore.RevokeAll(ctx, userId); err != nil {
		fmt.Printf("[WARN] Failed to revoke step-up grants: %v\n", err)
	}

	s.publishEvent(ctx, events.TypeTwoFactorDisabled, userId, user.Email)
	return nil
}

// RegenerateBackupCodes replaces the entire set. Partial top-ups are not
// supported: old codes die with the rotation.
func (s *twoFactorService) RegenerateBackupCodes(ctx context.Context, userId uuid.UUID) (*dto.TwoFactorCodesResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}

	config, err := uow.TwoFactorRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}
	if config == nil || !config.Enabled {
		return nil, ErrNotEnabled
	}

	plaintext, err := backupcode.Generate(constant.BackupCodeCount)
	if err != nil {
		return nil, err
	}
	hashes, err := backupcode.HashAll(plaintext)
	if err != nil {
		return nil, err
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.BackupCodeRepository().DeleteAllByUserId(ctx, userId); err != nil {
		return nil, err
	}

	codes := make([]*entity.BackupCode, len(hashes))
	for i, h := range hashes {
		codes[i] = &entity.BackupCode{
			Id:        uuid.New(),
			UserId:    userId,
			CodeHash:  h,
			CreatedAt: time.Now(),
		}
	}
	if err := uow.BackupCodeRepository().CreateBulk(ctx, codes); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.TypeBackupCodesGenerated, userId, user.Email)

	return &dto.TwoFactorCodesResponse{Ok: true, BackupCodes: plaintext}, nil
}

// StepUpVerify accepts a TOTP code or backup code and mints a short-lived
// grant token for sensitive operations.
func (s *twoFactorService) StepUpVerify(ctx context.Context, userId uuid.UUID, code string) (string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	config, err := uow.TwoFactorRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return "", err
	}
	if config == nil || !config.Enabled {
		return "", ErrNotEnabled
	}

	if !totp.Verify(code, config.Secret) {
		if _, err := s.consumeBackupCode(ctx, uow, userId, code); err != nil {
			return "", err
		}
	}

	return s.grantStore.Grant(ctx, userId)
}

// consumeBackupCode matches code against the user's unused backup codes
// and burns the match. Returns the consumed code's id.
func (s *twoFactorService) consumeBackupCode(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, code string) (uuid.UUID, error) {
	codes, err := uow.BackupCodeRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.Unused{},
	)
	if err != nil {
		return uuid.Nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = c.CodeHash
	}
	idx := backupcode.Consume(code, hashes)
	if idx < 0 {
		return uuid.Nil, ErrInvalidCode
	}
	if err := uow.BackupCodeRepository().MarkUsed(ctx, codes[idx].Id); err != nil {
		return uuid.Nil, err
	}
	return codes[idx].Id, nil
}

func (s *twoFactorService) CheckStepUp(ctx context.Context, userId uuid.UUID, token string) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	config, err := uow.TwoFactorRepository().FindOne(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return false, err
	}
	// Without two-factor there is nothing to step up to.
	if config == nil || !config.Enabled {
		return true, nil
	}

	return s.grantStore.Check(ctx, userId, token)
}
