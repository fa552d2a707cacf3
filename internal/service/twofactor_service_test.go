package service

import (
	"context"
	"testing"
	"time"

	"corevai-be/internal/entity"
	"corevai-be/internal/repository/contract"
	"corevai-be/internal/repository/specification"
	"corevai-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	pquerna "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory repositories scoped to a single test user. Specification
// filtering beyond the used/unused split is not needed at this scope.

type fakeStore struct {
	user    *entity.User
	config  *entity.TwoFactorConfig
	codes   []*entity.BackupCode
	grants  map[string]bool
	inTx    bool
	commits int

	// markUsedInTx records whether the last MarkUsed ran inside an open
	// transaction.
	markUsedInTx bool
}

type fakeUow struct{ s *fakeStore }

func (u *fakeUow) Begin(ctx context.Context) error { u.s.inTx = true; return nil }
func (u *fakeUow) Commit() error                   { u.s.inTx = false; u.s.commits++; return nil }
func (u *fakeUow) Rollback() error                 { u.s.inTx = false; return nil }

func (u *fakeUow) UserRepository() contract.UserRepository             { return &fakeUserRepo{u.s} }
func (u *fakeUow) TwoFactorRepository() contract.TwoFactorRepository   { return &fakeTwoFactorRepo{u.s} }
func (u *fakeUow) BackupCodeRepository() contract.BackupCodeRepository { return &fakeBackupCodeRepo{u.s} }

func (u *fakeUow) ConversationRepository() contract.ConversationRepository { return nil }
func (u *fakeUow) MessageRepository() contract.MessageRepository           { return nil }
func (u *fakeUow) ProjectRepository() contract.ProjectRepository           { return nil }
func (u *fakeUow) NotificationRepository() contract.NotificationRepository { return nil }

type fakeFactory struct{ s *fakeStore }

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{f.s}
}

type fakeUserRepo struct{ s *fakeStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error { r.s.user = user; return nil }
func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error { r.s.user = user; return nil }
func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error      { r.s.user = nil; return nil }
func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	return r.s.user, nil
}
func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userId uuid.UUID, hash string) error {
	r.s.user.PasswordHash = &hash
	return nil
}
func (r *fakeUserRepo) SaveUserProvider(ctx context.Context, provider *entity.UserProvider) error {
	return nil
}
func (r *fakeUserRepo) FindUserProvider(ctx context.Context, specs ...specification.Specification) (*entity.UserProvider, error) {
	return nil, nil
}

type fakeTwoFactorRepo struct{ s *fakeStore }

func (r *fakeTwoFactorRepo) Create(ctx context.Context, config *entity.TwoFactorConfig) error {
	r.s.config = config
	return nil
}
func (r *fakeTwoFactorRepo) Update(ctx context.Context, config *entity.TwoFactorConfig) error {
	r.s.config = config
	return nil
}
func (r *fakeTwoFactorRepo) DeleteByUserId(ctx context.Context, userId uuid.UUID) error {
	r.s.config = nil
	return nil
}
func (r *fakeTwoFactorRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.TwoFactorConfig, error) {
	return r.s.config, nil
}

type fakeBackupCodeRepo struct{ s *fakeStore }

func (r *fakeBackupCodeRepo) CreateBulk(ctx context.Context, codes []*entity.BackupCode) error {
	r.s.codes = append(r.s.codes, codes...)
	return nil
}
func (r *fakeBackupCodeRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.BackupCode, error) {
	var unused []*entity.BackupCode
	for _, c := range r.s.codes {
		if !c.Used() {
			unused = append(unused, c)
		}
	}
	return unused, nil
}
func (r *fakeBackupCodeRepo) MarkUsed(ctx context.Context, id uuid.UUID) error {
	r.s.markUsedInTx = r.s.inTx
	now := time.Now()
	for _, c := range r.s.codes {
		if c.Id == id {
			c.UsedAt = &now
		}
	}
	return nil
}
func (r *fakeBackupCodeRepo) DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error {
	r.s.codes = nil
	return nil
}
func (r *fakeBackupCodeRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var n int64
	for _, c := range r.s.codes {
		if !c.Used() {
			n++
		}
	}
	return n, nil
}

type fakeGrantStore struct{ s *fakeStore }

func (g *fakeGrantStore) Grant(ctx context.Context, userId uuid.UUID) (string, error) {
	token := uuid.NewString()
	if g.s.grants == nil {
		g.s.grants = make(map[string]bool)
	}
	g.s.grants[token] = true
	return token, nil
}
func (g *fakeGrantStore) Check(ctx context.Context, userId uuid.UUID, token string) (bool, error) {
	return g.s.grants[token], nil
}
func (g *fakeGrantStore) Revoke(ctx context.Context, userId uuid.UUID, token string) error {
	delete(g.s.grants, token)
	return nil
}
func (g *fakeGrantStore) RevokeAll(ctx context.Context, userId uuid.UUID) error {
	g.s.grants = nil
	return nil
}

func newTwoFactorFixture() (*fakeStore, ITwoFactorService, uuid.UUID) {
	userId := uuid.New()
	store := &fakeStore{
		user: &entity.User{Id: userId, Email: "user@example.com", Name: "Test User"},
	}
	svc := NewTwoFactorService(&fakeFactory{store}, &fakeGrantStore{store}, nil)
	return store, svc, userId
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := pquerna.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestTwoFactorLifecycle(t *testing.T) {
	store, svc, userId := newTwoFactorFixture()
	ctx := context.Background()

	// Fresh account is unconfigured
	status, err := svc.Status(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "unconfigured", status.State)

	// StartSetup stores a pending secret
	setup, err := svc.StartSetup(ctx, userId)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.False(t, store.config.Enabled)

	status, err = svc.Status(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "pending", status.State)

	// Wrong code leaves everything pending with no codes created
	_, err = svc.VerifyAndEnable(ctx, userId, "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.False(t, store.config.Enabled)
	assert.Empty(t, store.codes)

	// Correct code enables and returns exactly one fresh set
	res, err := svc.VerifyAndEnable(ctx, userId, currentCode(t, setup.Secret))
	require.NoError(t, err)
	assert.True(t, store.config.Enabled)
	assert.Len(t, res.BackupCodes, 10)
	assert.Len(t, store.codes, 10)
	assert.Equal(t, 1, store.commits)

	// Enabling also step-up verifies the session
	assert.NotEmpty(t, res.GrantToken)
	passed, err := svc.CheckStepUp(ctx, userId, res.GrantToken)
	require.NoError(t, err)
	assert.True(t, passed)

	status, err = svc.Status(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "enabled", status.State)
	assert.Equal(t, 10, status.BackupLeft)

	// Disable demands proof and rejects a stale guess
	err = svc.Disable(ctx, userId, "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.True(t, store.config.Enabled)

	// A backup code works too, returning to unconfigured and clearing every code
	require.NoError(t, svc.Disable(ctx, userId, res.BackupCodes[0]))
	assert.Nil(t, store.config)
	assert.Empty(t, store.codes)

	status, err = svc.Status(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "unconfigured", status.State)
}

func TestStartSetupTwiceReplacesPendingSecret(t *testing.T) {
	store, svc, userId := newTwoFactorFixture()
	ctx := context.Background()

	first, err := svc.StartSetup(ctx, userId)
	require.NoError(t, err)
	second, err := svc.StartSetup(ctx, userId)
	require.NoError(t, err)

	assert.NotEqual(t, first.Secret, second.Secret)
	assert.Equal(t, second.Secret, store.config.Secret)

	// The replaced secret no longer verifies
	_, err = svc.VerifyAndEnable(ctx, userId, currentCode(t, first.Secret))
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.VerifyAndEnable(ctx, userId, currentCode(t, second.Secret))
	assert.NoError(t, err)
}

func TestStartSetupWhileEnabledResetsToPending(t *testing.T) {
	store, svc, userId := newTwoFactorFixture()
	ctx := context.Background()

	setup, err := svc.StartSetup(ctx, userId)
	require.NoError(t, err)
	_, err = svc.VerifyAndEnable(ctx, userId, currentCode(t, setup.Secret))
	require.NoError(t, err)

	// Re-running setup on an enabled account drops it back to pending
	// with a fresh secret
	fresh, err := svc.StartSetup(ctx, userId)
	require.NoError(t, err)
	assert.NotEqual(t, setup.Secret, fresh.Secret)
	assert.False(t, store.config.Enabled)

	status, err := svc.Status(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, "pending", status.State)

	// The old secret is dead; the new one verifies
	_, err = svc.VerifyAndEnable(ctx, userId, currentCode(t, setup.Secret))
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.VerifyAndEnable(ctx, userId, currentCode(t, fresh.Secret))
	assert.NoError(t, err)
	assert.True(t, store.config.Enabled)
}

func TestVerifyAndEnableWithoutSetup(t *testing.T) {
	_, svc, userId := newTwoFactorFixture()

	_, err := svc.VerifyAndEnable(context.Background(), userId, "123456")
	assert.ErrorIs(t, err, ErrNotSetup)
}

func TestRegenerateBackupCodesRotatesFullSet(t *testing.T) {
	store, svc, userId := newTwoFactorFixture()
	ctx := context.Background()

	_, err := svc.RegenerateBackupCodes(ctx, userId)
	assert.ErrorIs(t, err, ErrNotEnabled)

	setup, err := svc.StartSetup(ctx, userId)
	require.NoError(t, err)
	first, err := svc.VerifyAndEnable(ctx, userId, currentCode(t, setup.Secret))
	require.NoError(t, err)

	second, err := svc.RegenerateBackupCodes(ctx, userId)
	require.NoError(t, err)
	assert.Len(t, second.BackupCodes, 10)
	assert.Len(t, store.codes, 10)

	// The old set is entirely invalid after rotation
	_, err = svc.StepUpVerify(ctx, userId, first.BackupCodes[0])
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = svc.StepUpVerify(ctx, userId, second.BackupCodes[0])
	assert.NoError(t, err)
}

func TestStepUpVerify(t *testing.T) {
	_, svc, userId := newTwoFactorFixture()
	ctx := context.Background()

	setup, err := svc.StartSetup(ctx, userId)
	require.NoError(t, err)
	res, err := svc.VerifyAndEnable(ctx, userId, currentCode(t, setup.Secret))
	require.NoError(t, err)

	// TOTP path
	token, err := svc.StepUpVerify(ctx, userId, currentCode(t, setup.Secret))
	require.NoError(t, err)
	granted, err := svc.CheckStepUp(ctx, userId, token)
	require.NoError(t, err)
	assert.True(t, granted)

	// Backup-code path spends the code permanently
	token, err = svc.StepUpVerify(ctx, userId, res.BackupCodes[3])
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = svc.StepUpVerify(ctx, userId, res.BackupCodes[3])
	assert.ErrorIs(t, err, ErrInvalidCode)

	status, err := svc.Status(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, 9, status.BackupLeft)

	// Garbage never verifies
	_, err = svc.StepUpVerify(ctx, userId, "not-a-code")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestDisableConsumesBackupCodeTransactionally(t *testing.T) {
	store, svc, userId := newTwoFactorFixture()
	ctx := context.Background()

	setup, err := svc.StartSetup(ctx, userId)
	require.NoError(t, err)
	res, err := svc.VerifyAndEnable(ctx, userId, currentCode(t, setup.Secret))
	require.NoError(t, err)

	require.NoError(t, svc.Disable(ctx, userId, res.BackupCodes[0]))

	// The backup code must be spent inside the same transaction that
	// tears down the config, so a failed commit cannot burn the code
	// while two-factor stays on.
	assert.True(t, store.markUsedInTx)
	assert.False(t, store.inTx)
	assert.Nil(t, store.config)
}

func TestCheckStepUpWithoutTwoFactor(t *testing.T) {
	_, svc, userId := newTwoFactorFixture()

	granted, err := svc.CheckStepUp(context.Background(), userId, "")
	require.NoError(t, err)
	assert.True(t, granted)
}
