package service

import (
	"context"
	"testing"

	"corevai-be/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmailService struct{}

func (f *fakeEmailService) SendSecurityAlert(toEmail, subject, headline, detail string) error {
	return nil
}
func (f *fakeEmailService) SendWelcome(toEmail, name string) error { return nil }

func TestSignupAndLogin(t *testing.T) {
	store := &fakeStore{}
	svc := NewAuthService(&fakeFactory{store}, &fakeEmailService{})
	ctx := context.Background()

	res, err := svc.Signup(ctx, &dto.SignupRequest{
		Email:    "new@example.com",
		Password: "long-enough-pass",
		Name:     "New User",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "new@example.com", res.User.Email)
	require.NotNil(t, store.user)
	assert.NotEqual(t, "long-enough-pass", *store.user.PasswordHash)

	// Duplicate email is rejected
	_, err = svc.Signup(ctx, &dto.SignupRequest{
		Email:    "new@example.com",
		Password: "long-enough-pass",
		Name:     "Someone Else",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// Correct credentials issue a session
	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "new@example.com", Password: "long-enough-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
	assert.False(t, login.RequiresTwoFactor)

	// Wrong password does not
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "new@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginWithTwoFactorEnabled(t *testing.T) {
	store := &fakeStore{}
	authSvc := NewAuthService(&fakeFactory{store}, &fakeEmailService{})
	ctx := context.Background()

	signup, err := authSvc.Signup(ctx, &dto.SignupRequest{
		Email:    "tf@example.com",
		Password: "long-enough-pass",
		Name:     "TF User",
	})
	require.NoError(t, err)

	tfSvc := NewTwoFactorService(&fakeFactory{store}, &fakeGrantStore{store}, nil)
	setup, err := tfSvc.StartSetup(ctx, signup.User.Id)
	require.NoError(t, err)
	enable, err := tfSvc.VerifyAndEnable(ctx, signup.User.Id, currentCode(t, setup.Secret))
	require.NoError(t, err)

	// Login now withholds the session and hands back a challenge
	login, err := authSvc.Login(ctx, &dto.LoginRequest{Email: "tf@example.com", Password: "long-enough-pass"})
	require.NoError(t, err)
	assert.True(t, login.RequiresTwoFactor)
	assert.Empty(t, login.AccessToken)
	require.NotEmpty(t, login.ChallengeToken)

	// A wrong code cannot redeem the challenge
	_, err = authSvc.CompleteTwoFactorLogin(ctx, &dto.TwoFactorLoginRequest{
		ChallengeToken: login.ChallengeToken,
		Code:           "000000",
	})
	assert.ErrorIs(t, err, ErrInvalidCode)

	// A live TOTP code completes the login
	done, err := authSvc.CompleteTwoFactorLogin(ctx, &dto.TwoFactorLoginRequest{
		ChallengeToken: login.ChallengeToken,
		Code:           currentCode(t, setup.Secret),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, done.AccessToken)

	// A backup code also works, once
	done, err = authSvc.CompleteTwoFactorLogin(ctx, &dto.TwoFactorLoginRequest{
		ChallengeToken: login.ChallengeToken,
		Code:           enable.BackupCodes[0],
	})
	require.NoError(t, err)
	assert.NotEmpty(t, done.AccessToken)

	_, err = authSvc.CompleteTwoFactorLogin(ctx, &dto.TwoFactorLoginRequest{
		ChallengeToken: login.ChallengeToken,
		Code:           enable.BackupCodes[0],
	})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestCompleteTwoFactorLoginRejectsBogusChallenge(t *testing.T) {
	store := &fakeStore{}
	svc := NewAuthService(&fakeFactory{store}, &fakeEmailService{})

	_, err := svc.CompleteTwoFactorLogin(context.Background(), &dto.TwoFactorLoginRequest{
		ChallengeToken: "not-a-jwt",
		Code:           "123456",
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	store := &fakeStore{}
	svc := NewAuthService(&fakeFactory{store}, &fakeEmailService{})
	ctx := context.Background()

	res, err := svc.Signup(ctx, &dto.SignupRequest{
		Email:    "session@example.com",
		Password: "long-enough-pass",
		Name:     "Session User",
	})
	require.NoError(t, err)

	// A session token is not a two-factor challenge
	_, err = svc.CompleteTwoFactorLogin(ctx, &dto.TwoFactorLoginRequest{
		ChallengeToken: res.AccessToken,
		Code:           "123456",
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
