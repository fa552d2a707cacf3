package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"corevai-be/internal/constant"
	"corevai-be/internal/dto"
	"corevai-be/internal/entity"
	"corevai-be/internal/pkg/backupcode"
	"corevai-be/internal/pkg/mailer"
	"corevai-be/internal/pkg/totp"
	"corevai-be/internal/repository/specification"
	"corevai-be/internal/repository/unitofwork"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	CompleteTwoFactorLogin(ctx context.Context, req *dto.TwoFactorLoginRequest) (*dto.AuthResponse, error)
}

type authService struct {
	uowFactory   unitofwork.RepositoryFactory
	emailService mailer.IEmailService
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory, emailService mailer.IEmailService) IAuthService {
	return &authService{
		uowFactory:   uowFactory,
		emailService: emailService,
	}
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_secret"
	}
	return []byte(secret)
}

// IssueSessionToken creates the signed session JWT for a user.
func IssueSessionToken(userId uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userId.String(),
		"exp":     time.Now().Add(constant.SessionTokenExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// issueChallengeToken creates a short-lived token proving the password
// check passed, pending the second factor.
func issueChallengeToken(userId uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userId.String(),
		"purpose": "2fa_challenge",
		"exp":     time.Now().Add(5 * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

func parseChallengeToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["purpose"] != "2fa_challenge" {
		return uuid.Nil, ErrUnauthorized
	}
	idStr, _ := claims["user_id"].(string)
	userId, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, ErrUnauthorized
	}
	return userId, nil
}

func userDTO(user *entity.User) dto.UserDTO {
	return dto.UserDTO{
		Id:        user.Id,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
}

func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	user := &entity.User{
		Id:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: &hashStr,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, err
	}

	go func() {
		if emailErr := s.emailService.SendWelcome(user.Email, user.Name); emailErr != nil {
			fmt.Printf("Error sending welcome email: %v\n", emailErr)
		}
	}()

	signedToken, err := IssueSessionToken(user.Id)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: signedToken,
		User:        userDTO(user),
	}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}

	// OAuth-only accounts have no password to check.
	if !user.HasPassword() {
		return nil, ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}

	// Withhold the session when two-factor is enabled.
	config, err := uow.TwoFactorRepository().FindOne(ctx, specification.UserOwnedBy{UserID: user.Id})
	if err != nil {
		return nil, err
	}
	if config != nil && config.Enabled {
		challenge, err := issueChallengeToken(user.Id)
		if err != nil {
			return nil, err
		}
		return &dto.AuthResponse{
			RequiresTwoFactor: true,
			ChallengeToken:    challenge,
			User:              userDTO(user),
		}, nil
	}

	signedToken, err := IssueSessionToken(user.Id)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: signedToken,
		User:        userDTO(user),
	}, nil
}

// CompleteTwoFactorLogin redeems a challenge token with either a TOTP
// code or an unused backup code. A matched backup code is consumed.
func (s *authService) CompleteTwoFactorLogin(ctx context.Context, req *dto.TwoFactorLoginRequest) (*dto.AuthResponse, error) {
	userId, err := parseChallengeToken(req.ChallengeToken)
	if err != nil {
		return nil, err
	}

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

	if !totp.Verify(req.Code, config.Secret) {
		// Fall back to backup codes.
		codes, err := uow.BackupCodeRepository().FindAll(ctx,
			specification.UserOwnedBy{UserID: userId},
			specification.Unused{},
		)
		if err != nil {
			return nil, err
		}
		hashes := make([]string, len(codes))
		for i, c := range codes {
			hashes[i] = c.CodeHash
		}
		idx := backupcode.Consume(req.Code, hashes)
		if idx < 0 {
			return nil, ErrInvalidCode
		}
		if err := uow.BackupCodeRepository().MarkUsed(ctx, codes[idx].Id); err != nil {
			return nil, err
		}
	}

	signedToken, err := IssueSessionToken(userId)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: signedToken,
		User:        userDTO(user),
	}, nil
}
