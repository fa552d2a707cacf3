package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"corevai-be/internal/dto"
	"corevai-be/internal/entity"
	"corevai-be/internal/repository/memory"
	"corevai-be/internal/repository/specification"
	"corevai-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type IOAuthService interface {
	GetLoginURL(provider string, redirectTo string) (string, error)
	HandleCallback(ctx context.Context, provider, code, state string) (*dto.AuthResponse, string, error)
}

type oauthService struct {
	uowFactory unitofwork.RepositoryFactory
	stateRepo  *memory.StateRepository
	googleConf *oauth2.Config
}

func NewOAuthService(uowFactory unitofwork.RepositoryFactory, stateRepo *memory.StateRepository) IOAuthService {
	conf := &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return &oauthService{
		uowFactory: uowFactory,
		stateRepo:  stateRepo,
		googleConf: conf,
	}
}

func (s *oauthService) GetLoginURL(provider string, redirectTo string) (string, error) {
	if provider != "google" {
		return "", errors.New("unsupported provider")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)

	// State is redeemed exactly once at callback time.
	s.stateRepo.Save(state, redirectTo)

	return s.googleConf.AuthCodeURL(state), nil
}

// HandleCallback exchanges the code, provisions or links the account and
// returns the auth response plus the post-login redirect target.
func (s *oauthService) HandleCallback(ctx context.Context, provider, code, state string) (*dto.AuthResponse, string, error) {
	if provider != "google" {
		return nil, "", errors.New("unsupported provider")
	}

	redirectTo, ok := s.stateRepo.Consume(state)
	if !ok {
		return nil, "", ErrUnauthorized
	}

	token, err := s.googleConf.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("code exchange failed: %v", err)
	}

	userInfoURL := "https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken
	resp, err := http.Get(userInfoURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed getting user info: %v", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed reading response: %v", err)
	}

	var googleUser struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.Unmarshal(content, &googleUser); err != nil {
		return nil, "", err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: googleUser.Email})
	if err != nil {
		return nil, "", err
	}

	if user == nil {
		log.Printf("[OAuth Service] Provisioning new user for %s", googleUser.Email)
		newUser := &entity.User{
			Id:           uuid.New(),
			Email:        googleUser.Email,
			Name:         googleUser.Name,
			PasswordHash: nil,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}

		if err := uow.Begin(ctx); err != nil {
			return nil, "", err
		}
		if err := uow.UserRepository().Create(ctx, newUser); err != nil {
			uow.Rollback()
			return nil, "", err
		}
		if err := uow.Commit(); err != nil {
			return nil, "", err
		}

		user = newUser
	}

	userProvider := &entity.UserProvider{
		Id:             uuid.New(),
		UserId:         user.Id,
		ProviderName:   "google",
		ProviderUserId: googleUser.ID,
		AvatarURL:      googleUser.Picture,
		CreatedAt:      time.Now(),
	}
	if err := uow.UserRepository().SaveUserProvider(ctx, userProvider); err != nil {
		return nil, "", fmt.Errorf("failed to save provider info: %v", err)
	}

	signedToken, err := IssueSessionToken(user.Id)
	if err != nil {
		return nil, "", err
	}

	return &dto.AuthResponse{
		AccessToken: signedToken,
		User:        userDTO(user),
	}, redirectTo, nil
}
