package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"recipe_hub/internal/common"
	"recipe_hub/internal/common/security"
	"recipe_hub/internal/domain/model"
	"recipe_hub/internal/domain/repository"
)

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *security.TokenIssuer
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, tokens *security.TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}
}

type SignupRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Email           string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Signup validates the registration form, registers the user and logs them in.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" || req.ConfirmPassword == "" {
		return nil, fmt.Errorf("please fill in all required fields: %w", common.ErrValidation)
	}
	if req.Password != req.ConfirmPassword {
		return nil, fmt.Errorf("passwords do not match: %w", common.ErrValidation)
	}

	user, err := s.Register(ctx, username, req.Password, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Register stores a new user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required: %w", common.ErrValidation)
	}
	if len(password) > security.MaxPasswordBytes {
		return nil, fmt.Errorf("password must be at most %d bytes: %w", security.MaxPasswordBytes, common.ErrValidation)
	}

	_, err := s.userRepo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		s.logger.Info("Auth service: username already exists", zap.String("username", username))
		return nil, fmt.Errorf("username already exists: %w", common.ErrConflict)
	case !errors.Is(err, common.ErrNotFound):
		s.logger.Error("Auth service: failed to load users", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.NewUser(username, hashedPassword, email, s.now())
	if err := s.userRepo.Create(ctx, &user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("username already exists: %w", common.ErrConflict)
		}
		s.logger.Error("Auth service: failed to create user", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("Auth service: user registered", zap.String("username", username))
	public := user.Public()
	return &public, nil
}

// Authenticate returns the first stored user whose username matches and whose
// hash verifies against password. A user file that cannot be read is reported
// as such; every other failure is common.ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Auth service: failed to load users", zap.Error(err))
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	for _, u := range users {
		if u.Username == username && security.CheckPasswordHash(password, u.Password) {
			public := u.Public()
			return &public, nil
		}
	}
	return nil, common.ErrUnauthorized
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("please fill in all fields: %w", common.ErrValidation)
	}

	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			s.logger.Info("Auth service: login rejected", zap.String("username", req.Username))
		}
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResponse, error) {
	token, err := s.tokens.GenerateToken(user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{User: user, Token: token}, nil
}

// MigratePlaintextPasswords hashes every stored password that is not already
// a bcrypt hash and writes the file once if anything changed. It returns the
// number of rehashed users; a second run returns 0.
func (s *AuthService) MigratePlaintextPasswords(ctx context.Context) (int, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load users: %w", err)
	}

	migrated := 0
	for i := range users {
		pw := users[i].Password
		if pw == "" || security.IsHashed(pw) {
			continue
		}
		hashed, err := security.HashPassword(pw)
		if err != nil {
			s.logger.Warn("Auth service: skipping password migration",
				zap.String("username", users[i].Username), zap.Error(err))
			continue
		}
		users[i].Password = hashed
		migrated++
	}

	if migrated == 0 {
		return 0, nil
	}
	if err := s.userRepo.ReplaceAll(ctx, users); err != nil {
		return 0, fmt.Errorf("failed to save migrated users: %w", err)
	}
	s.logger.Info("Auth service: legacy plaintext passwords hashed", zap.Int("count", migrated))
	return migrated, nil
}
