package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"deepchat/internal/domain"
	"deepchat/internal/email"
	"deepchat/internal/repository"
)

// UserService coordina reglas de negocio para cuentas de usuario.
type UserService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	emailSender  email.Sender
	loginLimiter LoginRateLimiter
	resetStore   PasswordResetStore
}

var (
	ErrUserInvalidInput   = errors.New("user invalid input")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limited")
	ErrResetTokenInvalid  = errors.New("reset token invalid")
)

const (
	bcryptCost       = 12
	passwordMinLen   = 6
	passwordMaxLen   = 100
	resetTokenTTL    = 30 * time.Minute
	loginLimitWindow = 10 * time.Minute
	loginLimitMax    = 10
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)

func NewUserService(
	logger *zap.Logger,
	users repository.UserRepository,
	emailSender email.Sender,
	loginLimiter LoginRateLimiter,
	resetStore PasswordResetStore,
) *UserService {
	if loginLimiter == nil {
		loginLimiter = NewMemoryLoginRateLimiter(loginLimitWindow, loginLimitMax)
	}
	if resetStore == nil {
		resetStore = NewMemoryPasswordResetStore()
	}
	return &UserService{
		logger:       logger,
		users:        users,
		emailSender:  emailSender,
		loginLimiter: loginLimiter,
		resetStore:   resetStore,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	username := strings.TrimSpace(in.Username)
	emailAddr := normalizeEmail(in.Email)
	password := in.Password

	if !usernamePattern.MatchString(username) || emailAddr == "" {
		return domain.User{}, ErrUserInvalidInput
	}
	if len(password) < passwordMinLen || len(password) > passwordMaxLen {
		return domain.User{}, ErrUserInvalidInput
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, emailAddr, username)
	if err != nil {
		return domain.User{}, err
	}
	if exists {
		return domain.User{}, ErrUserExists
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        emailAddr,
		PasswordHash: string(hashBytes),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Authenticate valida credenciales. El error es el mismo para email
// desconocido y password incorrecto: no se filtra cuál de los dos falló.
func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	if s.loginLimiter != nil && !s.loginLimiter.Allow(emailAddr) {
		return domain.User{}, ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// RequestPasswordReset emite un token de un solo uso y lo envía por correo.
// Un email desconocido responde igual que uno conocido.
func (s *UserService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrUserInvalidInput
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(resetTokenTTL)
	if err := s.resetStore.Save(token, user.ID, resetTokenTTL); err != nil {
		return err
	}

	if s.emailSender == nil {
		return nil
	}
	if err := s.emailSender.SendPasswordReset(ctx, user.Email, token, expiresAt); err != nil {
		s.logger.Warn("reset mail delivery failed", zap.Error(err))
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < passwordMinLen || len(newPassword) > passwordMaxLen {
		return ErrUserInvalidInput
	}

	userID, err := s.resetStore.Consume(token)
	if err != nil {
		return ErrResetTokenInvalid
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, string(hashBytes)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}
	return nil
}

func normalizeEmail(emailAddr string) string {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if !strings.Contains(emailAddr, "@") {
		return ""
	}
	return emailAddr
}
