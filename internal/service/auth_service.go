package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"usedcar-market/internal/core/domain"
	"usedcar-market/internal/core/ports"
	"usedcar-market/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	accountRepo ports.AccountRepository
	hashSvc     ports.HashService
	tokenSvc    ports.TokenService
	log         zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	accountRepo ports.AccountRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		accountRepo: accountRepo,
		hashSvc:     hashSvc,
		tokenSvc:    tokenSvc,
		log:         log,
	}
}

// Register creates a buyer or seller account with an empty wallet.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.Account, error) {
	if req.Role != domain.RoleBuyer && req.Role != domain.RoleSeller {
		return nil, apperror.Validation("role must be buyer or seller")
	}
	return s.create(ctx, strings.TrimSpace(req.Username), req.Password, req.Role)
}

func (s *AuthServiceImpl) create(ctx context.Context, username, password string, role domain.AccountRole) (*domain.Account, error) {
	// Check username uniqueness
	existing, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	// Hash password with Argon2id
	passwordHash, err := s.hashSvc.Hash(password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:                 uuid.New(),
		Username:           username,
		PasswordHash:       passwordHash,
		Role:               role,
		Status:             domain.AccountStatusActive,
		Balance:            decimal.Zero,
		FrozenBalance:      decimal.Zero,
		VerificationStatus: domain.VerificationUnverified,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, apperror.ErrUsernameExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}

	s.log.Info().Str("account_id", account.ID.String()).Str("role", string(role)).Msg("account registered")
	return account, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	account, err := s.accountRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	// Verify password
	valid, err := s.hashSvc.Verify(password, account.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	// Check account status
	if !account.IsActive() {
		return "", time.Time{}, apperror.ErrAccountSuspended()
	}

	// Generate JWT
	token, expiry, err := s.tokenSvc.Generate(account.ID, account.Role)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}

// Profile returns the account behind an authenticated request.
func (s *AuthServiceImpl) Profile(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("Account")
	}
	return account, nil
}

// EnsureAdmin creates the bootstrap administrator when it does not exist yet.
func (s *AuthServiceImpl) EnsureAdmin(ctx context.Context, username, password string) error {
	existing, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check admin: %w", err))
	}
	if existing != nil {
		if existing.Role != domain.RoleAdmin {
			return fmt.Errorf("bootstrap admin %q already exists with role %s", username, existing.Role)
		}
		return nil
	}

	if _, err := s.create(ctx, username, password, domain.RoleAdmin); err != nil {
		return err
	}
	s.log.Info().Str("username", username).Msg("bootstrap admin created")
	return nil
}
