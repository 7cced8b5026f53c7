package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grocery-service/internal/auth"
	"github.com/spec-kit/grocery-service/internal/config"
	"github.com/spec-kit/grocery-service/internal/domain"
	"github.com/spec-kit/grocery-service/internal/events"
	"github.com/spec-kit/grocery-service/internal/repository"
)

// keyedMutex serializes read-modify-write cycles per account id so two
// near-simultaneous failures cannot both observe the same attempt count.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// AuthService coordinates registration and login flows, including the
// failed-login lockout guard.
type AuthService struct {
	accounts   repository.AccountRepository
	resets     repository.PasswordResetRepository
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
	locks      *keyedMutex
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	AccountRepo       repository.AccountRepository
	PasswordResetRepo repository.PasswordResetRepository
	Dispatcher        events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		resets:     deps.PasswordResetRepo,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}

// WithClock overrides the time source; tests use this to make lockout expiry
// deterministic.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// RegisterCustomer creates a new customer account.
func (s *AuthService) RegisterCustomer(ctx context.Context, name, email, phone, password string) (*domain.Account, string, time.Time, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, errors.New("email already registered")
	} else if err != nil && err != pgx.ErrNoRows {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	account := &domain.Account{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		Status:       domain.AccountStatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}

// Login authenticates any role. The lock state is consulted before password
// verification: a locked account fails fast with ErrAccountLocked and never
// reaches the bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Account, string, time.Time, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", time.Time{}, domain.ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}

	if account.IsLocked(s.now()) {
		return nil, "", time.Time{}, domain.ErrAccountLocked
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		if recordErr := s.recordLoginFailure(ctx, account.ID); recordErr != nil {
			return nil, "", time.Time{}, recordErr
		}
		return nil, "", time.Time{}, domain.ErrInvalidCredentials
	}

	unlock := s.locks.lock(account.ID)
	updated := account.RecordSuccessfulLogin(s.now())
	err = s.accounts.UpdateSecurity(ctx, &updated)
	unlock()
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(updated.ID, updated.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return &updated, token, exp, nil
}

// recordLoginFailure applies one failed attempt as an atomic per-account
// read-increment-write. The account is re-read under the lock so concurrent
// failures observe each other's increments.
func (s *AuthService) recordLoginFailure(ctx context.Context, accountID string) error {
	unlock := s.locks.lock(accountID)
	defer unlock()

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	now := s.now()
	if account.IsLocked(now) {
		return nil
	}

	updated := account.RecordFailedLogin(now)
	if err := s.accounts.UpdateSecurity(ctx, &updated); err != nil {
		return err
	}

	if updated.LockedUntil != nil {
		s.publish(ctx, events.Event{
			Type:     events.EventAccountLocked,
			EntityID: updated.ID,
			Actor:    events.Actor{AccountID: updated.ID, Role: updated.Role},
			Payload: events.AccountLockedPayload{
				Email:       updated.Email,
				LockedUntil: *updated.LockedUntil,
			},
		})
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account when configured and absent.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil
	} else if err != pgx.ErrNoRows {
		return err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	admin := &domain.Account{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Status:       domain.AccountStatusActive,
	}
	return s.accounts.Create(ctx, admin)
}

// RequestPasswordReset persists a reset token for the account email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	token := &repository.PasswordResetToken{
		AccountID: account.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates the password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		return err
	}
	if token.UsedAt != nil || s.now().After(token.ExpiresAt) {
		return errors.New("token expired or used")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	account, err := s.accounts.GetByID(ctx, token.AccountID)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}
	return s.resets.MarkUsed(ctx, token.ID)
}

// ChangePassword verifies the current password before updating to a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return s.accounts.Update(ctx, account)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
