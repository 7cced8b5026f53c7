package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grocery-service/internal/auth"
	"github.com/spec-kit/grocery-service/internal/config"
	"github.com/spec-kit/grocery-service/internal/domain"
	"github.com/spec-kit/grocery-service/internal/events"
)

const testPassword = "correct horse battery"

func testAuthConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}
}

type authFixture struct {
	service  *AuthService
	accounts *fakeAccountRepo
	events   *recordingDispatcher
	clock    time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	accounts := newFakeAccountRepo()
	dispatcher := newRecordingDispatcher()
	fixture := &authFixture{
		accounts: accounts,
		events:   dispatcher,
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	fixture.service = NewAuthService(testAuthConfig(), AuthDependencies{
		AccountRepo:       accounts,
		PasswordResetRepo: newFakeResetRepo(),
		Dispatcher:        dispatcher,
	}).WithClock(func() time.Time { return fixture.clock })
	return fixture
}

func (f *authFixture) seedCustomer(t *testing.T, email string) string {
	t.Helper()
	hash, err := auth.HashPassword(testPassword, 4)
	require.NoError(t, err)
	return f.accounts.mustSeed(domain.Account{
		Name:         "Test Customer",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		Status:       domain.AccountStatusActive,
	})
}

func TestLoginSuccessIssuesToken(t *testing.T) {
	fixture := newAuthFixture(t)
	fixture.seedCustomer(t, "ok@example.com")

	account, token, _, err := fixture.service.Login(context.Background(), "ok@example.com", testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	require.NotNil(t, account.LastLoginAt)
	assert.Equal(t, fixture.clock, *account.LastLoginAt)
}

func TestLoginUnknownEmail(t *testing.T) {
	fixture := newAuthFixture(t)

	_, _, _, err := fixture.service.Login(context.Background(), "ghost@example.com", testPassword)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestFifthFailureLocksAccount(t *testing.T) {
	fixture := newAuthFixture(t)
	id := fixture.seedCustomer(t, "lockme@example.com")
	ctx := context.Background()

	for i := 1; i <= domain.FailedLoginThreshold-1; i++ {
		_, _, _, err := fixture.service.Login(ctx, "lockme@example.com", "wrong")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "attempt %d", i)

		account, getErr := fixture.accounts.GetByID(ctx, id)
		require.NoError(t, getErr)
		assert.Equal(t, i, account.FailedLoginAttempts)
		assert.Nil(t, account.LockedUntil)
	}

	_, _, _, err := fixture.service.Login(ctx, "lockme@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	account, err := fixture.accounts.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, account.LockedUntil)
	assert.Equal(t, fixture.clock.Add(domain.LockoutDuration), *account.LockedUntil)
	assert.Zero(t, account.FailedLoginAttempts)

	locked := fixture.events.ofType(events.EventAccountLocked)
	require.Len(t, locked, 1)
	assert.Equal(t, id, locked[0].EntityID)
}

func TestLockedAccountRejectsCorrectPassword(t *testing.T) {
	fixture := newAuthFixture(t)
	id := fixture.seedCustomer(t, "locked@example.com")
	ctx := context.Background()

	for i := 0; i < domain.FailedLoginThreshold; i++ {
		_, _, _, _ = fixture.service.Login(ctx, "locked@example.com", "wrong")
	}

	fixture.clock = fixture.clock.Add(time.Minute)
	_, _, _, err := fixture.service.Login(ctx, "locked@example.com", testPassword)
	assert.ErrorIs(t, err, domain.ErrAccountLocked)

	// A rejected locked login must not perturb the security state.
	account, getErr := fixture.accounts.GetByID(ctx, id)
	require.NoError(t, getErr)
	assert.Zero(t, account.FailedLoginAttempts)
	require.NotNil(t, account.LockedUntil)
}

func TestLockExpiresAfterWindow(t *testing.T) {
	fixture := newAuthFixture(t)
	id := fixture.seedCustomer(t, "patient@example.com")
	ctx := context.Background()

	for i := 0; i < domain.FailedLoginThreshold; i++ {
		_, _, _, _ = fixture.service.Login(ctx, "patient@example.com", "wrong")
	}
	_, _, _, err := fixture.service.Login(ctx, "patient@example.com", testPassword)
	require.ErrorIs(t, err, domain.ErrAccountLocked)

	fixture.clock = fixture.clock.Add(domain.LockoutDuration)
	account, _, _, err := fixture.service.Login(ctx, "patient@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, id, account.ID)
	assert.Zero(t, account.FailedLoginAttempts)
	assert.Nil(t, account.LockedUntil)
}

func TestSuccessfulLoginResetsFailureCount(t *testing.T) {
	fixture := newAuthFixture(t)
	id := fixture.seedCustomer(t, "reset@example.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, _, _ = fixture.service.Login(ctx, "reset@example.com", "wrong")
	}
	_, _, _, err := fixture.service.Login(ctx, "reset@example.com", testPassword)
	require.NoError(t, err)

	account, err := fixture.accounts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, account.FailedLoginAttempts)
	assert.Nil(t, account.LockedUntil)
	require.NotNil(t, account.LastLoginAt)
}

func TestConcurrentFailuresProduceSingleLock(t *testing.T) {
	fixture := newAuthFixture(t)
	id := fixture.seedCustomer(t, "stampede@example.com")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _, _ = fixture.service.Login(ctx, "stampede@example.com", "wrong")
		}()
	}
	wg.Wait()

	account, err := fixture.accounts.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, account.LockedUntil)
	assert.Equal(t, fixture.clock.Add(domain.LockoutDuration), *account.LockedUntil)
	assert.Zero(t, account.FailedLoginAttempts)

	locked := fixture.events.ofType(events.EventAccountLocked)
	assert.Len(t, locked, 1, "the lock must be imposed exactly once")
}

func TestRegisterCustomerRejectsDuplicateEmail(t *testing.T) {
	fixture := newAuthFixture(t)
	fixture.seedCustomer(t, "taken@example.com")

	_, _, _, err := fixture.service.RegisterCustomer(context.Background(), "Someone Else", "taken@example.com", "", "pw-123456")
	assert.Error(t, err)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	fixture := newAuthFixture(t)
	id := fixture.seedCustomer(t, "forgot@example.com")
	ctx := context.Background()

	token, err := fixture.service.RequestPasswordReset(ctx, "forgot@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, token.AccountID)

	require.NoError(t, fixture.service.ConfirmPasswordReset(ctx, token.Token, "brand new secret"))

	_, _, _, err = fixture.service.Login(ctx, "forgot@example.com", "brand new secret")
	require.NoError(t, err)

	// Tokens are single use.
	assert.Error(t, fixture.service.ConfirmPasswordReset(ctx, token.Token, "another one"))
}
