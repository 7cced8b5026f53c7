package domain

import "time"

// Role enumerates platform actor roles.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleStoreManager Role = "STORE_MANAGER"
	RoleCustomer     Role = "CUSTOMER"
)

// AccountStatus represents lifecycle states for an account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Lockout policy: fixed business constants, not configuration.
const (
	FailedLoginThreshold = 5
	LockoutDuration      = 2 * time.Hour
)

// Account is the domain model for any platform actor.
type Account struct {
	ID                  string
	Name                string
	Email               string
	Phone               string
	PasswordHash        string
	Role                Role
	Status              AccountStatus
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether the account's lockout window is still open. This
// is the sole predicate the login flow consults before attempting password
// verification.
func (a Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// RecordFailedLogin returns the account state after one more failed login
// attempt. Reaching the threshold imposes a lockout window and resets the
// counter; attempts while already locked never reach this method because
// IsLocked is checked first.
func (a Account) RecordFailedLogin(now time.Time) Account {
	a.FailedLoginAttempts++
	if a.FailedLoginAttempts >= FailedLoginThreshold {
		until := now.Add(LockoutDuration)
		a.LockedUntil = &until
		a.FailedLoginAttempts = 0
	}
	a.UpdatedAt = now
	return a
}

// RecordSuccessfulLogin clears the failure counter and any expired lock and
// stamps the login time. Callers must verify IsLocked is false first.
func (a Account) RecordSuccessfulLogin(now time.Time) Account {
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	loginAt := now
	a.LastLoginAt = &loginAt
	a.UpdatedAt = now
	return a
}
