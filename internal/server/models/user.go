// Package models defines the server-side domain entities: users with a
// guarded credit balance, the append-only credit-transaction ledger, ideas,
// and the documents generated for them. Entities validate their invariants at
// construction; repositories persist them without re-checking.
package models

import (
	"fmt"
	"time"

	"github.com/akarpov87/ideaforge/internal/common"
)

// User is the account aggregate. The credit balance is deliberately
// unexported: every mutation goes through DeductCredit/AddCredits so the
// non-negative invariant holds for any call sequence.
type User struct {
	ID          string
	Email       string
	credits     int
	Active      bool
	Preferences map[string]string
	Salt        []byte
	Verifier    []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewUser creates an account with the given starting balance. The ID is
// assigned by the repository on insert.
func NewUser(email string, startingCredits int) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrInvariantViolation)
	}
	if startingCredits < 0 {
		return nil, fmt.Errorf("%w: starting credits must not be negative", common.ErrInvariantViolation)
	}
	now := time.Now()
	return &User{
		Email:       email,
		credits:     startingCredits,
		Active:      true,
		Preferences: map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ReconstructUser rebuilds a stored user, re-running the same invariant
// checks as NewUser.
func ReconstructUser(id, email string, credits int, active bool, preferences map[string]string, createdAt, updatedAt time.Time) (*User, error) {
	if credits < 0 {
		return nil, fmt.Errorf("%w: stored balance is negative", common.ErrInvariantViolation)
	}
	if preferences == nil {
		preferences = map[string]string{}
	}
	return &User{
		ID:          id,
		Email:       email,
		credits:     credits,
		Active:      active,
		Preferences: preferences,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// Credits returns the current balance.
func (u *User) Credits() int { return u.credits }

// DeductCredit removes exactly one credit. The balance never goes negative:
// a deduction from an empty balance fails with ErrInsufficientCredits and
// leaves the user unchanged.
func (u *User) DeductCredit() error {
	if u.credits <= 0 {
		return fmt.Errorf("%w: user %s", common.ErrInsufficientCredits, u.ID)
	}
	u.credits--
	u.UpdatedAt = time.Now()
	return nil
}

// AddCredits increases the balance by amount, which must be a positive integer.
func (u *User) AddCredits(amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be a positive integer, got %d", common.ErrInvariantViolation, amount)
	}
	u.credits += amount
	u.UpdatedAt = time.Now()
	return nil
}
