package models

import (
	"errors"
	"testing"
	"time"

	"github.com/akarpov87/ideaforge/internal/common"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("alice@example.com", 100)
	require.NoError(t, err)
	require.Equal(t, 100, u.Credits())
	require.True(t, u.Active)

	_, err = NewUser("", 100)
	require.ErrorIs(t, err, common.ErrInvariantViolation)

	_, err = NewUser("alice@example.com", -1)
	require.ErrorIs(t, err, common.ErrInvariantViolation)
}

func TestReconstructUser_NegativeBalance(t *testing.T) {
	_, err := ReconstructUser("u-1", "a@b.c", -5, true, nil, time.Now(), time.Now())
	require.ErrorIs(t, err, common.ErrInvariantViolation)
}

func TestDeductCredit(t *testing.T) {
	u, err := NewUser("a@b.c", 2)
	require.NoError(t, err)

	require.NoError(t, u.DeductCredit())
	require.NoError(t, u.DeductCredit())
	require.Equal(t, 0, u.Credits())

	err = u.DeductCredit()
	require.ErrorIs(t, err, common.ErrInsufficientCredits)
	require.Equal(t, 0, u.Credits(), "failed deduction must not change the balance")
}

func TestAddCredits(t *testing.T) {
	u, err := NewUser("a@b.c", 0)
	require.NoError(t, err)

	require.NoError(t, u.AddCredits(50))
	require.Equal(t, 50, u.Credits())

	for _, bad := range []int{0, -1, -50} {
		err := u.AddCredits(bad)
		require.ErrorIs(t, err, common.ErrInvariantViolation, "amount %d", bad)
	}
	require.Equal(t, 50, u.Credits())
}

// The balance stays a non-negative integer under any sequence of guarded
// mutations, failed ones included.
func TestBalance_NonNegativeUnderAnySequence(t *testing.T) {
	u, err := NewUser("a@b.c", 3)
	require.NoError(t, err)

	ops := []func() error{
		u.DeductCredit,
		func() error { return u.AddCredits(2) },
		u.DeductCredit,
		u.DeductCredit,
		u.DeductCredit,
		u.DeductCredit, // drains the balance
		u.DeductCredit, // must fail
		func() error { return u.AddCredits(-1) }, // must fail
		func() error { return u.AddCredits(1) },
	}
	for i, op := range ops {
		if err := op(); err != nil {
			require.True(t,
				errors.Is(err, common.ErrInsufficientCredits) || errors.Is(err, common.ErrInvariantViolation),
				"op %d: unexpected error %v", i, err)
		}
		require.GreaterOrEqual(t, u.Credits(), 0, "op %d drove the balance negative", i)
	}
	require.Equal(t, 1, u.Credits())
}
