// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package account_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safechain/safechain/internal/account"
	"github.com/safechain/safechain/pkg/errutil"
)

func TestGenerateResetToken(t *testing.T) {
	t.Run("produces a 64-char hex token and matching hash", func(t *testing.T) {
		token, hash, err := account.GenerateResetToken()
		require.NoError(t, err)
		assert.Len(t, token, account.ResetTokenBytes*2)
		assert.Regexp(t, "^[0-9a-f]+$", token)
		assert.Equal(t, account.HashResetToken(token), hash)
	})

	t.Run("tokens are unique across calls", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 10 {
			token, _, err := account.GenerateResetToken()
			require.NoError(t, err)
			assert.False(t, seen[token], "duplicate token generated")
			seen[token] = true
		}
	})
}

func TestHashResetToken(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, account.HashResetToken("abc"), account.HashResetToken("abc"))
	})

	t.Run("differs per input", func(t *testing.T) {
		assert.NotEqual(t, account.HashResetToken("abc"), account.HashResetToken("abd"))
	})

	t.Run("is sha256 hex", func(t *testing.T) {
		hash := account.HashResetToken("token")
		assert.Len(t, hash, 64)
		assert.Regexp(t, "^[0-9a-f]+$", hash)
		assert.NotContains(t, hash, "token")
	})
}

func TestNewPasswordReset(t *testing.T) {
	expiry := time.Now().Add(time.Hour)

	t.Run("valid input", func(t *testing.T) {
		reset, err := account.NewPasswordReset("ada@example.com", "deadbeef", expiry)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", reset.Email)
		assert.Equal(t, "deadbeef", reset.TokenHash)
		assert.Equal(t, expiry, reset.ExpiresAt)
		assert.False(t, reset.CreatedAt.IsZero())
	})

	t.Run("unique IDs", func(t *testing.T) {
		r1, err := account.NewPasswordReset("ada@example.com", "deadbeef", expiry)
		require.NoError(t, err)
		r2, err := account.NewPasswordReset("ada@example.com", "deadbeef", expiry)
		require.NoError(t, err)
		assert.NotEqual(t, r1.ID, r2.ID)
	})

	t.Run("empty email", func(t *testing.T) {
		_, err := account.NewPasswordReset("", "deadbeef", expiry)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "RESET_INVALID_EMAIL")
	})

	t.Run("empty token hash", func(t *testing.T) {
		_, err := account.NewPasswordReset("ada@example.com", "", expiry)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "RESET_INVALID_HASH")
	})

	t.Run("zero expiry", func(t *testing.T) {
		_, err := account.NewPasswordReset("ada@example.com", "deadbeef", time.Time{})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "RESET_INVALID_EXPIRY")
	})
}

func TestPasswordResetIsExpired(t *testing.T) {
	t.Run("future expiry is not expired", func(t *testing.T) {
		reset, err := account.NewPasswordReset("ada@example.com", "deadbeef", time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, reset.IsExpired())
	})

	t.Run("past expiry is expired", func(t *testing.T) {
		reset, err := account.NewPasswordReset("ada@example.com", "deadbeef", time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, reset.IsExpired())
	})
}
