package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelMatching(t *testing.T) {
	err := NotAMember("kick", "player %s is not a member", "abc")
	assert.True(t, errors.Is(err, ErrNotAMember))
	assert.False(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, CodeNotAMember, CodeOf(err))
	assert.Equal(t, "kick: E_NOT_A_MEMBER: player abc is not a member", err.Error())

	wrapped := fmt.Errorf("outer: %w", InsufficientFunds("withdraw", "need 150, have 100"))
	assert.True(t, errors.Is(wrapped, ErrInsufficientFunds))
	assert.Equal(t, CodeInsufficientFunds, CodeOf(wrapped))
}

func TestQueryFailedWrapsCause(t *testing.T) {
	cause := errors.New("scanner offline")
	err := QueryFailed("recalculate", cause)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueryFailed))
	assert.True(t, errors.Is(err, cause))

	again := QueryFailed("outer", err)
	assert.Same(t, err, again)
	assert.NoError(t, QueryFailed("noop", nil))
}

func TestKnownCodes(t *testing.T) {
	for _, c := range []Code{CodeNotAMember, CodeInvalidState, CodeInsufficientFunds, CodeQueryFailed, CodeDisbanded, CodeValidation} {
		assert.True(t, IsKnownCode(c), c)
	}
	assert.False(t, IsKnownCode("E_NOPE"))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
