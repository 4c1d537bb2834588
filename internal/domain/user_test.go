package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExternalUserID(t *testing.T) {
	u := ParseExternalUserID("carol#xyz123")
	assert.Equal(t, "carol", u.DisplayName)
	assert.Equal(t, "xyz123", u.ClientID)

	assert.Equal(t, "carol", DisplayName("carol#xyz#123"))
}

func TestParseExternalUserIDWithoutSeparator(t *testing.T) {
	u := ParseExternalUserID("malformed")
	assert.Equal(t, "malformed", u.DisplayName)
	assert.Empty(t, u.ClientID)

	assert.Empty(t, DisplayName(""))
}

func TestNewExternalUserID(t *testing.T) {
	u, err := NewExternalUserID("alice", "c1")
	require.NoError(t, err)
	assert.Equal(t, "alice#c1", u.String())

	_, err = NewExternalUserID("", "c1")
	assert.ErrorIs(t, err, ErrUsernameEmpty)

	_, err = NewExternalUserID("al#ice", "c1")
	assert.ErrorIs(t, err, ErrUsernameInvalid)
	assert.True(t, IsValidation(err))

	_, err = NewExternalUserID(strings.Repeat("a", MaxUsernameLen+1), "c1")
	assert.ErrorIs(t, err, ErrUsernameTooLong)
}

func TestAttendeeIDKind(t *testing.T) {
	assert.Equal(t, Primary, AttendeeID("a-1").Kind())
	assert.Equal(t, ScreenShare, AttendeeID("a-1#content").Kind())
	assert.Equal(t, AttendeeID("a-1"), AttendeeID("a-1#content").Base())
	assert.Equal(t, AttendeeID("a-1"), AttendeeID("a-1").Base())
}
