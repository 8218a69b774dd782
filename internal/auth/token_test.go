package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIssueAndValidateMemberToken(t *testing.T) {
	mgr := NewManager(TokenConfig{Secret: []byte("test-secret")})
	teamID := uuid.New()

	token, err := mgr.IssueMemberToken(teamID, "device-7", "Ada", true)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := mgr.Validate(token)
	assert.NoError(t, err)
	assert.Equal(t, teamID, claims.TeamID)
	assert.Equal(t, "device-7", claims.MemberID)
	assert.True(t, claims.Captain)
}

func TestValidate_WrongSecret(t *testing.T) {
	mgr := NewManager(TokenConfig{Secret: []byte("test-secret")})
	token, _ := mgr.IssueMemberToken(uuid.New(), "device-7", "Ada", false)

	other := NewManager(TokenConfig{Secret: []byte("other-secret")})
	_, err := other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	mgr := NewManager(TokenConfig{Secret: []byte("test-secret"), TTL: -time.Minute})
	token, _ := mgr.IssueMemberToken(uuid.New(), "device-7", "Ada", false)

	_, err := mgr.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_Garbage(t *testing.T) {
	mgr := NewManager(TokenConfig{Secret: []byte("test-secret")})
	_, err := mgr.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
