package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestMiddleware_ValidToken(t *testing.T) {
	mgr := NewManager(TokenConfig{Secret: []byte("test-secret")})
	teamID := uuid.New()
	token, err := mgr.IssueMemberToken(teamID, "m1", "Alice", true)
	assert.NoError(t, err)

	var got *Claims
	handler := Middleware(mgr, testLogger())(RequireMember(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/teams/"+teamID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, got) {
		assert.Equal(t, teamID, got.TeamID)
		assert.Equal(t, "m1", got.MemberID)
		assert.True(t, got.Captain)
	}
}

func TestMiddleware_MissingTokenRejected(t *testing.T) {
	mgr := NewManager(TokenConfig{Secret: []byte("test-secret")})

	handler := Middleware(mgr, testLogger())(RequireMember(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/teams/abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_MalformedHeaderRejected(t *testing.T) {
	mgr := NewManager(TokenConfig{Secret: []byte("test-secret")})

	handler := Middleware(mgr, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/teams/abc", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_BadTokenRejected(t *testing.T) {
	mgr := NewManager(TokenConfig{Secret: []byte("test-secret")})
	other := NewManager(TokenConfig{Secret: []byte("other-secret")})
	token, err := other.IssueMemberToken(uuid.New(), "m1", "Alice", false)
	assert.NoError(t, err)

	handler := Middleware(mgr, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/teams/abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
