package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var teacher = model.Actor{ID: "teacher-1", Role: model.RoleTeacher, GroupIDs: []string{"g-1"}}

func TestIssueAndAuthenticate(t *testing.T) {
	a := NewAuthenticator("secret", "testpoint")
	token, err := a.IssueToken(teacher, time.Hour)
	require.NoError(t, err)

	actor, err := a.Authenticate("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, teacher, actor)
}

func TestAuthenticateRejects(t *testing.T) {
	a := NewAuthenticator("secret", "testpoint")
	valid, err := a.IssueToken(teacher, time.Hour)
	require.NoError(t, err)

	otherKey, err := NewAuthenticator("other", "testpoint").IssueToken(teacher, time.Hour)
	require.NoError(t, err)
	otherIssuer, err := NewAuthenticator("secret", "someone").IssueToken(teacher, time.Hour)
	require.NoError(t, err)
	expired, err := a.IssueToken(teacher, -time.Minute)
	require.NoError(t, err)
	badRole, err := a.IssueToken(model.Actor{ID: "x", Role: model.RoleSystem}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: model.RoleAdmin}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{"missing", "", "Authorization header is required"},
		{"no bearer", valid, "Authorization header is required"},
		{"garbage", "Bearer abc", "Invalid token"},
		{"wrong key", "Bearer " + otherKey, "Invalid token"},
		{"wrong issuer", "Bearer " + otherIssuer, "Invalid token"},
		{"expired", "Bearer " + expired, "Token expired"},
		{"system role", "Bearer " + badRole, "Unknown role in token"},
		{"alg none", "Bearer " + none, "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(tt.header)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.KindUnauthorized))
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestMiddleware(t *testing.T) {
	a := NewAuthenticator("secret", "testpoint")
	var got model.Actor
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tests", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := a.IssueToken(teacher, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/tests", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, teacher, got)
}
