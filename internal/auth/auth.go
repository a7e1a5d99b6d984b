// Package auth проверяет bearer-токены и кладет актора в контекст запроса.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	httpError "github.com/IT-Nick/testpoint/pkg/http"
	"github.com/golang-jwt/jwt/v5"
)

type ctxKey struct{}

// Claims содержимое токена
type Claims struct {
	Role   model.Role `json:"role"`
	Groups []string   `json:"groups,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator выпускает и проверяет HS256-токены
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewAuthenticator создает новый экземпляр Authenticator
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// IssueToken подписывает токен для актора со сроком жизни ttl
func (a *Authenticator) IssueToken(actor model.Actor, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Role:   actor.Role,
		Groups: actor.GroupIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Authenticate разбирает заголовок Authorization
func (a *Authenticator) Authenticate(header string) (model.Actor, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return model.Actor{}, errs.Unauthorized("Authorization header is required")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	},
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Actor{}, errs.Unauthorized("Token expired")
		}
		return model.Actor{}, errs.Unauthorized("Invalid token")
	}

	if claims.Subject == "" {
		return model.Actor{}, errs.Unauthorized("Subject not found in token")
	}
	switch claims.Role {
	case model.RoleAdmin, model.RoleTeacher, model.RoleStudent:
	default:
		return model.Actor{}, errs.Unauthorized("Unknown role in token")
	}

	return model.Actor{ID: claims.Subject, Role: claims.Role, GroupIDs: claims.Groups}, nil
}

// Middleware пропускает только запросы с действительным токеном
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			httpError.FromError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// WithActor кладет актора в контекст
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// ActorFromContext достает актора из контекста запроса
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(ctxKey{}).(model.Actor)
	return actor, ok
}

// Actor актор запроса или Unauthorized, если middleware не отработал
func Actor(r *http.Request) (model.Actor, error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		return model.Actor{}, errs.Unauthorized("Authorization header is required")
	}
	return actor, nil
}
