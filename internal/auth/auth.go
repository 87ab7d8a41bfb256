package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/SergeyParamoshkin/feeds/internal/model"
	jwt "github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// Verifier checks a session token and returns who it was issued to.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// Issuer creates session tokens.
type Issuer interface {
	Issue(userID string) (string, error)
}

// JWT issues and verifies HMAC signed tokens whose subject is the user id.
type JWT struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewJWT(secret []byte, expiry time.Duration) *JWT {
	return &JWT{secret: secret, expiry: expiry, now: time.Now}
}

func (j *JWT) Issue(userID string) (string, error) {
	now := j.now()
	claims := jwt.StandardClaims{
		Subject:   userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(j.expiry).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}

	return token, nil
}

func (j *JWT) Verify(token string) (Identity, error) {
	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return Identity{}, model.Unauthorized("invalid token")
	}
	if claims.Subject == "" {
		return Identity{}, model.Unauthorized("invalid token")
	}

	return Identity{UserID: claims.Subject, ExpiresAt: time.Unix(claims.ExpiresAt, 0)}, nil
}

type ctxKey int8

const ctxKeyIdentity ctxKey = iota

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(Identity)

	return id, ok && id.UserID != ""
}

// UserID returns the caller's id or an Unauthorized error.
func UserID(ctx context.Context) (string, error) {
	if id, ok := FromContext(ctx); ok {
		return id.UserID, nil
	}

	return "", model.Unauthorized("unauthorized")
}

// BearerToken extracts the token of an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}
