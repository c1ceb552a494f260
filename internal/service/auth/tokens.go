package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const rememberTokenBytes = 64

var errInvalidSession = errors.New("invalid session token")

// sessionClaims is the signed body of a session assertion.
type sessionClaims struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

func signSession(secret []byte, id Identity, now time.Time, ttl time.Duration) (Session, error) {
	jti := uuid.NewString()
	exp := now.Add(ttl)
	claims := sessionClaims{
		Username: id.Username,
		Name:     id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", id.UserID),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: signed, ID: jti, ExpiresAt: exp, Identity: id}, nil
}

func parseSession(secret []byte, token string, now time.Time) (*sessionClaims, error) {
	claims := new(sessionClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, errInvalidSession
	}
	return claims, nil
}

// newRememberToken returns a random opaque token; only its digest is persisted.
func newRememberToken() (string, error) {
	buf := make([]byte, rememberTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func digestsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func sessionKey(jti string) string {
	return "session:" + jti
}
