// Package tokens is the session token codec: compact HS256-signed
// bearer tokens carrying subject (email), user id, roles, issued-at
// and expiry. Pure code, no I/O; validity is a function of signature
// and expiry only.
package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenInvalid covers malformed structure, bad signature,
	// unexpected algorithm and wrong token class.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired means the signature verified but the token is
	// past its expiry, so the caller should re-authenticate rather
	// than treat the token as tampered.
	ErrTokenExpired = errors.New("token expired")
)

const refreshType = "refresh"

type AccessClaims struct {
	UserID uint     `json:"id"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	UserID    uint   `json:"id"`
	TokenType string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

func SignAccess(email string, userID uint, roles []string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// SignRefresh mints a refresh token: subject and id only, no roles,
// marked with typ=refresh so it cannot pass for an access token.
func SignRefresh(email string, userID uint, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		UserID:    userID,
		TokenType: refreshType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ParseAccess(tokenStr string, secret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	if err := parse(tokenStr, &claims, secret); err != nil {
		return nil, err
	}
	return &claims, nil
}

func ParseRefresh(tokenStr string, secret []byte) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := parse(tokenStr, &claims, secret); err != nil {
		return nil, err
	}
	if claims.TokenType != refreshType {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

func parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !tkn.Valid {
		return ErrTokenInvalid
	}
	return nil
}
