package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"esalama/internal/apperr"
)

// Claims represents the JWT payload: the verified user id and role.
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken is a signed token plus its expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// Issue signs an access token for the given user id and role.
func Issue(subject, role, issuer, key string, ttl time.Duration) (AccessToken, error) {
	exp := time.Now().Add(ttl)
	claims := Claims{
		Subject: subject,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns its claims. All failures map to
// apperr.ErrUnauthenticated; callers cannot distinguish why a credential
// was rejected.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, apperr.ErrUnauthenticated
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, apperr.ErrUnauthenticated
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, apperr.ErrUnauthenticated
	}
	return *claims, nil
}
