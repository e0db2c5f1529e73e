package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/safar/storefront/internal/apperr"
)

type Claims struct {
	IsAdmin bool `json:"isAdmin"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs an HS256 token carrying the user id as subject.
func (ti *TokenIssuer) Issue(id Identity) (string, error) {
	now := ti.now()
	claims := Claims{
		IsAdmin: id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a raw token string. Every failure is an apperr.KindAuth error.
func (ti *TokenIssuer) Verify(raw string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	},
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Identity{}, apperr.Auth("token is not valid")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, apperr.Auth("token is not valid")
	}

	return Identity{UserID: userID, IsAdmin: claims.IsAdmin}, nil
}

// Authenticate extracts the bearer token from an Authorization header value
// and verifies it.
func (ti *TokenIssuer) Authenticate(header string) (Identity, error) {
	if header == "" {
		return Identity{}, apperr.Auth("you are not authenticated")
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Identity{}, apperr.Auth("authorization header format must be Bearer {token}")
	}

	return ti.Verify(parts[1])
}
