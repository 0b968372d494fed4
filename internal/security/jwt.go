package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by an access token. The refresh credential is opaque and
// never a JWT; only the short-lived access token is signed.
type Claims struct {
	TokenType string `json:"token_type"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

var ErrInvalidAccessToken = errors.New("invalid access token")

type JWTManager struct {
	issuer   string
	audience string
	secret   []byte
}

func NewJWTManager(issuer, audience, secret string) *JWTManager {
	return &JWTManager{
		issuer:   issuer,
		audience: audience,
		secret:   []byte(secret),
	}
}

func (m *JWTManager) SignAccessToken(userID uint, email, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		TokenType: "access",
		Email:     email,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Audience:  []string{m.audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseAccessToken verifies signature, expiry, issuer, audience and token
// type. It is a pure cryptographic check; no store access happens here.
func (m *JWTManager) ParseAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithAudience(m.audience))
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	if !tok.Valid {
		return nil, ErrInvalidAccessToken
	}
	if claims.TokenType != "access" {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

// UserID parses the numeric subject claim.
func (c *Claims) UserID() (uint, error) {
	id64, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidAccessToken
	}
	return uint(id64), nil
}
