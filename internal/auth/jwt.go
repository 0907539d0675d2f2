package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"classlog/auth-bridge/internal/apperr"
	"classlog/auth-bridge/internal/model"
)

type Claims struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenID is the jti claim, used as the revocation ledger key.
func (c *Claims) TokenID() string {
	return c.ID
}

type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   model.Role
}

// Codec signs and verifies session credentials with a shared HS256 secret.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret, issuer string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("missing_jwt_secret")
	}
	if ttl <= 0 {
		return nil, errors.New("invalid_session_ttl")
	}
	return &Codec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (c *Codec) Sign(identity Identity) (string, Claims, error) {
	const op = "auth.Sign"

	identity.UserID = strings.TrimSpace(identity.UserID)
	identity.Email = strings.TrimSpace(identity.Email)
	if identity.UserID == "" {
		return "", Claims{}, apperr.Validationf(op, "missing subject")
	}
	if identity.Email == "" {
		return "", Claims{}, apperr.Validationf(op, "missing email")
	}
	if !identity.Role.Valid() {
		return "", Claims{}, apperr.Validationf(op, "invalid role %q", identity.Role)
	}

	now := c.now().UTC().Truncate(time.Second)
	claims := Claims{
		UserID: identity.UserID,
		Email:  identity.Email,
		Name:   identity.Name,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.UserID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", Claims{}, apperr.New(apperr.Signing, op, err)
	}
	return signed, claims, nil
}

// Verify returns false for any token that cannot be trusted. The reason is
// deliberately not reported.
func (c *Codec) Verify(tokenString string) (*Claims, bool) {
	if tokenString == "" {
		return nil, false
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, false
	}
	if claims.UserID == "" || claims.UserID != claims.Subject || claims.Email == "" || claims.ID == "" {
		return nil, false
	}
	if !claims.Role.Valid() || claims.IssuedAt == nil {
		return nil, false
	}
	return claims, true
}
