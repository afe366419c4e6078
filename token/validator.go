package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when the credential is not a well-formed signed token
	ErrMalformedToken = errors.New("malformed token")

	// ErrBadSignature is returned when the signature does not verify against the shared secret
	ErrBadSignature = errors.New("invalid token signature")

	// ErrInvalidIssuer is returned when the issuer claim does not match the configured issuer
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrTokenExpired is returned when the token expiry is not strictly in the future
	ErrTokenExpired = errors.New("token expired")
)

// Validator validates gateway bearer tokens signed with a pre-shared
// HMAC-SHA256 secret.
type Validator struct {
	secret []byte
	issuer string

	// now is injectable for expiry tests
	now func() time.Time
}

// Config holds configuration for Validator
type Config struct {
	Secret string
	Issuer string
}

// NewValidator creates a new token validator
func NewValidator(cfg Config) (*Validator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("token issuer must not be empty")
	}

	return &Validator{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// ValidateToken validates a bearer token and returns parsed claims.
// Checks run in a fixed order so the returned error names the first thing
// wrong with the credential: structure, then signature, then issuer, then
// expiry. Registered-claim validation is done here rather than by the jwt
// parser to keep that order.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*ParsedClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	if claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidIssuer, v.issuer, claims.Issuer)
	}

	// Expiry must be strictly in the future; a token without exp never passes
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(v.now()) {
		return nil, ErrTokenExpired
	}

	return parseClaims(claims), nil
}
