package token

import (
	"errors"
	"fmt"
	"time"

	"travel_auth/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind selects the signing secret and default lifetime for a token. Each
// kind is verified only against its own secret, so tokens never cross
// purposes even when the claim sets look alike.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
	Reset   Kind = "password_reset"
	Verify  Kind = "email_verification"
)

// ErrInvalidToken covers bad signature, malformed input, wrong purpose and
// expiry alike. Callers make security decisions on this single outcome.
var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	SubjectID int64
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Codec struct {
	secrets map[Kind][]byte
	ttls    map[Kind]time.Duration
	now     func() time.Time
}

func New(secrets config.Secrets, tokens config.Tokens) *Codec {
	return &Codec{
		secrets: map[Kind][]byte{
			Access:  []byte(secrets.Access),
			Refresh: []byte(secrets.Refresh),
			Reset:   []byte(secrets.Reset),
			Verify:  []byte(secrets.Verify),
		},
		ttls: map[Kind]time.Duration{
			Access:  tokens.AccessTokenTTL,
			Refresh: tokens.RefreshTokenTTL,
			Reset:   tokens.ResetTokenTTL,
			Verify:  tokens.VerificationTokenTTL,
		},
		now: time.Now,
	}
}

func (c *Codec) Lifetime(kind Kind) time.Duration {
	return c.ttls[kind]
}

// Issue signs a new token of the given kind. Pure except for the clock: no
// storage, no side effects. The jti claim is unique per issued token and
// keys the single-use markers for refresh and reset consumption.
func (c *Codec) Issue(kind Kind, subjectID int64) (string, Claims, error) {
	const op = "token.Issue"

	secret, ok := c.secrets[kind]
	if !ok {
		return "", Claims{}, fmt.Errorf("%s: unknown token kind %q", op, kind)
	}

	now := c.now()
	claims := Claims{
		SubjectID: subjectID,
		JTI:       uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(c.ttls[kind]),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     claims.SubjectID,
		"purpose": string(kind),
		"jti":     claims.JTI,
		"iat":     claims.IssuedAt.Unix(),
		"exp":     claims.ExpiresAt.Unix(),
	})

	signed, err := t.SignedString(secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, claims, nil
}

// Verify checks signature, purpose and expiry. The boundary is strict: a
// token is already invalid at exactly its expiry instant.
func (c *Codec) Verify(kind Kind, tokenStr string) (Claims, error) {
	secret, ok := c.secrets[kind]
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	mc := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, mc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	if purpose, ok := mc["purpose"].(string); !ok || purpose != string(kind) {
		return Claims{}, ErrInvalidToken
	}

	claims, err := claimsFromMap(mc)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	if !c.now().Before(claims.ExpiresAt) {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// InspectUnverified extracts claims without checking the signature. Only
// good for the page guard's cheap local expiry test; never for granting
// access server side.
func InspectUnverified(tokenStr string) (Claims, error) {
	mc := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, mc); err != nil {
		return Claims{}, ErrInvalidToken
	}

	claims, err := claimsFromMap(mc)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

func claimsFromMap(mc jwt.MapClaims) (Claims, error) {
	sub, ok := mc["sub"].(float64)
	if !ok {
		return Claims{}, errors.New("missing sub claim")
	}

	exp, ok := mc["exp"].(float64)
	if !ok {
		return Claims{}, errors.New("missing exp claim")
	}

	claims := Claims{
		SubjectID: int64(sub),
		ExpiresAt: time.Unix(int64(exp), 0),
	}

	if jti, ok := mc["jti"].(string); ok {
		claims.JTI = jti
	}
	if iat, ok := mc["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0)
	}

	return claims, nil
}
