package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FelipeMiiller/userhub-back/internal/model"
)

// Payload is the session payload carried by both token kinds.  It is a
// snapshot taken at issuance time: Status reflects the account's active
// flag when the token was minted, and the guard re-checks it on every
// request.  Wire shape (JSON claims): sub, email, role, status, iat, exp.
type Payload struct {
	Subject string     // identity id (sub claim)
	Email   string     // email claim
	Role    model.Role // role claim
	Status  bool       // status claim (account active flag)
}

// sessionClaims is the concrete claim set signed into tokens.
type sessionClaims struct {
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	Status bool       `json:"status"`
	jwt.RegisteredClaims
}

func (c *sessionClaims) payload() Payload {
	return Payload{
		Subject: c.Subject,
		Email:   c.Email,
		Role:    c.Role,
		Status:  c.Status,
	}
}

// Issuer mints and verifies the two token kinds.  Access and refresh
// tokens share the payload shape but are signed with distinct secrets
// and expiries, so one can never be presented in place of the other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewIssuer builds an Issuer.  Empty secrets or non-positive TTLs are a
// configuration error: callers must treat the returned error as fatal at
// startup rather than let unverifiable tokens surface as per-request
// 401s.
func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("jwt ttl is not configured")
	}
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccessToken signs a short-lived HS256 access token for p.
func (i *Issuer) IssueAccessToken(p Payload) (string, error) {
	return i.sign(p, i.accessSecret, i.accessTTL)
}

// IssueRefreshToken signs a long-lived HS256 refresh token for p.
func (i *Issuer) IssueRefreshToken(p Payload) (string, error) {
	return i.sign(p, i.refreshSecret, i.refreshTTL)
}

func (i *Issuer) sign(p Payload, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &sessionClaims{
		Email:  p.Email,
		Role:   p.Role,
		Status: p.Status,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken validates signature, algorithm and expiry of an
// access token and returns its payload.  Any failure is ErrInvalidToken.
func (i *Issuer) VerifyAccessToken(token string) (Payload, error) {
	return i.verify(token, i.accessSecret)
}

// VerifyRefreshToken is VerifyAccessToken for the refresh secret.
func (i *Issuer) VerifyRefreshToken(token string) (Payload, error) {
	return i.verify(token, i.refreshSecret)
}

func (i *Issuer) verify(token string, secret []byte) (Payload, error) {
	claims := &sessionClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		// Pin the signing method; a token signed with a different
		// algorithm must not reach the key.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.payload(), nil
}

// Decode extracts a payload without verifying the signature.  It exists
// for metadata inspection only and must never feed an authorization
// decision; callers wanting a trusted payload use the Verify methods.
func (i *Issuer) Decode(token string) (Payload, bool) {
	claims := &sessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Payload{}, false
	}
	return claims.payload(), true
}
