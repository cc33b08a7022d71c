package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity claims issued to booking clients and merchants.
type Claims struct {
	jwt.RegisteredClaims
	BusinessID string `json:"business_id,omitempty"`
	Role       string `json:"role"`
}

// NewClaims builds claims for subject valid for ttl from now.
func NewClaims(subject, role, businessID string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		BusinessID: businessID,
		Role:       role,
	}
}

func SignHS256(claims Claims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// KeySource resolves RS256 verification keys by key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (any, error)
}

// Verifier validates bearer tokens. HS256 tokens are checked against Secret,
// RS256 tokens against Keys. Either may be unset to disable that algorithm.
type Verifier struct {
	Secret string
	Keys   KeySource
	Issuer string
}

func (v Verifier) Enabled() bool {
	return v.Secret != "" || v.Keys != nil
}

func (v Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods()),
		jwt.WithExpirationRequired(),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return []byte(v.Secret), nil
		case *jwt.SigningMethodRSA:
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("missing kid")
			}
			return v.Keys.Key(ctx, kid)
		default:
			return nil, jwt.ErrTokenSignatureInvalid
		}
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (v Verifier) methods() []string {
	var out []string
	if v.Secret != "" {
		out = append(out, jwt.SigningMethodHS256.Alg())
	}
	if v.Keys != nil {
		out = append(out, jwt.SigningMethodRS256.Alg())
	}
	return out
}
