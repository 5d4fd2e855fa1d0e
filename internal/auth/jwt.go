// Tenantguard - Multi-Tenant Authorization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantguard

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum accepted HMAC secret length.
const MinSecretLength = 32

// Claims represents JWT claims
type Claims struct {
	TenantID      string `json:"tenant_id"`
	TenantVersion int64  `json:"tenant_v,omitempty"`
	UserVersion   int64  `json:"user_v,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token creation and validation
type JWTManager struct {
	secret  []byte
	timeout time.Duration
}

// NewJWTManager creates a JWT manager using HS256 with the given secret.
// Tokens it issues expire after timeout (default: 1h).
func NewJWTManager(secret string, timeout time.Duration) (*JWTManager, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d characters", MinSecretLength)
	}
	if timeout <= 0 {
		timeout = time.Hour
	}
	return &JWTManager{
		secret:  []byte(secret),
		timeout: timeout,
	}, nil
}

// GenerateToken creates a signed token for id, embedding its authorization
// versions when set.
func (m *JWTManager) GenerateToken(id Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		TenantID:      id.Tenant,
		TenantVersion: id.TenantVersion,
		UserVersion:   id.UserVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signedToken, nil
}

// ValidateToken validates a token and extracts its claims. Tokens signed with
// anything other than HMAC are rejected.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidCredentials)
	}
	if err := checkTenant(claims.TenantID); err != nil {
		return nil, err
	}
	return claims, nil
}

// IdentityFromClaims converts validated claims to an Identity.
func IdentityFromClaims(claims *Claims) (*Identity, error) {
	if claims == nil {
		return nil, errors.New("nil claims")
	}
	if err := checkTenant(claims.TenantID); err != nil {
		return nil, err
	}
	return &Identity{
		Subject:       claims.Subject,
		Tenant:        claims.TenantID,
		TenantVersion: claims.TenantVersion,
		UserVersion:   claims.UserVersion,
		Method:        AuthModeJWT,
	}, nil
}
