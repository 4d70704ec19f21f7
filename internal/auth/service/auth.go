// Package service issues and verifies the signed tokens used for sessions, email verification and password reset
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/apperrors"
)

// Purpose scopes a token to a single flow; tokens of one purpose are rejected by the others
type Purpose string

const (
	PurposeAccess            Purpose = "access"
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

// Payload is the subject data carried by a token
type Payload struct {
	UserID   int    `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
}

// Claims is the JWT body: payload, purpose and registered claims
type Claims struct {
	Payload
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenGenerator handles JWT token generation and validation
type TokenGenerator struct {
	secret                  []byte
	accessTokenExpiry       time.Duration
	verificationTokenExpiry time.Duration
	resetTokenExpiry        time.Duration
	now                     func() time.Time
}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator(secret string, accessExpiry, verificationExpiry, resetExpiry time.Duration) *TokenGenerator {
	return &TokenGenerator{
		secret:                  []byte(secret),
		accessTokenExpiry:       accessExpiry,
		verificationTokenExpiry: verificationExpiry,
		resetTokenExpiry:        resetExpiry,
		now:                     time.Now,
	}
}

// Issue signs payload for the given purpose. A non-positive ttl produces a token without expiry.
// Every token gets a random ID, so two tokens issued within the same second never collide.
func (tg *TokenGenerator) Issue(purpose Purpose, payload Payload, ttl time.Duration) (string, error) {
	now := tg.now()
	claims := Claims{
		Payload: payload,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tg.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}

	return tokenString, nil
}

// Verify checks signature, expiry and purpose of tokenString and returns its payload.
// Every failure wraps apperrors.ErrInvalidToken.
func (tg *TokenGenerator) Verify(tokenString string, purpose Purpose) (*Payload, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tg.secret, nil
	}, jwt.WithTimeFunc(tg.now), jwt.WithIssuedAt())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", apperrors.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("%w: token is invalid", apperrors.ErrInvalidToken)
	}

	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: expected %s token, got %q", apperrors.ErrInvalidToken, purpose, claims.Purpose)
	}

	payload := claims.Payload
	return &payload, nil
}

// IssueAccessToken issues a session token for an authenticated user
func (tg *TokenGenerator) IssueAccessToken(payload Payload) (string, error) {
	return tg.Issue(PurposeAccess, payload, tg.accessTokenExpiry)
}

// IssueVerificationToken issues an email verification token scoped to email
func (tg *TokenGenerator) IssueVerificationToken(email string) (string, error) {
	return tg.Issue(PurposeEmailVerification, Payload{Email: email}, tg.verificationTokenExpiry)
}

// IssueResetToken issues a password reset token scoped to email
func (tg *TokenGenerator) IssueResetToken(email string) (string, error) {
	return tg.Issue(PurposePasswordReset, Payload{Email: email}, tg.resetTokenExpiry)
}

// ValidateAccessToken verifies a session token
func (tg *TokenGenerator) ValidateAccessToken(tokenString string) (*Payload, error) {
	return tg.Verify(tokenString, PurposeAccess)
}
