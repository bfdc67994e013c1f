// Package auth issues and verifies the HS256 bearer tokens that guard the
// service's operator routes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrNoSecret = errors.New("jwt secret is not configured")

type TokenService struct {
	Secret   []byte
	Issuer   string
	Duration time.Duration
	now      func() time.Time
}

type Claims struct {
	jwt.RegisteredClaims
}

func NewTokenService(secret, issuer string, d time.Duration) TokenService {
	return TokenService{Secret: []byte(secret), Issuer: issuer, Duration: d, now: time.Now}
}

func (ts TokenService) clock() time.Time {
	if ts.now == nil {
		return time.Now()
	}
	return ts.now()
}

// Sign issues a token for subject, typically an operator or bot name.
func (ts TokenService) Sign(subject string) (string, time.Time, error) {
	if len(ts.Secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	now := ts.clock()
	exp := now.Add(ts.Duration)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp, nil
}

func (ts TokenService) Parse(tokenString string) (*Claims, error) {
	if len(ts.Secret) == 0 {
		return nil, ErrNoSecret
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if ts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.Issuer))
	}

	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return ts.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
