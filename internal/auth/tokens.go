// Package auth implements the stateless token service. Access and refresh
// tokens are both HS256-signed JWTs carrying the same identity claims and
// an explicit kind discriminator; nothing is persisted server-side, so a
// token stays usable until its expiry.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/marketplace-api/internal/model"
)

// TokenKind discriminates the two token flavours. A refresh token must
// never be accepted where an access token is required and vice versa.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Sentinel decode failures. Both surface to clients as 401, but they are
// kept distinct so logs can tell a stale session from a forged token.
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the signed claim set embedded in every token. Subject holds
// the account email; UserID the numeric account id.
type Claims struct {
	Role      model.Role `json:"role"`
	UserID    uint64     `json:"id"`
	TokenType TokenKind  `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenService issues and decodes token pairs. The signing secret and the
// two lifetimes are injected at construction; there is no ambient state.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService builds a TokenService. TTL units follow the config
// variables: minutes for access tokens, days for refresh tokens.
func NewTokenService(secret string, accessTTLMin, refreshTTLDays int) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  time.Duration(accessTTLMin) * time.Minute,
		refreshTTL: time.Duration(refreshTTLDays) * 24 * time.Hour,
	}
}

// IssueAccess signs a short-lived access token for the given account.
func (s *TokenService) IssueAccess(u model.User) (string, error) {
	return s.issue(u, KindAccess, s.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the given account.
func (s *TokenService) IssueRefresh(u model.User) (string, error) {
	return s.issue(u, KindRefresh, s.refreshTTL)
}

func (s *TokenService) issue(u model.User, kind TokenKind, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role:      u.Role,
		UserID:    u.ID,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Decode verifies the signature and expiry of raw and returns its claims.
// It fails with ErrTokenExpired when the token is past its expiry and with
// ErrTokenInvalid for every other defect (bad signature, wrong algorithm,
// malformed structure, missing kind).
func (s *TokenService) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tok.Valid || (claims.TokenType != KindAccess && claims.TokenType != KindRefresh) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// DecodeKind decodes raw and additionally requires the embedded kind to
// match. A valid token of the wrong kind is reported as ErrTokenInvalid.
func (s *TokenService) DecodeKind(raw string, kind TokenKind) (*Claims, error) {
	claims, err := s.Decode(raw)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != kind {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
