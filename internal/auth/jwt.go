package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yukikurage/taskflow-api/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims carried by both access and refresh tokens.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is returned by register, login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// TokenManager issues and decodes HS256 tokens.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// NewTokenManagerFromConfig reads the JWT settings from cfg.
func NewTokenManagerFromConfig(cfg *config.Config) *TokenManager {
	return NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}

func (m *TokenManager) IssueAccessToken(userID, email string) (string, error) {
	return m.issue(userID, email, TokenTypeAccess, m.accessTTL)
}

func (m *TokenManager) IssueRefreshToken(userID, email string) (string, error) {
	return m.issue(userID, email, TokenTypeRefresh, m.refreshTTL)
}

// IssuePair issues a fresh access and refresh token for the user.
func (m *TokenManager) IssuePair(userID, email string) (*TokenPair, error) {
	access, err := m.IssueAccessToken(userID, email)
	if err != nil {
		return nil, err
	}
	refresh, err := m.IssueRefreshToken(userID, email)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, nil
}

func (m *TokenManager) issue(userID, email, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Decode verifies the signature and expiry and returns the claims.
func (m *TokenManager) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// DecodeAccess rejects refresh tokens presented as access tokens.
func (m *TokenManager) DecodeAccess(tokenString string) (*Claims, error) {
	return m.decodeType(tokenString, TokenTypeAccess)
}

func (m *TokenManager) DecodeRefresh(tokenString string) (*Claims, error) {
	return m.decodeType(tokenString, TokenTypeRefresh)
}

func (m *TokenManager) decodeType(tokenString, tokenType string) (*Claims, error) {
	claims, err := m.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
