package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

var ErrAuthNotConfigured = errors.New("auth: JWT_SECRET_KEY is not set")

// JWTClaims are the identity-provider claims this backend reads.
type JWTClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	// SetContextFromToken verifies the bearer token, syncs the caller's local
	// user and stores the request data on the returned context.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// IssueToken signs a token for id. Used by the dev CLI and tests.
	IssueToken(id Identity, ttl time.Duration) (string, error)
}

type authService struct {
	log          *logger.Logger
	users        UserService
	jwtSecretKey string
	issuer       string
}

func NewAuthService(baseLog *logger.Logger, users UserService, jwtSecretKey, issuer string) AuthService {
	return &authService{
		log:          baseLog.With("service", "AuthService"),
		users:        users,
		jwtSecretKey: jwtSecretKey,
		issuer:       issuer,
	}
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if as.jwtSecretKey == "" {
		return ctx, ErrAuthNotConfigured
	}
	if tokenString == "" {
		return ctx, fmt.Errorf("missing token")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if as.issuer != "" {
		opts = append(opts, jwt.WithIssuer(as.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, opts...)
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	if claims.Subject == "" {
		return ctx, fmt.Errorf("token has no subject")
	}

	u, err := as.users.SyncUser(ctx, Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	})
	if err != nil {
		as.log.Warn("user sync failed", "error", err)
		return ctx, fmt.Errorf("sync user: %w", err)
	}
	if u.ID == uuid.Nil {
		return ctx, fmt.Errorf("sync user: empty id")
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		Subject:     claims.Subject,
		UserID:      u.ID,
	}), nil
}

func (as *authService) IssueToken(id Identity, ttl time.Duration) (string, error) {
	if as.jwtSecretKey == "" {
		return "", ErrAuthNotConfigured
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := JWTClaims{
		Email:   id.Email,
		Name:    id.Name,
		Picture: id.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    as.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
}
