package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jonathan/session-report/internal/config"
	"github.com/jonathan/session-report/internal/server/middleware"
)

// tokenIssuer is stamped into every token and required on validation
const tokenIssuer = "session-report"

// Claims carries the authenticated owner. Sessions and reports are only visible to
// their owner.
type Claims struct {
	OwnerID uuid.UUID `json:"owner_id"`
	jwt.RegisteredClaims
}

// GetOwnerID implements middleware.OwnerIDGetter
func (c *Claims) GetOwnerID() uuid.UUID {
	return c.OwnerID
}

// JWTService issues and validates HS256 owner tokens
type JWTService struct {
	config *config.JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given configuration.
func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{config: cfg, now: time.Now}
}

// AsTokenValidator adapts the service to middleware.TokenValidator
func (s *JWTService) AsTokenValidator() middleware.TokenValidator {
	return middleware.TokenValidatorFunc(func(token string) (middleware.OwnerIDGetter, error) {
		return s.ValidateToken(token)
	})
}

// GenerateToken generates a token for the given owner.
func (s *JWTService) GenerateToken(ownerID uuid.UUID) (string, error) {
	if ownerID == uuid.Nil {
		return "", fmt.Errorf("owner ID is required")
	}
	now := s.now()
	claims := &Claims{
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   ownerID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a token and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.OwnerID == uuid.Nil {
		return nil, fmt.Errorf("token has no owner")
	}
	return claims, nil
}
