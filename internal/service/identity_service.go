package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/quizhive/quizroom-backend/internal/config"
)

// Common identity errors.
var (
	ErrTokenInvalid = errors.New("invalid identity token")
	ErrTokenExpired = errors.New("identity token expired")
)

// Claims extends JWT standard claims with the fields the identity
// provider embeds for this service.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int    `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
}

// IdentityService validates tokens issued by the external identity
// provider (HS256, shared secret). The core never infers identity from
// ambient state; resolved identities are passed explicitly into every
// operation.
type IdentityService struct {
	cfg *config.Config
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(cfg *config.Config) *IdentityService {
	return &IdentityService{cfg: cfg}
}

// ValidateToken parses and validates a JWT, returning its claims.
func (s *IdentityService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// IssueToken creates a token for a user. In production the identity
// provider issues tokens; this is used by dev tooling and tests.
func (s *IdentityService) IssueToken(userID int, userName string) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID:   userID,
		UserName: userName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
