package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleOwner      = "owner"
	RoleSuperadmin = "superadmin"
)

// JWTService mints HS256 tokens that the router's jwtauth verifier accepts.
// Owner tokens normally come from the app's identity provider; this is for
// operators and tests.
type JWTService struct {
	secretKey []byte
	ttl       time.Duration
}

func NewJWTService(secretKey string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTService{secretKey: []byte(secretKey), ttl: ttl}
}

func (s *JWTService) GenerateToken(ownerID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": ownerID,
		"role":    role,
		"exp":     now.Add(s.ttl).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ParseToken validates a token and returns its owner id and role.
func (s *JWTService) ParseToken(tokenString string) (ownerID, role string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid token claims")
	}
	ownerID, _ = claims["user_id"].(string)
	role, _ = claims["role"].(string)
	if ownerID == "" {
		return "", "", fmt.Errorf("token has no user_id")
	}
	return ownerID, role, nil
}
