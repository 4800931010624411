// Package auth issues and validates the bearer tokens the HTTP layer uses
// to resolve the acting user. The scheduling core itself never inspects
// tokens; it receives an explicit Actor.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medoffice/scheduler-api/internal/model"
)

type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	OfficeID string `json:"office_id,omitempty"`
	DoctorID string `json:"doctor_id,omitempty"`
}

type JWTService struct {
	secret []byte
	expiry time.Duration
}

func NewJWTService(secret string, expiryHours int) *JWTService {
	if expiryHours <= 0 {
		expiryHours = 24
	}
	return &JWTService{
		secret: []byte(secret),
		expiry: time.Duration(expiryHours) * time.Hour,
	}
}

// GenerateToken signs a token carrying the actor's identity and role.
func (s *JWTService) GenerateToken(actor model.Actor) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		Role: string(actor.Role),
	}
	if actor.OfficeID != uuid.Nil {
		claims.OfficeID = actor.OfficeID.String()
	}
	if actor.DoctorID != nil {
		claims.DoctorID = actor.DoctorID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses a token and reconstructs the acting user.
func (s *JWTService) ValidateToken(tokenString string) (model.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return model.Actor{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return model.Actor{}, fmt.Errorf("invalid token claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Actor{}, fmt.Errorf("invalid subject: %w", err)
	}

	actor := model.Actor{
		UserID: userID,
		Role:   model.ActorRole(claims.Role),
	}
	if claims.OfficeID != "" {
		if officeID, err := uuid.Parse(claims.OfficeID); err == nil {
			actor.OfficeID = officeID
		}
	}
	if claims.DoctorID != "" {
		doctorID, err := uuid.Parse(claims.DoctorID)
		if err != nil {
			return model.Actor{}, fmt.Errorf("invalid doctor claim: %w", err)
		}
		actor.DoctorID = &doctorID
	}
	return actor, nil
}
