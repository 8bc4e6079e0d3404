// File: internal/auth/jwt.go
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lexserve/go-lexserve/internal/domain"
)

// GenerateJWT signs a token carrying the participant's id and role. The
// secret is always passed in; there is no package-level key.
func GenerateJWT(identity domain.Identity, secretKey []byte) (string, error) {
	if !identity.IsValid() {
		return "", errors.New("identity must carry a non-zero id and a known role")
	}

	claims := jwt.MapClaims{
		"sub":  identity.ID,
		"role": identity.Role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken checks the signature and returns the embedded identity.
func ValidateToken(tokenString string, secretKey []byte) (domain.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	})

	if err != nil {
		return domain.Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return domain.Identity{}, errors.New("invalid token")
	}

	idFloat, ok := claims["sub"].(float64)
	if !ok {
		return domain.Identity{}, errors.New("invalid token")
	}
	role, ok := claims["role"].(string)
	if !ok {
		return domain.Identity{}, errors.New("invalid token")
	}

	identity := domain.Identity{ID: uint(idFloat), Role: role}
	if !identity.IsValid() {
		return domain.Identity{}, errors.New("invalid token")
	}
	return identity, nil
}
