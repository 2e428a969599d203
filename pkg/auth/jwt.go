package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	jwtSecret     []byte
	jwtExpiration = 7 * 24 * time.Hour
)

type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func InitJWT(secret string, expiration time.Duration) {
	jwtSecret = []byte(secret)
	if expiration > 0 {
		jwtExpiration = expiration
	}
}

func GenerateJWT(userID, sessionID string) (string, time.Time, error) {
	expiresAt := time.Now().Add(jwtExpiration)

	claims := Claims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func ValidateJWT(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

func RefreshJWT(tokenStr string) (string, time.Time, error) {
	claims, err := ValidateJWT(tokenStr)
	if err != nil {
		return "", time.Time{}, err
	}

	return GenerateJWT(claims.UserID, claims.SessionID)
}
