package board

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// время жизни сессионного токена доски
const sessionTTL = 12 * time.Hour

var jwtSecret []byte

// InitJWT задает секрет для сессионных токенов доски
func InitJWT(secret string) {
	jwtSecret = []byte(secret)
}

// GenerateSessionToken выдает токен зрителя доски
func GenerateSessionToken(viewerID string) (string, error) {
	if len(jwtSecret) == 0 {
		return "", fmt.Errorf("секрет сессии не настроен")
	}

	claims := jwt.MapClaims{
		"viewer": viewerID,
		"exp":    time.Now().Add(sessionTTL).Unix(),
		"iat":    time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseSessionToken проверяет токен и возвращает id зрителя
func ParseSessionToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("неверный токен")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("неверные клеймы токена")
	}
	viewer, _ := claims["viewer"].(string)
	if viewer == "" {
		return "", fmt.Errorf("токен без id зрителя")
	}
	return viewer, nil
}
