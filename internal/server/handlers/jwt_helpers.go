package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "pagecollab"

// ErrPageMismatch возвращается, когда токен выдан для другой страницы
var ErrPageMismatch = errors.New("token is not valid for this page")

// CollabClaims представляет JWT claims учетных данных совместного редактирования.
// Токен выдается на одну страницу.
type CollabClaims struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	PageID   string `json:"page_id"`
	jwt.RegisteredClaims
}

// JWTConfig содержит конфигурацию для JWT
type JWTConfig struct {
	Secret   []byte
	TokenTTL time.Duration
}

// GenerateCollabToken создает токен совместного редактирования страницы.
// Возвращает токен и время жизни в секундах
func GenerateCollabToken(cfg JWTConfig, userID, userName, pageID string) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(cfg.TokenTTL)

	claims := CollabClaims{
		UserID:   userID,
		UserName: userName,
		PageID:   pageID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, int64(cfg.TokenTTL.Seconds()), nil
}

// ValidateCollabToken валидирует и парсит токен совместного редактирования
func ValidateCollabToken(cfg JWTConfig, tokenString string) (*CollabClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CollabClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*CollabClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.UserID == "" || claims.PageID == "" {
		return nil, fmt.Errorf("token is missing user or page")
	}

	return claims, nil
}

// Authorize проверяет, что claims разрешают доступ к странице pageID
func (c *CollabClaims) Authorize(pageID string) error {
	if c.PageID != pageID {
		return ErrPageMismatch
	}
	return nil
}
