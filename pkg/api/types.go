package api

import (
	"encoding/json"
	"time"
)

// SavePageRequest представляет запрос на сохранение снимка страницы
type SavePageRequest struct {
	Content json.RawMessage `json:"content"` // сериализованный документ (JSON дерево)
}

// PageResponse представляет сохраненный снимок страницы
type PageResponse struct {
	UpdatedAt time.Time       `json:"updated_at"`
	ID        string          `json:"id"`
	UpdatedBy string          `json:"updated_by"`
	ETag      string          `json:"etag"`    // blake2b хеш содержимого (hex)
	Content   json.RawMessage `json:"content"` // сериализованный документ
	Version   int64           `json:"version"`
}

// TokenResponse представляет выданный токен совместного редактирования
type TokenResponse struct {
	Token     string `json:"token"`      // JWT collab token
	PageID    string `json:"page_id"`    // страница, для которой выдан токен
	ExpiresIn int64  `json:"expires_in"` // время жизни токена в секундах
}

// HealthResponse представляет ответ health check endpoint
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Rooms   int    `json:"rooms"` // количество активных комнат
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
