package models

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Page представляет сохраненный снимок страницы базы знаний.
// Снимок записывается callback'ом сохранения редактора (autosave / manual save).
type Page struct {
	UpdatedAt   time.Time `json:"updated_at"`   // UpdatedAt время последнего сохранения
	ID          string    `json:"id"`           // ID идентификатор страницы
	WorkspaceID string    `json:"workspace_id"` // WorkspaceID рабочее пространство-владелец
	UpdatedBy   string    `json:"updated_by"`   // UpdatedBy пользователь, выполнивший сохранение
	ETag        string    `json:"etag"`         // ETag blake2b хеш содержимого
	Content     []byte    `json:"content"`      // Content сериализованный документ (JSON дерево)
	Version     int64     `json:"version"`      // Version монотонно растущая версия снимка
}

// UpdateEntry представляет одно CRDT обновление страницы в журнале сервера.
// Журнал используется для начальной синхронизации новых участников.
type UpdateEntry struct {
	CreatedAt time.Time `json:"created_at"` // CreatedAt время получения сервером
	PageID    string    `json:"page_id"`    // PageID идентификатор страницы
	ClientID  string    `json:"client_id"`  // ClientID соединение, приславшее обновление
	Payload   []byte    `json:"payload"`    // Payload закодированное crdt.Update
	Seq       int64     `json:"seq"`        // Seq порядковый номер в журнале страницы
}

// ContentDigest returns the hex-encoded blake2b-256 digest of a serialized
// document. It is used as the page ETag.
func ContentDigest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}
