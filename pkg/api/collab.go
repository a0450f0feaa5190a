package api

import "encoding/json"

// MessageType определяет тип сообщения протокола совместного редактирования
type MessageType string

const (
	// MsgSyncStep1 клиент -> сервер: вектор состояния клиента
	MsgSyncStep1 MessageType = "sync_step1"
	// MsgSyncStep2 сервер -> клиент: недостающие клиенту операции и вектор состояния сервера
	MsgSyncStep2 MessageType = "sync_step2"
	// MsgUpdate обновление документа (в обе стороны)
	MsgUpdate MessageType = "update"
	// MsgAck сервер подтверждает сохранение обновления клиента
	MsgAck MessageType = "ack"
	// MsgAwareness позиция курсора участника (presence)
	MsgAwareness MessageType = "awareness"
	// MsgLeave участник отключился
	MsgLeave MessageType = "leave"
	// MsgError ошибка обработки сообщения
	MsgError MessageType = "error"
)

// Message представляет одно сообщение websocket канала страницы
type Message struct {
	Awareness   *Awareness        `json:"awareness,omitempty"`    // Awareness для MsgAwareness
	StateVector map[string]uint64 `json:"state_vector,omitempty"` // StateVector для sync шагов
	Type        MessageType       `json:"type"`
	ClientID    string            `json:"client_id,omitempty"` // ClientID отправитель (для awareness/leave)
	Error       string            `json:"error,omitempty"`
	Update      json.RawMessage   `json:"update,omitempty"` // Update закодированное crdt.Update
	ID          uint64            `json:"id,omitempty"`     // ID номер обновления клиента для ack
}

// Position относительная позиция в документе (идентификатор элемента)
type Position struct {
	Replica string `json:"r"`
	Seq     uint64 `json:"s"`
}

// Awareness представляет presence участника. Никогда не сохраняется.
type Awareness struct {
	ClientID string   `json:"client_id"`
	UserID   string   `json:"user_id"`
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Anchor   Position `json:"anchor"`
	Head     Position `json:"head"`
}
