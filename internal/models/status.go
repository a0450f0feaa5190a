package models

// ConnectionStatus представляет состояние соединения с сервером совместного редактирования
type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
)

// SyncStatus описывает синхронизацию документа с сервером.
// Synced=true только когда начальная синхронизация завершена и нет
// неподтвержденных изменений.
type SyncStatus struct {
	Synced  bool `json:"synced"`
	Pending int  `json:"pending"` // количество неподтвержденных сервером обновлений
}

// Syncing reports whether changes are still in flight.
func (s SyncStatus) Syncing() bool {
	return !s.Synced
}

// SaveState отражает, сохранена ли последняя локальная правка в бэкенд
type SaveState string

const (
	SaveStateSaved   SaveState = "saved"
	SaveStateSaving  SaveState = "saving"
	SaveStateUnsaved SaveState = "unsaved"
)

// Cursor представляет позицию курсора участника (presence).
// Никогда не сохраняется ни в кэш, ни в бэкенд.
type Cursor struct {
	ClientID string `json:"client_id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Anchor   int    `json:"anchor"`
	Head     int    `json:"head"`
}
