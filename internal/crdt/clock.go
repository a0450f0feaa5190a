package crdt

import (
	"sync"

	"github.com/google/uuid"
)

// LamportClock представляет логические часы Лампорта для упорядочивания событий
// между репликами документа без синхронизации физического времени.
// Кроме счетчика часы выдают последовательные номера операций реплики,
// из которых строятся идентификаторы ID.
type LamportClock struct {
	nodeID  string     // идентификатор реплики
	counter int64      // монотонно возрастающий счетчик Лампорта
	seq     uint64     // номер последней локальной операции
	mu      sync.Mutex // мьютекс для потокобезопасности
}

// NewLamportClock создает часы с уникальным идентификатором реплики (UUID).
func NewLamportClock() *LamportClock {
	return &LamportClock{
		nodeID: uuid.New().String(),
	}
}

// NewLamportClockWithNodeID создает часы с заданным идентификатором реплики.
// Используется для тестирования и на сервере, где реплика известна заранее.
func NewLamportClockWithNodeID(nodeID string) *LamportClock {
	return &LamportClock{
		nodeID: nodeID,
	}
}

// Next выдает идентификатор и timestamp для новой локальной операции.
func (lc *LamportClock) Next() (ID, int64) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.counter++
	lc.seq++
	return ID{Replica: lc.nodeID, Seq: lc.seq}, lc.counter
}

// Update обновляет счетчик на основе полученного удаленного timestamp.
// counter = max(local_counter, remote_timestamp) + 1
func (lc *LamportClock) Update(remoteTimestamp int64) int64 {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if remoteTimestamp > lc.counter {
		lc.counter = remoteTimestamp
	}
	lc.counter++

	return lc.counter
}

// Observe учитывает операцию собственной реплики, пришедшую из кэша или
// от сервера, чтобы новые операции не переиспользовали ее номер.
func (lc *LamportClock) Observe(id ID) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if id.Replica == lc.nodeID && id.Seq > lc.seq {
		lc.seq = id.Seq
	}
}

// GetNodeID возвращает идентификатор реплики.
func (lc *LamportClock) GetNodeID() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	return lc.nodeID
}
