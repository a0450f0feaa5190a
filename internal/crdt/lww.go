package crdt

// Register представляет Last-Write-Wins регистр одного атрибута элемента
// (тип блока, уровень заголовка, inline-разметка).
type Register struct {
	Value   string // пустое значение означает снятый атрибут
	Replica string // реплика, записавшая значение
	Stamp   int64  // Lamport timestamp записи
}

// IsNewerThan сравнивает две записи по правилу LWW:
// 1. Сначала сравнивается Stamp (больший выигрывает)
// 2. При равных Stamp сравнивается Replica (лексикографически)
func (r Register) IsNewerThan(other Register) bool {
	if r.Stamp > other.Stamp {
		return true
	}
	if r.Stamp < other.Stamp {
		return false
	}
	// Timestamps равны - сравниваем реплики для детерминизма
	return r.Replica > other.Replica
}

// AttrSet хранит LWW регистры атрибутов одного элемента документа.
// Слияние коммутативно и идемпотентно.
type AttrSet struct {
	regs map[string]Register
}

// Set записывает значение, если оно новее текущего.
// Возвращает true, если значение было обновлено.
func (s *AttrSet) Set(key string, reg Register) bool {
	if s.regs == nil {
		s.regs = make(map[string]Register)
	}

	existing, exists := s.regs[key]
	if exists && !reg.IsNewerThan(existing) {
		return false
	}

	s.regs[key] = reg
	return true
}

// Get возвращает значение атрибута или пустую строку.
func (s *AttrSet) Get(key string) string {
	return s.regs[key].Value
}

// Values возвращает все установленные (непустые) атрибуты.
func (s *AttrSet) Values() map[string]string {
	result := make(map[string]string, len(s.regs))
	for key, reg := range s.regs {
		if reg.Value != "" {
			result[key] = reg.Value
		}
	}
	return result
}
