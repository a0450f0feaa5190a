package session

import (
	"context"
	"log/slog"

	"github.com/iudanet/pagecollab/internal/models"
)

// resetTimerLocked (пере)запускает таймер автосохранения. Caller holds s.mu.
func (s *Session) resetTimerLocked() {
	s.stopTimerLocked()

	gen := s.timerGen
	s.timer = s.clock.AfterFunc(s.cfg.Debounce, func() {
		s.onTimer(gen)
	})
}

// stopTimerLocked. Caller holds s.mu.
func (s *Session) stopTimerLocked() {
	// Новое поколение отменяет и таймер, который уже сработал, но еще не
	// успел захватить мьютекс
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// onTimer проверяет поколение и запускает сохранение под одной блокировкой:
// ManualSave, успевший между ними, иначе получил бы второе сохранение в очередь
func (s *Session) onTimer(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.timerGen || !s.dirty {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.requestSaveLocked("autosave")
}

// ManualSave cancels a pending autosave and persists the document now, even
// if it is clean. It waits until the save completes or ctx is done; the
// outcome is reported through Status and LastSaveError.
func (s *Session) ManualSave(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.mu.Unlock()

	done := s.requestSave("manual")
	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// requestSave starts a save or, if one is in flight, schedules one more
// after it. The returned channel is closed when that save finishes.
func (s *Session) requestSave(reason string) <-chan struct{} {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	return s.requestSaveLocked(reason)
}

// requestSaveLocked. Caller holds s.mu; it is released before return.
func (s *Session) requestSaveLocked(reason string) <-chan struct{} {
	if s.saving {
		if s.queuedDone == nil {
			s.queuedDone = make(chan struct{})
		}
		done := s.queuedDone
		s.mu.Unlock()
		return done
	}

	done := make(chan struct{})
	s.startSaveLocked(reason, done)
	s.publishLocked()
	return done
}

// startSaveLocked. Caller holds s.mu.
func (s *Session) startSaveLocked(reason string, done chan struct{}) {
	s.saving = true
	s.wg.Add(1)
	go s.runSave(reason, s.editGen, done)
}

func (s *Session) runSave(reason string, gen uint64, done chan struct{}) {
	defer s.wg.Done()

	content, err := models.MarshalDocument(s.doc.Document())
	if err == nil {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SaveTimeout)
		err = s.save(ctx, content)
		cancel()
	}

	s.mu.Lock()
	s.saving = false
	if err != nil {
		// Страница остается грязной: следующая правка или ручное сохранение повторят попытку
		s.lastSaveErr = err
	} else {
		s.lastSaveErr = nil
		if s.editGen == gen {
			s.dirty = false
		}
	}

	if next := s.queuedDone; next != nil {
		s.queuedDone = nil
		if s.closed {
			close(next)
		} else {
			s.startSaveLocked("queued", next)
		}
	}
	s.publishLocked()

	if err != nil {
		s.logger.Error("failed to save page",
			slog.String("reason", reason),
			slog.Any("error", err))
	} else {
		s.logger.Debug("page saved", slog.String("reason", reason), slog.Int("bytes", len(content)))
	}
	close(done)
}
