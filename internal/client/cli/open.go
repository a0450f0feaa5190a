package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/pagecollab/internal/client/api"
	"github.com/iudanet/pagecollab/internal/client/iocli"
	"github.com/iudanet/pagecollab/internal/client/session"
	"github.com/iudanet/pagecollab/internal/client/storage"
	"github.com/iudanet/pagecollab/internal/models"
)

func (c *Cli) runOpen(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing page. Usage: pagecollab open <page>")
	}
	pageID := args[0]

	id, err := c.identityFor(pageID)
	if err != nil {
		return err
	}

	initial := c.initialContent(ctx, pageID)
	deps := session.Deps{
		Clock:  c.clock,
		Cache:  c.pages,
		Save:   c.recordingSaver(pageID),
		Logger: c.logger,
	}
	if c.opts.Token != "" {
		deps.NewProvider = c.newProvider(pageID, id)
	}

	s, err := session.Open(ctx, session.Config{
		PageID:   pageID,
		Token:    c.opts.Token,
		Debounce: c.opts.Debounce,
		Initial:  &initial,
	}, deps)
	if err != nil {
		if errors.Is(err, storage.ErrPageLocked) {
			return fmt.Errorf("page %s is already open in another window", pageID)
		}
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer s.Close()

	labels := &labelPrinter{io: c.io, last: s.Status().Label}
	unsubscribe := s.Subscribe(labels.print)
	defer unsubscribe()

	c.io.Printf("Opened %s (%s). Type :help for commands.\n", pageID, s.Status().Label)
	c.io.Println(Render(s.Document()))

	return c.editLoop(ctx, s)
}

// labelPrinter печатает метку статуса при ее смене. Статус публикуется из
// разных горутин сессии.
type labelPrinter struct {
	io   iocli.IO
	last string
	mu   sync.Mutex
}

func (p *labelPrinter) print(st session.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st.Label == p.last {
		return
	}
	p.last = st.Label
	p.io.Printf("[%s]\n", st.Label)
}

// initialContent возвращает содержимое для пустой страницы: последний
// сохраненный на сервере снимок или заголовок с именем страницы
func (c *Cli) initialContent(ctx context.Context, pageID string) models.Document {
	fallback := models.NewDocument(models.Heading(1, pageID))
	if c.backend == nil || c.opts.Token == "" {
		return fallback
	}

	resp, err := c.backend.GetPage(ctx, pageID, c.opts.Token)
	if err != nil {
		if !errors.Is(err, api.ErrNotFound) {
			c.logger.Warn("failed to load saved page", slog.String("page_id", pageID), slog.Any("error", err))
		}
		return fallback
	}

	doc, err := models.UnmarshalDocument(resp.Content)
	if err != nil || doc.IsEmpty() {
		return fallback
	}
	return doc
}

// recordingSaver сохраняет страницу на сервере и запоминает время
// успешного сохранения в локальных метаданных
func (c *Cli) recordingSaver(pageID string) session.SaveFunc {
	var save session.SaveFunc
	if c.backend != nil {
		save = c.backend.Saver(pageID, c.opts.Token)
	} else {
		save = func(context.Context, []byte) error { return errors.New("no server configured") }
	}

	return func(ctx context.Context, content []byte) error {
		if err := save(ctx, content); err != nil {
			return err
		}
		if c.meta != nil {
			if err := c.meta.SaveLastSaved(ctx, pageID, time.Now()); err != nil {
				c.logger.Warn("failed to record save time", slog.String("page_id", pageID), slog.Any("error", err))
			}
		}
		return nil
	}
}

// editLoop читает строки до :quit или конца ввода
func (c *Cli) editLoop(ctx context.Context, s *session.Session) error {
	prompt := ""
	if c.io.Interactive() {
		prompt = "> "
	}

	for {
		line, err := c.io.ReadInput(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return c.finish(ctx, s)
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		quit, err := c.execute(ctx, s, line)
		if err != nil {
			c.io.Printf("Error: %v\n", err)
			continue
		}
		if quit {
			return nil
		}
	}
}

// finish вызывается на конце ввода: несохраненные правки сохраняются сразу
func (c *Cli) finish(ctx context.Context, s *session.Session) error {
	if !s.Dirty() {
		return nil
	}

	s.ManualSave(ctx)
	if s.Dirty() {
		return fmt.Errorf("page has unsaved changes (kept in local cache): %w", s.LastSaveError())
	}
	return nil
}
