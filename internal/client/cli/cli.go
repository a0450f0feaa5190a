// Package cli is the terminal host of the page editor: it mounts an editor
// session for a page and turns input lines into document edits.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iudanet/pagecollab/internal/client/iocli"
	"github.com/iudanet/pagecollab/internal/client/provider"
	"github.com/iudanet/pagecollab/internal/client/session"
	"github.com/iudanet/pagecollab/internal/client/storage"
	"github.com/iudanet/pagecollab/internal/crdt"
	"github.com/iudanet/pagecollab/internal/validation"
	"github.com/iudanet/pagecollab/pkg/api"
)

// TokenEnv переменная окружения с токеном совместного редактирования
const TokenEnv = "PAGECOLLAB_TOKEN"

// TokenSources источники токена, кроме переменной окружения
type TokenSources struct {
	FromFile string
	FromArgs string
}

// Options настройки хоста
type Options struct {
	ServerURL string
	Token     string // пустой токен отключает совместное редактирование
	Name      string // имя рядом с курсором; по умолчанию из токена
	Debounce  time.Duration
}

// Backend сохраняет и загружает снимки страниц
type Backend interface {
	GetPage(ctx context.Context, pageID, token string) (*api.PageResponse, error)
	Saver(pageID, token string) func(ctx context.Context, content []byte) error
}

// Cli terminal host
type Cli struct {
	io          iocli.IO
	pages       storage.PageStorage
	meta        storage.MetadataStorage
	backend     Backend
	clock       clock.Clock
	logger      *slog.Logger
	newProvider func(pageID string, id identity) session.ProviderFactory
	opts        Options
}

// New создает хост
func New(io iocli.IO, pages storage.PageStorage, meta storage.MetadataStorage, backend Backend, opts Options, logger *slog.Logger) *Cli {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cli{
		io:      io,
		pages:   pages,
		meta:    meta,
		backend: backend,
		logger:  logger,
		opts:    opts,
	}
	c.newProvider = c.websocketProvider
	return c
}

// identity участник, от имени которого открыта страница
type identity struct {
	UserID string
	Name   string
	PageID string
}

// tokenIdentity читает claims токена без проверки подписи: подпись
// проверяет сервер, клиенту нужны только имя и страница
func tokenIdentity(token string) (identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return identity{}, fmt.Errorf("malformed collaboration token: %w", err)
	}

	str := func(key string) string {
		v, _ := claims[key].(string)
		return v
	}
	return identity{UserID: str("user_id"), Name: str("user_name"), PageID: str("page_id")}, nil
}

// identityFor проверяет, что токен выдан для pageID
func (c *Cli) identityFor(pageID string) (identity, error) {
	if c.opts.Token == "" {
		return identity{Name: c.opts.Name}, nil
	}

	id, err := tokenIdentity(c.opts.Token)
	if err != nil {
		return identity{}, err
	}
	if id.PageID != pageID {
		return identity{}, fmt.Errorf("token is issued for page %q, not %q", id.PageID, pageID)
	}
	if c.opts.Name != "" {
		id.Name = c.opts.Name
	}
	if id.Name != "" {
		if err := validation.ValidateDisplayName(id.Name); err != nil {
			return identity{}, err
		}
	}
	return id, nil
}

func (c *Cli) websocketProvider(pageID string, id identity) session.ProviderFactory {
	return func(doc *crdt.Doc) session.Provider {
		return provider.New(provider.Config{
			ServerURL: c.opts.ServerURL,
			PageID:    pageID,
			Token:     c.opts.Token,
			ClientID:  uuid.NewString(),
			UserID:    id.UserID,
			Name:      id.Name,
			Logger:    c.logger,
		}, doc)
	}
}

// ResolveToken returns the collaboration token with priority:
// 1. Environment variable PAGECOLLAB_TOKEN
// 2. File specified in sources.FromFile
// 3. Command-line parameter sources.FromArgs
// An empty token is valid and disables collaboration.
func ResolveToken(sources TokenSources) (string, error) {
	// Priority 1: Environment variable
	if envToken := os.Getenv(TokenEnv); envToken != "" {
		return strings.TrimSpace(envToken), nil
	}

	// Priority 2: File
	if sources.FromFile != "" {
		content, err := os.ReadFile(sources.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read token file: %w", err)
		}
		token := strings.TrimSpace(string(content))
		if token == "" {
			return "", fmt.Errorf("token file is empty")
		}
		return token, nil
	}

	// Priority 3: CLI parameter
	return strings.TrimSpace(sources.FromArgs), nil
}

func PrintUsage() {
	fmt.Println("pagecollab client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pagecollab [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version            Show version information")
	fmt.Println("  --server URL         Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH            Path to local page cache (default: pagecollab-client.db)")
	fmt.Println("  --token TOKEN        Collaboration token (not recommended, use env var or file)")
	fmt.Println("  --token-file PATH    Path to file containing the collaboration token")
	fmt.Println("  --name NAME          Name shown next to your cursor")
	fmt.Println("  --debounce DURATION  Autosave delay after the last edit (default: 2s)")
	fmt.Println()
	fmt.Println("Token Priority (highest to lowest):")
	fmt.Println("  1. PAGECOLLAB_TOKEN environment variable")
	fmt.Println("  2. --token-file (file path)")
	fmt.Println("  3. --token (command line)")
	fmt.Println("  Without a token pages are edited locally and saved to the server only.")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  open <page>          Open a page for editing")
	fmt.Println("  show <page>          Print a page from the local cache")
	fmt.Println("  pages                List cached pages")
	fmt.Println()
	fmt.Println("Editing (inside open):")
	fmt.Println(editorHelp)
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  export PAGECOLLAB_TOKEN=$(pagecollab-server token -user u1 -name Ann -page roadmap | jq -r .token)")
	fmt.Println("  pagecollab open roadmap")
	fmt.Println("  printf 'First idea\\n' | pagecollab open roadmap")
	fmt.Println("  pagecollab show roadmap")
}
