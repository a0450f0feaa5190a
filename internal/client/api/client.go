package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iudanet/pagecollab/internal/models"
	"github.com/iudanet/pagecollab/pkg/api"
)

// ErrNotFound is returned when the server has no snapshot for the page
var ErrNotFound = errors.New("page not found")

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// BaseURL returns the server URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetPage загружает сохраненный снимок страницы
// Returns ErrNotFound if the page was never saved
func (c *Client) GetPage(ctx context.Context, pageID, token string) (*api.PageResponse, error) {
	var resp api.PageResponse
	err := c.doRequest(ctx, http.MethodGet, pagePath(pageID), token, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("get page request failed: %w", err)
	}
	return &resp, nil
}

// SavePage сохраняет сериализованный документ страницы
func (c *Client) SavePage(ctx context.Context, pageID, token string, content []byte) (*api.PageResponse, error) {
	var resp api.PageResponse
	req := api.SavePageRequest{Content: json.RawMessage(content)}
	err := c.doRequest(ctx, http.MethodPut, pagePath(pageID), token, req, &resp)
	if err != nil {
		return nil, fmt.Errorf("save page request failed: %w", err)
	}
	return &resp, nil
}

// Saver returns the persistence callback used by the editor session.
// The callback fails if the server acknowledged different content.
func (c *Client) Saver(pageID, token string) func(ctx context.Context, content []byte) error {
	return func(ctx context.Context, content []byte) error {
		resp, err := c.SavePage(ctx, pageID, token, content)
		if err != nil {
			return err
		}
		if expected := models.ContentDigest(content); resp.ETag != expected {
			return fmt.Errorf("etag mismatch for page %s: got %s, want %s", pageID, resp.ETag, expected)
		}
		return nil
	}
}

func pagePath(pageID string) string {
	return "/api/v1/pages/" + url.PathEscape(pageID)
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
