package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/pagecollab/internal/models"
	"github.com/iudanet/pagecollab/internal/server/storage"
	"github.com/iudanet/pagecollab/internal/validation"
	"github.com/iudanet/pagecollab/pkg/api"
)

// maxPageSize ограничивает размер сохраняемого документа
const maxPageSize = 8 << 20

//go:generate moq -out pagestorage_mock.go . PageStorage

// PageStorage определяет интерфейс хранения снимков страниц
type PageStorage interface {
	SavePage(ctx context.Context, page *models.Page) (*models.Page, error)
	GetPage(ctx context.Context, id string) (*models.Page, error)
}

// PagesHandler обрабатывает сохранение и загрузку снимков страниц
type PagesHandler struct {
	logger  *slog.Logger
	storage PageStorage
}

// NewPagesHandler создает новый handler страниц
func NewPagesHandler(logger *slog.Logger, storage PageStorage) *PagesHandler {
	return &PagesHandler{
		logger:  logger,
		storage: storage,
	}
}

// GetPage обрабатывает GET /api/v1/pages/{id}
func (h *PagesHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pageID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	page, err := h.storage.GetPage(ctx, pageID)
	if err != nil {
		if errors.Is(err, storage.ErrPageNotFound) {
			sendError(h.logger, w, "page not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get page", slog.String("page_id", pageID), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", `"`+page.ETag+`"`)
	sendJSON(h.logger, w, toPageResponse(page), http.StatusOK)
}

// SavePage обрабатывает PUT /api/v1/pages/{id}
// Сохраняет сериализованный документ, присланный callback'ом сохранения редактора
func (h *PagesHandler) SavePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pageID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	claims, _ := GetClaims(ctx)

	var req api.SavePageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPageSize)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode save request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Проверяем, что содержимое является документом
	if _, err := models.UnmarshalDocument(req.Content); err != nil {
		sendError(h.logger, w, "content is not a page document", http.StatusBadRequest)
		return
	}

	page, err := h.storage.SavePage(ctx, &models.Page{
		ID:        pageID,
		Content:   req.Content,
		UpdatedBy: claims.UserID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to save page", slog.String("page_id", pageID), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "page saved",
		slog.String("page_id", pageID),
		slog.String("user_id", claims.UserID),
		slog.Int64("version", page.Version))

	w.Header().Set("ETag", `"`+page.ETag+`"`)
	sendJSON(h.logger, w, toPageResponse(page), http.StatusOK)
}

// authorize проверяет идентификатор страницы и права токена на нее
func (h *PagesHandler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	pageID := r.PathValue("id")
	if err := validation.ValidatePageID(pageID); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return "", false
	}

	claims, ok := GetClaims(r.Context())
	if !ok {
		h.logger.Error("claims not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	if err := claims.Authorize(pageID); err != nil {
		h.logger.Warn("token page mismatch",
			slog.String("page_id", pageID),
			slog.String("token_page_id", claims.PageID))
		sendError(h.logger, w, err.Error(), http.StatusForbidden)
		return "", false
	}

	return pageID, true
}

func toPageResponse(page *models.Page) api.PageResponse {
	return api.PageResponse{
		ID:        page.ID,
		Content:   json.RawMessage(page.Content),
		ETag:      page.ETag,
		Version:   page.Version,
		UpdatedBy: page.UpdatedBy,
		UpdatedAt: page.UpdatedAt,
	}
}
