package activity

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/platform/httpx"
	"github.com/registra-gov/registra/internal/shared"
)

// Handler manages activity trail endpoints. No service layer: listing is
// read-only and the module guard is the only rule.
type Handler struct {
	logger *slog.Logger
	repo   Repository
	guard  authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo Repository, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, guard: guard}
}

// MountRoutes registers activity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission("reports.view"))
		r.Get("/", h.list)
	})
}

type listResponse struct {
	Data       []Entry           `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := httpx.PageParams(r)
	req := ListEntriesRequest{Limit: perPage, Offset: (page - 1) * perPage}

	q := r.URL.Query()
	if actor := q.Get("actor_id"); actor != "" {
		req.ActorID = &actor
	}
	if module := q.Get("module"); module != "" {
		req.Module = &module
	}
	if action := q.Get("action"); action != "" {
		req.Action = &action
	}
	if raw := q.Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			req.From = &t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			req.To = &t
		}
	}

	entries, total, err := h.repo.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list activity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: entries, Pagination: shared.NewPagination(page, perPage, total)})
}
