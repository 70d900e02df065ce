package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/dchoinie/church-membership-app-sub003/modules/core/services"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/httpapi"
)

// ImportHistoryController serves the post-commit import audit trail
// written by the outbox consumer.
type ImportHistoryController struct {
	app    application.Application
	events *services.ImportEventService
}

func NewImportHistoryController(app application.Application) application.Controller {
	return &ImportHistoryController{
		app:    app,
		events: app.Service(services.ImportEventService{}).(*services.ImportEventService),
	}
}

func (c *ImportHistoryController) Key() string {
	return "/imports"
}

func (c *ImportHistoryController) Register(r *mux.Router) {
	imports := r.PathPrefix("/imports").Subrouter()
	imports.HandleFunc("/history", c.List).Methods(http.MethodGet)
}

func (c *ImportHistoryController) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", "limit is invalid", nil)
			return
		}
		limit = n
	}

	events, err := c.events.List(r.Context(), limit)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
		return
	}

	items := make([]importHistoryItem, 0, len(events))
	for _, e := range events {
		items = append(items, importHistoryItem{
			ID:         e.ID().String(),
			EventID:    e.EventID().String(),
			Entity:     e.Entity(),
			Success:    e.SuccessCount(),
			Failed:     e.FailedCount(),
			OccurredAt: e.OccurredAt().UTC().Format(time.RFC3339),
		})
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, importHistoryResponse{
		Total: len(items),
		Items: items,
	})
}

type importHistoryResponse struct {
	Total int                 `json:"total"`
	Items []importHistoryItem `json:"items"`
}

type importHistoryItem struct {
	ID         string `json:"id"`
	EventID    string `json:"event_id"`
	Entity     string `json:"entity"`
	Success    int    `json:"success"`
	Failed     int    `json:"failed"`
	OccurredAt string `json:"occurred_at"`
}
