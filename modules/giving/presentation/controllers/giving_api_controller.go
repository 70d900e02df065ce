package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/form"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/category"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/giving"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/services"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/httpapi"
	"github.com/dchoinie/church-membership-app-sub003/pkg/shared"
)

type GivingAPIController struct {
	app        application.Application
	importSvc  *services.GivingImportService
	categories *services.CategoryService
	records    *services.GivingService
	basePath   string
}

func NewGivingAPIController(app application.Application) application.Controller {
	return &GivingAPIController{
		app:        app,
		importSvc:  app.Service(services.GivingImportService{}).(*services.GivingImportService),
		categories: app.Service(services.CategoryService{}).(*services.CategoryService),
		records:    app.Service(services.GivingService{}).(*services.GivingService),
		basePath:   "/giving",
	}
}

func (c *GivingAPIController) Key() string {
	return c.basePath
}

func (c *GivingAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()

	// The import route manages its own transaction: a failed batch commit
	// still answers 200 with the failure in the body.
	router.HandleFunc("/import", c.Import).Methods(http.MethodPost)

	router.HandleFunc("/categories", c.ListCategories).Methods(http.MethodGet)
	router.HandleFunc("/categories", c.CreateCategory).Methods(http.MethodPost)
	router.HandleFunc("/categories/{id}", c.GetCategory).Methods(http.MethodGet)
	router.HandleFunc("/categories/{id}", c.UpdateCategory).Methods(http.MethodPut)
	router.HandleFunc("/categories/{id}", c.DeleteCategory).Methods(http.MethodDelete)

	router.HandleFunc("/records", c.ListRecords).Methods(http.MethodGet)
	router.HandleFunc("/records/{id}", c.GetRecord).Methods(http.MethodGet)
	router.HandleFunc("/records/{id}", c.DeleteRecord).Methods(http.MethodDelete)
}

// Import accepts a CSV or XLSX upload either as a multipart "file" field
// or as the raw request body. Structural problems are a 400 with
// {"error": msg}; row problems land in the 200 result body.
func (c *GivingAPIController) Import(w http.ResponseWriter, r *http.Request) {
	data, ok := httpapi.ReadImportUpload(w, r)
	if !ok {
		return
	}

	result, err := c.importSvc.ImportCSV(r.Context(), data)
	if err != nil {
		httpapi.WriteImportError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, result)
}

func (c *GivingAPIController) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := c.categories.GetAll(r.Context())
	if err != nil {
		writeGivingError(w, err)
		return
	}

	items := make([]categoryItem, 0, len(categories))
	for _, cat := range categories {
		items = append(items, toCategoryItem(cat))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, categoryListResponse{
		Total: len(items),
		Items: items,
	})
}

func (c *GivingAPIController) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseUUID(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", nil)
		return
	}

	cat, err := c.categories.GetByID(r.Context(), id)
	if err != nil {
		writeGivingError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toCategoryItem(cat))
}

func (c *GivingAPIController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	dto := &category.CreateDTO{}
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body is invalid", nil)
		return
	}
	if fields, ok := dto.Ok(r.Context()); !ok {
		_ = httpapi.WriteValidationErrors(w, fields)
		return
	}

	cat, err := c.categories.Create(r.Context(), dto)
	if err != nil {
		writeGivingError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toCategoryItem(cat))
}

func (c *GivingAPIController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseUUID(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", nil)
		return
	}

	dto := &category.UpdateDTO{}
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body is invalid", nil)
		return
	}
	if fields, ok := dto.Ok(r.Context()); !ok {
		_ = httpapi.WriteValidationErrors(w, fields)
		return
	}

	cat, err := c.categories.Update(r.Context(), id, dto)
	if err != nil {
		writeGivingError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toCategoryItem(cat))
}

func (c *GivingAPIController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseUUID(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", nil)
		return
	}

	if err := c.categories.Delete(r.Context(), id); err != nil {
		writeGivingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *GivingAPIController) ListRecords(w http.ResponseWriter, r *http.Request) {
	params, ok := parseRecordQuery(w, r)
	if !ok {
		return
	}

	records, total, err := c.records.GetPaginated(r.Context(), params)
	if err != nil {
		writeGivingError(w, err)
		return
	}

	items := make([]recordItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toRecordItem(rec))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, recordListResponse{
		Total: total,
		Items: items,
	})
}

func (c *GivingAPIController) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseUUID(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", nil)
		return
	}

	rec, err := c.records.GetByID(r.Context(), id)
	if err != nil {
		writeGivingError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toRecordItem(rec))
}

func (c *GivingAPIController) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseUUID(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", nil)
		return
	}

	if err := c.records.Delete(r.Context(), id); err != nil {
		writeGivingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryListResponse struct {
	Total int            `json:"total"`
	Items []categoryItem `json:"items"`
}

type categoryItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Position  int    `json:"position"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toCategoryItem(cat category.Category) categoryItem {
	return categoryItem{
		ID:        cat.ID().String(),
		Name:      cat.Name(),
		Slug:      cat.Slug(),
		Position:  cat.Position(),
		Active:    cat.Active(),
		CreatedAt: cat.CreatedAt().UTC().Format(time.RFC3339),
		UpdatedAt: cat.UpdatedAt().UTC().Format(time.RFC3339),
	}
}

type recordListResponse struct {
	Total int64        `json:"total"`
	Items []recordItem `json:"items"`
}

type recordItem struct {
	ID             string            `json:"id"`
	MemberID       string            `json:"member_id"`
	EnvelopeNumber *int              `json:"envelope_number"`
	GivenAt        string            `json:"given_at"`
	CheckNumber    string            `json:"check_number,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	Items          []recordItemEntry `json:"items"`
	Total          decimal.Decimal   `json:"total"`
	CreatedAt      string            `json:"created_at"`
}

type recordItemEntry struct {
	CategoryID string          `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
}

func toRecordItem(rec giving.Record) recordItem {
	entries := make([]recordItemEntry, 0, len(rec.Items()))
	for _, item := range rec.Items() {
		entries = append(entries, recordItemEntry{
			CategoryID: item.CategoryID.String(),
			Amount:     item.Amount,
		})
	}
	return recordItem{
		ID:             rec.ID().String(),
		MemberID:       rec.MemberID().String(),
		EnvelopeNumber: rec.EnvelopeNumber(),
		GivenAt:        rec.GivenAt().Format(shared.DateOnly),
		CheckNumber:    rec.CheckNumber(),
		Notes:          rec.Notes(),
		Items:          entries,
		Total:          rec.Total(),
		CreatedAt:      rec.CreatedAt().UTC().Format(time.RFC3339),
	}
}

func parseRecordQuery(w http.ResponseWriter, r *http.Request) (*giving.FindParams, bool) {
	params, err := composables.UseQuery(&giving.FindParams{}, r)
	if err != nil {
		msg := "query parameters are invalid"
		var decodeErrs form.DecodeErrors
		if errors.As(err, &decodeErrs) {
			for field := range decodeErrs {
				msg = field + " is invalid"
				break
			}
		}
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", msg, nil)
		return nil, false
	}

	// A blank ?from= decodes to the zero time; treat it as absent.
	if params.From != nil && params.From.IsZero() {
		params.From = nil
	}
	if params.To != nil && params.To.IsZero() {
		params.To = nil
	}
	return params, true
}

func writeGivingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, persistence.ErrCategoryNotFound):
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "category not found", nil)
	case errors.Is(err, persistence.ErrRecordNotFound):
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "giving record not found", nil)
	case errors.Is(err, persistence.ErrCategoryExists):
		_ = httpapi.WriteError(w, http.StatusConflict, "CONFLICT", "category name already exists", nil)
	case errors.Is(err, persistence.ErrCategoryInUse):
		_ = httpapi.WriteError(w, http.StatusConflict, "CONFLICT", "category is referenced by giving records", nil)
	default:
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}
