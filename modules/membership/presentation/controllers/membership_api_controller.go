package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/household"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/member"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/services"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/httpapi"
	"github.com/dchoinie/church-membership-app-sub003/pkg/shared"
)

type MembershipAPIController struct {
	app        application.Application
	importSvc  *services.MemberImportService
	members    *services.MemberService
	households *services.HouseholdService
	basePath   string
}

func NewMembershipAPIController(app application.Application) application.Controller {
	return &MembershipAPIController{
		app:        app,
		importSvc:  app.Service(services.MemberImportService{}).(*services.MemberImportService),
		members:    app.Service(services.MemberService{}).(*services.MemberService),
		households: app.Service(services.HouseholdService{}).(*services.HouseholdService),
		basePath:   "/members",
	}
}

func (c *MembershipAPIController) Key() string {
	return c.basePath
}

func (c *MembershipAPIController) Register(r *mux.Router) {
	members := r.PathPrefix("/members").Subrouter()

	// The import route manages its own transaction: a failed batch commit
	// still answers 200 with the failure in the body.
	members.HandleFunc("/import", c.Import).Methods(http.MethodPost)

	members.HandleFunc("", c.ListMembers).Methods(http.MethodGet)
	members.HandleFunc("", c.CreateMember).Methods(http.MethodPost)
	members.HandleFunc("/{id}", c.GetMember).Methods(http.MethodGet)
	members.HandleFunc("/{id}", c.UpdateMember).Methods(http.MethodPut)
	members.HandleFunc("/{id}", c.DeleteMember).Methods(http.MethodDelete)

	households := r.PathPrefix("/households").Subrouter()
	households.HandleFunc("", c.ListHouseholds).Methods(http.MethodGet)
	households.HandleFunc("/{id}", c.GetHousehold).Methods(http.MethodGet)
	households.HandleFunc("/{id}/members", c.ListHouseholdMembers).Methods(http.MethodGet)
	households.HandleFunc("/{id}/recompute-head", c.RecomputeHead).Methods(http.MethodPost)
}

// Import accepts a CSV or XLSX roster upload either as a multipart "file"
// field or as the raw request body. Structural problems are a 400 with
// {"error": msg}; row problems land in the 200 result body.
func (c *MembershipAPIController) Import(w http.ResponseWriter, r *http.Request) {
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

func (c *MembershipAPIController) ListMembers(w http.ResponseWriter, r *http.Request) {
	params, ok := parseMemberQuery(w, r)
	if !ok {
		return
	}

	members, total, err := c.members.GetPaginated(r.Context(), params)
	if err != nil {
		writeMembershipError(w, err)
		return
	}

	items := make([]memberItem, 0, len(members))
	for _, m := range members {
		items = append(items, toMemberItem(m))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, memberListResponse{
		Total: total,
		Items: items,
	})
}

func (c *MembershipAPIController) GetMember(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseUUID(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", nil)
		return
	}

	m, err := c.members.GetByID(r.Context(), id)
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toMemberItem(m))
}

func (c *MembershipAPIController) CreateMember(w http.ResponseWriter, r *http.Request) {
	dto := &member.CreateDTO{}
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body is invalid", nil)
		return
	}
	if fields, ok := dto.Ok(r.Context()); !ok {
		_ = httpapi.WriteValidationErrors(w, fields)
		return
	}

	m, err := c.members.Create(r.Context(), dto)
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, toMemberItem(m))
}

func (c *MembershipAPIController) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseUUID(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", nil)
		return
	}

	dto := &member.UpdateDTO{}
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "request body is invalid", nil)
		return
	}
	if fields, ok := dto.Ok(r.Context()); !ok {
		_ = httpapi.WriteValidationErrors(w, fields)
		return
	}

	m, err := c.members.Update(r.Context(), id, dto)
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toMemberItem(m))
}

func (c *MembershipAPIController) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseUUID(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", nil)
		return
	}

	if err := c.members.Delete(r.Context(), id); err != nil {
		writeMembershipError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *MembershipAPIController) ListHouseholds(w http.ResponseWriter, r *http.Request) {
	households, err := c.households.GetAll(r.Context())
	if err != nil {
		writeMembershipError(w, err)
		return
	}

	items := make([]householdItem, 0, len(households))
	for _, h := range households {
		items = append(items, toHouseholdItem(h))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, householdListResponse{
		Total: len(items),
		Items: items,
	})
}

func (c *MembershipAPIController) GetHousehold(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseUUID(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", nil)
		return
	}

	h, err := c.households.GetByID(r.Context(), id)
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, toHouseholdItem(h))
}

func (c *MembershipAPIController) ListHouseholdMembers(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseUUID(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", nil)
		return
	}

	members, err := c.households.GetMembers(r.Context(), id)
	if err != nil {
		writeMembershipError(w, err)
		return
	}

	items := make([]memberItem, 0, len(members))
	for _, m := range members {
		items = append(items, toMemberItem(m))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, memberListResponse{
		Total: int64(len(items)),
		Items: items,
	})
}

// RecomputeHead reruns head-of-household selection for one household.
// ?policy=sequence|demographics, defaulting to sequence.
func (c *MembershipAPIController) RecomputeHead(w http.ResponseWriter, r *http.Request) {
	id, err := shared.ParseUUID(r, "id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id is invalid", nil)
		return
	}

	policy, err := member.ParseHeadPolicy(r.URL.Query().Get("policy"))
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", "policy is invalid", nil)
		return
	}

	head, err := c.households.RecomputeHead(r.Context(), id, policy)
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"household_id": id.String(),
		"policy":       string(policy),
		"head":         toMemberItem(head),
	})
}

type memberListResponse struct {
	Total int64        `json:"total"`
	Items []memberItem `json:"items"`
}

type memberItem struct {
	ID             string `json:"id"`
	HouseholdID    string `json:"household_id"`
	EnvelopeNumber *int   `json:"envelope_number"`
	FirstName      string `json:"first_name"`
	MiddleName     string `json:"middle_name,omitempty"`
	LastName       string `json:"last_name"`
	Email          string `json:"email,omitempty"`
	Sex            string `json:"sex,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	Sequence       string `json:"sequence,omitempty"`
	Participation  string `json:"participation,omitempty"`
	ReceivedBy     string `json:"received_by,omitempty"`
	ReceivedDate   string `json:"received_date,omitempty"`
	RemovedBy      string `json:"removed_by,omitempty"`
	RemovedDate    string `json:"removed_date,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func toMemberItem(m member.Member) memberItem {
	return memberItem{
		ID:             m.ID().String(),
		HouseholdID:    m.HouseholdID().String(),
		EnvelopeNumber: m.EnvelopeNumber(),
		FirstName:      m.FirstName(),
		MiddleName:     m.MiddleName(),
		LastName:       m.LastName(),
		Email:          m.Email(),
		Sex:            string(m.Sex()),
		DateOfBirth:    formatDatePtr(m.DateOfBirth()),
		Sequence:       string(m.Sequence()),
		Participation:  string(m.Participation()),
		ReceivedBy:     m.ReceivedBy(),
		ReceivedDate:   formatDatePtr(m.ReceivedDate()),
		RemovedBy:      m.RemovedBy(),
		RemovedDate:    formatDatePtr(m.RemovedDate()),
		CreatedAt:      m.CreatedAt().UTC().Format(time.RFC3339),
		UpdatedAt:      m.UpdatedAt().UTC().Format(time.RFC3339),
	}
}

type householdListResponse struct {
	Total int             `json:"total"`
	Items []householdItem `json:"items"`
}

type householdItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	HeadID    *string `json:"head_member_id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toHouseholdItem(h household.Household) householdItem {
	var headID *string
	if id := h.HeadID(); id != nil {
		s := id.String()
		headID = &s
	}
	return householdItem{
		ID:        h.ID().String(),
		Name:      h.Name(),
		HeadID:    headID,
		CreatedAt: h.CreatedAt().UTC().Format(time.RFC3339),
		UpdatedAt: h.UpdatedAt().UTC().Format(time.RFC3339),
	}
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(shared.DateOnly)
}

func parseMemberQuery(w http.ResponseWriter, r *http.Request) (*member.FindParams, bool) {
	params, err := composables.UseQuery(&member.FindParams{}, r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", "query parameters are invalid", nil)
		return nil, false
	}
	params.Q = strings.TrimSpace(params.Q)
	return params, true
}

func writeMembershipError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, persistence.ErrMemberNotFound):
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "member not found", nil)
	case errors.Is(err, persistence.ErrHouseholdNotFound):
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "household not found", nil)
	case errors.Is(err, persistence.ErrEmailExists):
		_ = httpapi.WriteError(w, http.StatusConflict, "CONFLICT", "email already exists", nil)
	default:
		_ = httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}
