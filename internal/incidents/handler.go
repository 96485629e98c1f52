package incidents

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/bissquit/incidenthub/internal/authz"
	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/bissquit/incidenthub/internal/pkg/ctxlog"
	"github.com/bissquit/incidenthub/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Pagination limits for GET /incidents.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

var errorMappings = []httputil.ErrorMapping{
	{Error: authz.ErrForbidden, Status: http.StatusForbidden},
	{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
	{Error: ErrServiceNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidTitle, Status: http.StatusBadRequest},
	{Error: ErrInvalidDescription, Status: http.StatusBadRequest},
	{Error: ErrInvalidSeverity, Status: http.StatusBadRequest},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	{Error: ErrInvalidMessage, Status: http.StatusBadRequest},
}

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: httputil.NewValidator(),
	}
}

// RegisterRoutes registers incident routes. All of them require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Post("/", h.CreateIncident)
		r.Get("/{id}", h.GetIncident)
		r.Put("/{id}/status", h.TransitionStatus)
		r.Post("/{id}/comments", h.AddComment)
		r.Post("/{id}/comment", h.AddComment)
	})
}

// CreateIncidentRequest represents the request body for filing an incident.
type CreateIncidentRequest struct {
	Title       string                  `json:"title" validate:"required,max=255"`
	Description string                  `json:"description" validate:"required,max=10000"`
	ServiceID   string                  `json:"service_id" validate:"required"`
	Severity    domain.IncidentSeverity `json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// UpdateStatusRequest represents the request body for a status transition.
// Status is checked by the service, after existence and authorization.
type UpdateStatusRequest struct {
	Status domain.IncidentStatus `json:"status"`
}

// AddCommentRequest represents the request body for a comment.
type AddCommentRequest struct {
	Message string `json:"message" validate:"required,max=5000"`
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.GetActor(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateIncidentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.CreateIncident(r.Context(), actor, CreateIncidentInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	ctxlog.FromContext(r.Context()).Info("incident created",
		"incident_id", incident.ID,
		"service_id", incident.ServiceID,
		"severity", incident.Severity,
	)

	httputil.Success(w, http.StatusCreated, incident)
}

// ListIncidents handles GET /incidents request.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.GetActor(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.service.ListIncidents(r.Context(), actor, filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, list)
}

// GetIncident handles GET /incidents/{id} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.GetActor(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	details, err := h.service.GetIncident(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, details)
}

// TransitionStatus handles PUT /incidents/{id}/status request.
func (h *Handler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.GetActor(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	id := chi.URLParam(r, "id")
	result, err := h.service.TransitionStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	if result.SkippedInvestigation() {
		ctxlog.FromContext(r.Context()).Warn("incident resolved without investigation",
			"incident_id", id,
			"user_id", actor.UserID,
		)
		w.Header().Set("Warning", `199 - "incident resolved without passing through INVESTIGATING"`)
	}

	httputil.Success(w, http.StatusOK, result.Incident)
}

// AddComment handles POST /incidents/{id}/comments request.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := httputil.GetActor(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddCommentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	update, err := h.service.AddComment(r.Context(), actor, chi.URLParam(r, "id"), req.Message)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, update)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{Limit: DefaultListLimit}

	if v := q.Get("status"); v != "" {
		status := domain.IncidentStatus(v)
		filter.Status = &status
	}

	if v := q.Get("service"); v != "" {
		filter.ServiceNameContains = &v
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return ListFilter{}, fmt.Errorf("invalid limit: %q", v)
		}
		filter.Limit = min(limit, MaxListLimit)
	}

	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return ListFilter{}, fmt.Errorf("invalid offset: %q", v)
		}
		filter.Offset = offset
	}

	return filter, nil
}
