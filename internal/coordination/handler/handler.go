// Package handler exposes coordination operations over HTTP. Responses are
// built from sanitized status views only; identity fields have no path into
// this package.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veil/internal/coordination"
	"veil/internal/platform/middleware"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Service

// Service defines the coordination operations the transport needs.
type Service interface {
	Submit(ctx context.Context, in coordination.SubmitInput) (coordination.Coordination, error)
	GetStatus(ctx context.Context, coordinationID id.CoordinationID) (coordination.StatusView, error)
	MatchProvider(ctx context.Context, coordinationID id.CoordinationID) (coordination.StatusView, error)
	AdvancePhase(ctx context.Context, coordinationID id.CoordinationID, phase id.Phase) (coordination.StatusView, error)
	Cancel(ctx context.Context, coordinationID id.CoordinationID) (coordination.StatusView, error)
	Complete(ctx context.Context, coordinationID id.CoordinationID) (coordination.StatusView, error)
	Resume(ctx context.Context, coordinationID id.CoordinationID) (coordination.StatusView, error)
	TriggerEmergency(ctx context.Context, coordinationID id.CoordinationID, emergencyType id.EmergencyType, statute string) (coordination.StatusView, error)
}

// Handler wires coordination endpoints to the engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a coordination handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts coordination endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/coordination", h.HandleSubmit)
	r.Get("/coordination/{id}", h.HandleGetStatus)
	r.Post("/coordination/{id}/match", h.HandleMatch)
	r.Post("/coordination/{id}/phase", h.HandleAdvancePhase)
	r.Post("/coordination/{id}/cancel", h.HandleCancel)
	r.Post("/coordination/{id}/complete", h.HandleComplete)
	r.Post("/coordination/{id}/resume", h.HandleResume)
	r.Post("/coordination/{id}/emergency", h.HandleEmergency)
}

// SubmitRequest is the intake payload for POST /coordination. An omitted
// urgency defaults to standard and an omitted anonymityLevel to none; the
// other fields are required.
type SubmitRequest struct {
	PseudonymID    string `json:"pseudonymId"`
	ServiceKind    string `json:"serviceKind"`
	Tier           string `json:"tier"`
	Category       string `json:"category"`
	Urgency        string `json:"urgency"`
	Proof          string `json:"proof"`
	AnonymityLevel string `json:"anonymityLevel"`
}

// SubmitResponse acknowledges intake. State is always "received" on 201.
type SubmitResponse struct {
	CoordinationID string `json:"coordinationId"`
	State          string `json:"state"`
}

// StatusResponse is the sanitized status body.
type StatusResponse struct {
	CoordinationID    string `json:"coordinationId"`
	State             string `json:"state"`
	DisclosureLevel   string `json:"disclosureLevel"`
	MatchedProviderID string `json:"matchedProviderId,omitempty"`
}

func fromView(v coordination.StatusView) StatusResponse {
	return StatusResponse{
		CoordinationID:    v.CoordinationID.String(),
		State:             string(v.State),
		DisclosureLevel:   v.DisclosureLevel.String(),
		MatchedProviderID: v.MatchedProviderID,
	}
}

// HandleSubmit handles POST /coordination requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	pseudonymID, err := id.ParsePseudonymID(req.PseudonymID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := id.ParseServiceKind(req.ServiceKind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	tier, err := id.ParseTier(req.Tier)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	urgency, err := id.ParseUrgency(req.Urgency)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	anonymity := id.DisclosureNone
	if req.AnonymityLevel != "" {
		anonymity, err = id.ParseDisclosureLevel(req.AnonymityLevel)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	c, err := h.service.Submit(ctx, coordination.SubmitInput{
		PseudonymID:    pseudonymID,
		Kind:           kind,
		Tier:           tier,
		Urgency:        urgency,
		Category:       req.Category,
		Proof:          req.Proof,
		AnonymityLevel: anonymity,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "coordination submit rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "coordination submitted",
		"request_id", requestID,
		"coordination_id", c.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, SubmitResponse{
		CoordinationID: c.ID.String(),
		State:          string(c.State),
	})
}

// HandleGetStatus handles GET /coordination/{id} requests.
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	coordinationID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetStatus(r.Context(), coordinationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromView(view))
}

// HandleMatch handles POST /coordination/{id}/match requests.
func (h *Handler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	coordinationID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, err := h.service.MatchProvider(r.Context(), coordinationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromView(view))
}

// PhaseRequest names the execution phase to enter.
type PhaseRequest struct {
	Phase string `json:"phase"`
}

// HandleAdvancePhase handles POST /coordination/{id}/phase requests.
func (h *Handler) HandleAdvancePhase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	coordinationID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PhaseRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	phase, err := id.ParsePhase(req.Phase)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.service.AdvancePhase(ctx, coordinationID, phase)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromView(view))
}

// HandleCancel handles POST /coordination/{id}/cancel requests.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	coordinationID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Cancel(r.Context(), coordinationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, fromView(view))
}

// HandleComplete handles POST /coordination/{id}/complete requests.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	coordinationID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Complete(r.Context(), coordinationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromView(view))
}

// HandleResume handles POST /coordination/{id}/resume requests.
func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	coordinationID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Resume(r.Context(), coordinationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromView(view))
}

// EmergencyRequest names the override trigger. Statute is required for
// legal_requirement and ignored otherwise.
type EmergencyRequest struct {
	EmergencyType string `json:"emergencyType"`
	Statute       string `json:"statute,omitempty"`
}

// HandleEmergency handles POST /coordination/{id}/emergency requests.
// Privileged callers only.
func (h *Handler) HandleEmergency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !middleware.IsPrivileged(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "emergency overrides require a privileged caller"))
		return
	}
	coordinationID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EmergencyRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	emergencyType, err := id.ParseEmergencyType(req.EmergencyType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.TriggerEmergency(ctx, coordinationID, emergencyType, req.Statute)
	if err != nil {
		h.logger.WarnContext(ctx, "emergency override rejected",
			"request_id", middleware.GetRequestID(ctx),
			"coordination_id", coordinationID.String(),
			"emergency_type", req.EmergencyType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, fromView(view))
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (id.CoordinationID, bool) {
	coordinationID, err := id.ParseCoordinationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.CoordinationID{}, false
	}
	return coordinationID, true
}
