// Package handler exposes pseudonym lifecycle operations over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veil/internal/identity"
	"veil/internal/platform/middleware"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/httputil"
)

// Service defines the identity operations the transport needs.
type Service interface {
	IssuePseudonym(ctx context.Context, userID id.UserID, tier id.Tier) (identity.Pseudonym, error)
	Rotate(ctx context.Context, userID id.UserID, tier id.Tier) (identity.Pseudonym, error)
}

// Handler wires pseudonym endpoints to the identity service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an identity handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts pseudonym endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/pseudonym", h.HandleIssue)
	r.Post("/pseudonym/rotate", h.HandleRotate)
}

// IssueRequest names the tier to issue at. The user is the authenticated
// caller; there is no way to mint pseudonyms for someone else.
type IssueRequest struct {
	Tier string `json:"tier"`
}

// IssueResponse returns the pseudonym handle. The user link never leaves
// the identity manager.
type IssueResponse struct {
	PseudonymID string `json:"pseudonymId"`
	Tier        string `json:"tier"`
}

// HandleIssue handles POST /pseudonym requests.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, h.service.IssuePseudonym)
}

// HandleRotate handles POST /pseudonym/rotate requests.
func (h *Handler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, h.service.Rotate)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, op func(context.Context, id.UserID, id.Tier) (identity.Pseudonym, error)) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	subject := middleware.GetSubject(ctx)
	userID, err := id.ParseUserID(subject)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller subject is not a user"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	tier, err := id.ParseTier(req.Tier)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	p, err := op(ctx, userID, tier)
	if err != nil {
		h.logger.WarnContext(ctx, "pseudonym issuance rejected",
			"request_id", requestID,
			"tier", req.Tier,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, IssueResponse{
		PseudonymID: p.ID.String(),
		Tier:        p.Tier.String(),
	})
}
