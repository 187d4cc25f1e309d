package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pesio-ai/be-wo-approvals/internal/auth"
	"github.com/pesio-ai/be-wo-approvals/internal/errors"
	"github.com/pesio-ai/be-wo-approvals/internal/logger"
	"github.com/pesio-ai/be-wo-approvals/internal/service"
	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

const maxBodyBytes = 1 << 20

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	service *service.ApprovalService
	log     *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(service *service.ApprovalService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		log:     log,
	}
}

// Register mounts the workflow API routes on mux. Every route expects an
// authenticated actor in the request context.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/categories", h.ListCategories)
	mux.HandleFunc("/api/v1/roles", h.ListRoles)
	mux.HandleFunc("/api/v1/workflows", h.StartWorkflow)
	mux.HandleFunc("/api/v1/workflows/get", h.GetWorkflow)
	mux.HandleFunc("/api/v1/workflows/approve", h.Approve)
	mux.HandleFunc("/api/v1/workflows/reject", h.Reject)
	mux.HandleFunc("/api/v1/workflows/skip", h.Skip)
	mux.HandleFunc("/api/v1/workflows/reset", h.Reset)
}

// ── Workflow routes ───────────────────────────────────────────────────────────

// StartWorkflow handles POST /api/v1/workflows
func (h *HTTPHandler) StartWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req StartWorkflowRequest
	if !h.decode(w, r, &req) {
		return
	}

	actor, _ := auth.FromContext(r.Context())
	view, err := h.service.StartWorkflow(r.Context(), req.WorkOrderID, req.Category, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toWorkflowResponse(view))
}

// GetWorkflow handles GET /api/v1/workflows/get?work_order_id=
func (h *HTTPHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}

	view, err := h.service.GetWorkflow(r.Context(), r.URL.Query().Get("work_order_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toWorkflowResponse(view))
}

// Approve handles POST /api/v1/workflows/approve
func (h *HTTPHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.stepCommand(w, r, h.service.Approve)
}

// Reject handles POST /api/v1/workflows/reject
func (h *HTTPHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.stepCommand(w, r, h.service.Reject)
}

// Skip handles POST /api/v1/workflows/skip
func (h *HTTPHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.stepCommand(w, r, h.service.Skip)
}

// Reset handles POST /api/v1/workflows/reset
func (h *HTTPHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req ResetRequest
	if !h.decode(w, r, &req) {
		return
	}

	actor, _ := auth.FromContext(r.Context())
	view, err := h.service.Reset(r.Context(), req.WorkOrderID, req.ExpectedVersion, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toWorkflowResponse(view))
}

type stepCommandFunc func(context.Context, service.CommandRequest, workflow.Actor) (*service.WorkflowView, error)

func (h *HTTPHandler) stepCommand(w http.ResponseWriter, r *http.Request, run stepCommandFunc) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req StepCommandRequest
	if !h.decode(w, r, &req) {
		return
	}

	actor, _ := auth.FromContext(r.Context())
	view, err := run(r.Context(), service.CommandRequest{
		WorkOrderID:     req.WorkOrderID,
		StepID:          req.StepID,
		Comment:         req.Comment,
		ExpectedVersion: req.ExpectedVersion,
	}, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toWorkflowResponse(view))
}

// ── Discovery routes ──────────────────────────────────────────────────────────

// ListCategories handles GET /api/v1/categories
func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}

	defs, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if defs == nil {
		defs = []workflow.Definition{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"categories": defs})
}

// ListRoles handles GET /api/v1/roles
func (h *HTTPHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, http.MethodGet)
		return
	}
	roles := h.service.ListRoles()
	if roles == nil {
		roles = []workflow.Role{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "invalid request body",
			Code:   string(errors.ErrCodeInvalidInput),
			Reason: "malformed_body",
		})
		return false
	}
	return true
}

func (h *HTTPHandler) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Code: string(errors.CodeOf(err))}
	if appErr, ok := errors.As(err); ok {
		resp.Error = appErr.Message
		resp.Field = appErr.Field
		resp.Reason = appErr.Reason
	}

	status := httpStatus(errors.CodeOf(err))
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("HTTP request failed")
		resp.Error = "internal error"
	}
	h.writeJSON(w, status, resp)
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn().Err(err).Msg("failed to write response")
	}
}

func httpStatus(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
