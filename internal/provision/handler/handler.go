// Package handler exposes the provisioning operations over HTTP. All admin
// routes sit behind operator authentication; credentials appear in responses
// exactly once and are never logged.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"rollbook/internal/platform/middleware"
	"rollbook/internal/provision/models"
	"rollbook/internal/provision/report"
	dErrors "rollbook/pkg/domain-errors"
	"rollbook/pkg/platform/httputil"
	"rollbook/pkg/requestcontext"
)

// Service defines the provisioning operations the handler depends on.
type Service interface {
	Provision(ctx context.Context, role models.Role, attrs models.Attributes) (models.IssuedCredentials, error)
	Reset(ctx context.Context, role models.Role, domainRecordID uuid.UUID) (models.IssuedCredentials, error)
}

// BatchRunner runs a roster upload through the row pipeline.
type BatchRunner interface {
	RunReader(ctx context.Context, role models.Role, r io.Reader) ([]models.RowOutcome, error)
}

// Handler handles identity provisioning endpoints.
type Handler struct {
	logger    *slog.Logger
	provision Service
	batch     BatchRunner
	tokens    middleware.TokenValidator
	validate  *validator.Validate
}

// New creates a new provisioning Handler.
func New(
	provision Service,
	batch BatchRunner,
	tokens middleware.TokenValidator,
	logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		provision: provision,
		batch:     batch,
		tokens:    tokens,
		validate:  validator.New(),
	}
}

// Register registers the provisioning routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	admin := chi.NewRouter()
	admin.Use(middleware.Recovery(h.logger))
	admin.Use(middleware.RequestID)
	admin.Use(middleware.Logger(h.logger))
	admin.Use(middleware.Timeout(60 * time.Second))
	admin.Use(middleware.RequireOperator(h.tokens, h.logger))
	admin.Post("/provision", h.handleProvision)
	admin.Post("/provision/reset", h.handleReset)
	admin.Post("/provision/batch", h.handleBatch)
	r.Mount("/admin", admin)

	r.Get("/healthz", h.handleHealth)
}

// handleProvision creates a single identity and returns its credentials.
// The secret in the response is the only time it is ever shown.
func (h *Handler) handleProvision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid provision request body", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validateRequest(h.validate, req); err != nil {
		h.warn(ctx, "provision request failed validation", err)
		httputil.WriteError(w, err)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	creds, err := h.provision.Provision(ctx, role, models.Attributes{
		FullName: req.FullName,
		Grade:    req.Grade,
		Position: req.Position,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "provisioning failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, creds)
}

// handleReset issues a fresh secret for an existing identity. The enrollment
// id in the response is unchanged.
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid reset request body", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validateRequest(h.validate, req); err != nil {
		h.warn(ctx, "reset request failed validation", err)
		httputil.WriteError(w, err)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recordID, err := uuid.Parse(req.RecordID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "record_id must be a valid UUID"))
		return
	}

	creds, err := h.provision.Reset(ctx, role, recordID)
	if err != nil {
		h.writeServiceError(ctx, w, "credential reset failed", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, creds)
}

// batchResponse is the JSON rendering of a completed batch run.
type batchResponse struct {
	Summary  report.Summary      `json:"summary"`
	Outcomes []models.RowOutcome `json:"outcomes"`
}

// handleBatch runs an uploaded roster through the pipeline. The default
// response is JSON; `Accept: text/csv` returns the outcome table, and
// `?artifact=manifest` with the same Accept header returns the one-time
// credential manifest instead.
func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	role, err := models.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		h.warn(ctx, "batch request missing role", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "query parameter role must be student, staff or librarian"))
		return
	}

	body, err := h.batchBody(r)
	if err != nil {
		h.warn(ctx, "unreadable batch upload", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable upload"))
		return
	}
	defer body.Close()

	outcomes, err := h.batch.RunReader(ctx, role, body)
	if err != nil {
		h.writeServiceError(ctx, w, "batch run failed", err)
		return
	}

	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv")
		if r.URL.Query().Get("artifact") == "manifest" {
			w.Header().Set("Content-Disposition", `attachment; filename="credentials.csv"`)
			if err := report.WriteManifest(w, outcomes); err != nil {
				h.logger.ErrorContext(ctx, "failed to write credential manifest",
					"request_id", requestcontext.RequestID(ctx),
					"error", err.Error(),
				)
			}
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="outcomes.csv"`)
		if err := report.WriteOutcomes(w, outcomes); err != nil {
			h.logger.ErrorContext(ctx, "failed to write outcome report",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, batchResponse{
		Summary:  report.Summarize(outcomes),
		Outcomes: outcomes,
	})
}

// batchBody extracts the roster bytes from either a multipart upload (the
// "file" part) or a raw request body.
func (h *Handler) batchBody(r *http.Request) (io.ReadCloser, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && mediaType == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		return file, nil
	}
	return r.Body, nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func wantsCSV(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/csv")
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}

// writeServiceError logs at a severity matching the error class and writes
// the coded response. Partial provisioning is surfaced loudly because it
// leaves an orphaned credential behind for reconciliation.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	switch {
	case dErrors.Is(err, dErrors.CodeValidation),
		dErrors.Is(err, dErrors.CodeBadRequest),
		dErrors.Is(err, dErrors.CodeDuplicate),
		dErrors.Is(err, dErrors.CodeConflict),
		dErrors.Is(err, dErrors.CodeNotProvisioned):
		h.warn(ctx, msg, err)
	default:
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
