package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sglgb/internal/assessment/models"
	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
	dErrors "sglgb/pkg/domain-errors"
	"sglgb/pkg/platform/audit"
	"sglgb/pkg/platform/httputil"
	"sglgb/pkg/requestcontext"
)

// Service defines the assessment operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, unitID string, year int) (*models.Assessment, error)
	Get(ctx context.Context, id string) (*models.Assessment, error)
	RecordEvidence(ctx context.Context, id string, actor models.Actor, code indicator.Code, in models.EvidenceInput) (models.Evidence, error)
	RecordValidation(ctx context.Context, id string, actor models.Actor, code indicator.Code, status compliance.ValidationStatus, remarks string) error
	FlagEvidence(ctx context.Context, id string, actor models.Actor, evidenceID string, kind models.FlagKind) error
	FlagIndicatorForCalibration(ctx context.Context, id string, actor models.Actor, code indicator.Code) error
	Transition(ctx context.Context, id string, actor models.Actor, action models.Action, payload models.Payload) (models.Outcome, error)
	Evaluate(ctx context.Context, id string) (compliance.Summary, error)
	AuditTrail(ctx context.Context, id string) ([]audit.Event, error)
}

// Handler serves the /assessments API. Identity comes from upstream headers
// lifted into the context by the metadata middleware.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new assessment Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the assessment routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/assessments", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Get("/evaluation", h.handleEvaluate)
			r.Get("/audit", h.handleAuditTrail)
			r.Post("/transitions", h.handleTransition)
			r.Post("/indicators/{code}/evidence", h.handleRecordEvidence)
			r.Put("/indicators/{code}/validation", h.handleRecordValidation)
			r.Post("/indicators/{code}/calibration-flag", h.handleFlagIndicator)
			r.Post("/evidence/{evidenceID}/flags", h.handleFlagEvidence)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r)
	if !ok {
		return
	}
	a, err := h.service.Create(ctx, req.UnitID, req.Year)
	if err != nil {
		h.writeError(ctx, w, "create assessment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := h.service.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "get assessment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sum, err := h.service.Evaluate(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "evaluate assessment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sum)
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := h.service.AuditTrail(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "list audit trail", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFrom(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r)
	if !ok {
		return
	}
	out, err := h.service.Transition(ctx, chi.URLParam(r, "id"), actor, req.action, req.payload())
	if err != nil {
		h.writeError(ctx, w, "transition assessment", err)
		return
	}
	events := out.Events
	if events == nil {
		events = []models.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, TransitionResponse{Assessment: out.Assessment, Events: events, Changed: out.Changed})
}

func (h *Handler) handleRecordEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFrom(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[EvidenceRequest](w, r)
	if !ok {
		return
	}
	ev, err := h.service.RecordEvidence(ctx, chi.URLParam(r, "id"), actor, indicator.Code(chi.URLParam(r, "code")), req.input())
	if err != nil {
		h.writeError(ctx, w, "record evidence", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ev)
}

func (h *Handler) handleRecordValidation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFrom(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ValidationRequest](w, r)
	if !ok {
		return
	}
	err = h.service.RecordValidation(ctx, chi.URLParam(r, "id"), actor, indicator.Code(chi.URLParam(r, "code")), req.Status, req.Remarks)
	if err != nil {
		h.writeError(ctx, w, "record validation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFlagIndicator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFrom(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	err = h.service.FlagIndicatorForCalibration(ctx, chi.URLParam(r, "id"), actor, indicator.Code(chi.URLParam(r, "code")))
	if err != nil {
		h.writeError(ctx, w, "flag indicator", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFlagEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorFrom(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[FlagRequest](w, r)
	if !ok {
		return
	}
	err = h.service.FlagEvidence(ctx, chi.URLParam(r, "id"), actor, chi.URLParam(r, "evidenceID"), req.Kind)
	if err != nil {
		h.writeError(ctx, w, "flag evidence", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError logs infrastructure failures at error level and client
// mistakes at debug, then writes the envelope.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	code := dErrors.GetCode(err)
	if httputil.StatusFor(code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "failed to "+op,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.DebugContext(ctx, op+" rejected",
			"request_id", requestcontext.RequestID(ctx),
			"code", string(code),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

// actorFrom parses the upstream identity. The system role is never accepted
// from a caller.
func actorFrom(ctx context.Context) (models.Actor, error) {
	info := requestcontext.Actor(ctx)
	if info.ID == "" {
		return models.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "missing actor identity")
	}
	role, ok := models.ParseRole(info.Role)
	if !ok || role == models.RoleSystem {
		return models.Actor{}, dErrors.Newf(dErrors.CodeForbidden, "unknown role %q", info.Role)
	}
	return models.Actor{ID: info.ID, Role: role, Areas: codes(info.Areas)}, nil
}

