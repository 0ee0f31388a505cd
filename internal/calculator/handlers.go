package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"transcript-calculator/internal/handlers"
	"transcript-calculator/internal/observability"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// Handler serves the calculator HTTP API on top of a session manager.
type Handler struct {
	sessions *Manager
}

func NewHandler(sessions *Manager) *Handler {
	return &Handler{sessions: sessions}
}

// ---------------------------------------------------------------------------
// Handlers: registry and session lifecycle
// ---------------------------------------------------------------------------

// Operations handles GET /calculator/operations
func (h *Handler) Operations(w http.ResponseWriter, r *http.Request) {
	ops := Operations()
	resp := make([]OperationResponse, 0, len(ops))
	for _, op := range ops {
		resp = append(resp, OperationResponse{Token: op.Token, Arity: op.Arity, Template: op.Template})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateSession handles POST /calculator/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "calculator.session.create")
	defer span.End()

	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			observability.RecordError(ctx, span, errorCounter, "create", "invalid request body", err, http.StatusBadRequest, w)
			return
		}
	}

	view, err := h.sessions.Create(ctx, req.Slot)
	if err != nil {
		observability.RecordError(ctx, span, errorCounter, "create", "session limit reached", err, http.StatusServiceUnavailable, w)
		return
	}

	span.SetAttributes(
		attribute.String("calculator.session.id", view.ID),
		attribute.String("calculator.session.slot", view.Slot),
	)
	span.SetStatus(codes.Ok, "")

	writeJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /calculator/sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	view, err := h.sessions.Get(id)
	if err != nil {
		handlers.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteSession handles DELETE /calculator/sessions/{sessionID} and persists
// the session's last value.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	ctx, span := tracer.Start(r.Context(), "calculator.session.end",
		trace.WithAttributes(attribute.String("calculator.session.id", id)),
	)
	defer span.End()

	view, err := h.sessions.End(ctx, id)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		observability.RecordError(ctx, span, errorCounter, "end", "session not found", err, http.StatusNotFound, w, zap.String("session_id", id))
		return
	case err != nil:
		observability.RecordError(ctx, span, errorCounter, "end", "saving last value failed", err, http.StatusInternalServerError, w, zap.String("session_id", id))
		return
	}

	span.SetStatus(codes.Ok, "")
	writeJSON(w, http.StatusOK, view)
}

// ---------------------------------------------------------------------------
// Handlers: events
// ---------------------------------------------------------------------------

// PostEvent handles POST /calculator/sessions/{sessionID}/events. Errors the
// session reports on its error channel come back with 200: the event was
// handled, it just degraded to an error message.
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	ctx := r.Context()
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.event",
		trace.WithAttributes(
			attribute.String("calculator.session.id", id),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, errorCounter, "event", "invalid request body", err, http.StatusBadRequest, w, zap.String("session_id", id))
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		observability.RecordError(ctx, span, errorCounter, "event", err.Error(), err, http.StatusBadRequest, w, zap.String("session_id", id))
		return
	}

	start := time.Now()
	view, out, err := h.sessions.Dispatch(id, ev)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	if err != nil {
		observability.RecordError(ctx, span, errorCounter, string(ev.Kind), "session not found", err, http.StatusNotFound, w, zap.String("session_id", id))
		return
	}

	recordOutcome(ctx, span, out, elapsed, zap.String("session_id", id))

	writeJSON(w, http.StatusOK, EventResponse{
		Session: view,
		Outcome: newOutcomeResponse(out),
	})
}

// Evaluate handles POST /calculator/evaluate. It runs a sequence of events on a
// throwaway session, creating a child span for every step.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	// Parent span for the entire sequence
	ctx, span := tracer.Start(ctx, "calculator.evaluate",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, errorCounter, "evaluate", "invalid request body", err, http.StatusBadRequest, w)
		return
	}

	if len(req.Events) == 0 {
		observability.RecordError(ctx, span, errorCounter, "evaluate", "no events provided", fmt.Errorf("events array is empty"), http.StatusBadRequest, w)
		return
	}

	events := make([]Event, 0, len(req.Events))
	for i, er := range req.Events {
		ev, err := er.toEvent()
		if err != nil {
			observability.RecordError(ctx, span, errorCounter, "evaluate", fmt.Sprintf("event %d: %v", i, err), err, http.StatusBadRequest, w)
			return
		}
		events = append(events, ev)
	}

	span.SetAttributes(attribute.Int("evaluate.steps_count", len(events)))

	transcript := NewTranscript()
	session := NewSession(transcript, WithLogger(logger))
	steps := make([]OutcomeResponse, 0, len(events))

	for i, ev := range events {
		// --- Child span per step ---
		stepCtx, stepSpan := tracer.Start(ctx, fmt.Sprintf("calculator.evaluate.step.%d.%s", i, ev.Kind),
			trace.WithAttributes(
				attribute.Int("evaluate.step.index", i),
				attribute.String("evaluate.step.token", ev.Token),
			),
		)

		stepStart := time.Now()
		out := session.Dispatch(ev)
		stepElapsed := float64(time.Since(stepStart).Microseconds()) / 1000.0

		recordOutcome(stepCtx, stepSpan, out, stepElapsed, zap.Int("step", i))
		stepSpan.End()

		steps = append(steps, newOutcomeResponse(out))
	}

	span.AddEvent("evaluate.complete", trace.WithAttributes(
		attribute.String("trailing_line", transcript.TrailingLine()),
		attribute.Int("total_steps", len(events)),
	))
	span.SetStatus(codes.Ok, "")

	logger.Info("evaluation completed",
		zap.Int("steps", len(events)),
		zap.String("trailing_line", transcript.TrailingLine()),
		zap.String("request_id", requestID),
	)

	writeJSON(w, http.StatusOK, EvaluateResponse{
		Transcript:   transcript.Text(),
		Lines:        transcript.Lines(),
		TrailingLine: transcript.TrailingLine(),
		Steps:        steps,
	})
}

// recordOutcome puts one event on its span, the metric instruments and the
// log.
func recordOutcome(ctx context.Context, span trace.Span, out Outcome, elapsed float64, fields ...zap.Field) {
	logger := observability.LoggerWithTrace(ctx)
	kind := string(out.Event.Kind)

	attrs := metric.WithAttributes(
		attribute.String("event", kind),
		attribute.Bool("applied", out.Applied),
	)
	eventsCounter.Add(ctx, 1, attrs)
	eventHistogram.Record(ctx, elapsed, attrs)

	span.SetAttributes(
		attribute.String("calculator.event", kind),
		attribute.String("calculator.token", out.Event.Token),
		attribute.Bool("calculator.applied", out.Applied),
	)

	fields = append(fields,
		zap.String("event", kind),
		zap.String("token", out.Event.Token),
		zap.Bool("applied", out.Applied),
		zap.Float64("duration_ms", elapsed),
	)

	if out.Resolved {
		if !math.IsInf(out.Result, 0) {
			resultGauge.Record(ctx, out.Result, metric.WithAttributes(attribute.String("event", kind)))
		}
		span.AddEvent("computation.complete", trace.WithAttributes(
			attribute.String("result", Render(out.Result, false)),
			attribute.Float64("duration_ms", elapsed),
		))
		fields = append(fields, zap.String("result", Render(out.Result, false)))
	}

	if out.Err != nil {
		errorCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", out.Event.Token),
			attribute.String("kind", errorKind(out.Err)),
		))
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, displayMessage(out.Err))
		logger.Warn("calculator event reported an error", append(fields, zap.Error(out.Err))...)
		return
	}

	span.SetStatus(codes.Ok, "")
	logger.Info("calculator event handled", fields...)
}

func errorKind(err error) string {
	var (
		domainErr  *DomainError
		parseErr   *ParseError
		unknownErr *UnknownOperationError
	)
	switch {
	case errors.As(err, &domainErr):
		return "domain"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &unknownErr):
		return "unknown_operation"
	case errors.Is(err, ErrInvalidLiteral):
		return "invalid_literal"
	default:
		return "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
