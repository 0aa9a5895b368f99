package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "seasonalcli/internal/errors"
	"seasonalcli/internal/infrastructure"
	"seasonalcli/internal/seasonal"
)

// AdjustHandler handles adjustment requests
type AdjustHandler struct {
	service      AdjustServiceInterface
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewAdjustHandler creates a new adjust handler
func NewAdjustHandler(service AdjustServiceInterface, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *AdjustHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apperrors.NewErrorHandler(logger, false)
	}

	return &AdjustHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "adjust")),
	}
}

// AdjustRequest is the body of POST /adjust
type AdjustRequest struct {
	Records []seasonal.Record `json:"records"`
	Options seasonal.Options  `json:"options"`
}

// Bind implements the render.Binder interface. Option validation is left
// to the pipeline so the CLI and HTTP paths report the same messages.
func (a *AdjustRequest) Bind(r *http.Request) error {
	if a.Records == nil {
		return errors.New("records is required")
	}
	for i, rec := range a.Records {
		if rec == nil {
			return fmt.Errorf("records[%d]: record must be an object", i)
		}
	}
	return nil
}

// CustomRequest is the body of POST /custom
type CustomRequest struct {
	InputFilePath string `json:"input_file_path"`
	Log           bool   `json:"log,omitempty"`
}

// Bind implements the render.Binder interface
func (c *CustomRequest) Bind(r *http.Request) error {
	if c.InputFilePath == "" {
		return errors.New("input_file_path is required")
	}
	return nil
}

// Routes returns a chi router for adjustment endpoints
func (h *AdjustHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/adjust", h.Adjust)
	r.Post("/custom", h.Custom)
	return r
}

// Adjust handles POST /api/v1/adjust
func (h *AdjustHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("adjust-handler").Start(r.Context(), "adjust_handler.adjust",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/v1/adjust"),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	data := &AdjustRequest{}
	if err := render.Bind(r, data); err != nil {
		span.RecordError(err)
		h.renderBindError(w, r, err)
		return
	}

	span.SetAttributes(attribute.Int("records", len(data.Records)))

	result, err := h.service.Adjust(ctx, data.Records, data.Options)
	if err != nil {
		span.RecordError(err)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "adjustment request completed",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.Int("records", len(result.Records)),
		slog.Any("columns", result.Columns))

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// Custom handles POST /api/v1/custom
func (h *AdjustHandler) Custom(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("adjust-handler").Start(r.Context(), "adjust_handler.custom",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/v1/custom"),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	data := &CustomRequest{}
	if err := render.Bind(r, data); err != nil {
		span.RecordError(err)
		h.renderBindError(w, r, err)
		return
	}

	result, err := h.service.Custom(ctx, data.InputFilePath, data.Log)
	if err != nil {
		span.RecordError(err)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// renderBindError reports a body that could not be decoded or bound
func (h *AdjustHandler) renderBindError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	h.logger.WarnContext(ctx, "failed to bind request",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID))

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		problem := apperrors.NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			apperrors.TypePayloadTooLarge,
			"Payload Too Large",
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			r.URL.Path,
		).WithExtension("trace_id", infrastructure.GetTraceID(ctx))
		render.Render(w, r, problem)
		return
	}

	problem := apperrors.NewProblemDetails(
		http.StatusBadRequest,
		apperrors.TypeValidation,
		"Invalid Request",
		err.Error(),
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(ctx))
	render.Render(w, r, problem)
}
