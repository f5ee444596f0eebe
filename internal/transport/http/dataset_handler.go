package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"bankdash/internal/dataset"
	apierrors "bankdash/internal/errors"
	"bankdash/internal/middleware"
	"bankdash/internal/services"
	api "bankdash/pkg/contracts/api/v1"
)

const (
	uploadField         = "file"
	defaultTopPairs     = 0
	maxTopPairs         = 50
	defaultExportFormat = "csv"
)

// DatasetHandler serves the dataset upload, analysis and export API
type DatasetHandler struct {
	service      AnalysisServiceInterface
	validator    *middleware.Validator
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		validator:    middleware.NewValidator(logger, errorHandler),
		query:        middleware.NewQueryParamValidator(errorHandler),
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.List)
	r.Post("/", h.Upload)

	r.Route("/{id}", func(r chi.Router) {
		r.Use(h.DatasetCtx)
		r.Get("/", h.Overview)
		r.Delete("/", h.Delete)
		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeValidator(h.errorHandler, "application/json"))
			r.Post("/outliers", h.CapOutliers)
			r.Post("/features", h.DeriveFeatures)
		})
		r.Get("/geography", h.Geography)
		r.Get("/distributions", h.Distributions)
		r.Get("/correlations", h.Correlations)
		r.Get("/export", h.Export)
	})

	return r
}

// DatasetCtx rejects ids that are not UUIDs before the store is consulted
func (h *DatasetHandler) DatasetCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := uuid.Parse(id); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.DatasetNotFoundError(id))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// List handles GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.List(r.Context()))
}

// Upload handles POST /api/datasets. The file is streamed from the
// multipart body without buffering the whole form.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadField, "multipart/form-data body with a file field is required"))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.errorHandler.HandleError(w, r, h.problemFor(r, err))
			return
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			part.Close()
			continue
		}

		overview, err := h.service.Upload(r.Context(), part.FileName(), part)
		part.Close()
		if err != nil {
			h.errorHandler.HandleError(w, r, h.problemFor(r, err))
			return
		}

		h.logger.InfoContext(r.Context(), "dataset uploaded",
			slog.String("dataset_id", overview.Dataset.ID),
			slog.String("name", overview.Dataset.Name))
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, overview)
		return
	}

	h.errorHandler.HandleError(w, r, apierrors.ErrValidation(uploadField, "file field is required"))
}

// Overview handles GET /api/datasets/{id}
func (h *DatasetHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, h.problemFor(r, err))
		return
	}
	render.JSON(w, r, overview)
}

// Delete handles DELETE /api/datasets/{id}
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, h.problemFor(r, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CapOutliers handles POST /api/datasets/{id}/outliers. An empty body caps
// the default columns.
func (h *DatasetHandler) CapOutliers(w http.ResponseWriter, r *http.Request) {
	var req api.CapOutliersRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.CapOutliers(r.Context(), chi.URLParam(r, "id"), req.Columns)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.problemFor(r, err))
		return
	}
	render.JSON(w, r, res)
}

// DeriveFeatures handles POST /api/datasets/{id}/features
func (h *DatasetHandler) DeriveFeatures(w http.ResponseWriter, r *http.Request) {
	var req api.DeriveFeaturesRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.DeriveFeatures(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.problemFor(r, err))
		return
	}
	render.JSON(w, r, res)
}

// Geography handles GET /api/datasets/{id}/geography
func (h *DatasetHandler) Geography(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Geography(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, h.problemFor(r, err))
		return
	}
	render.JSON(w, r, res)
}

// Distributions handles GET /api/datasets/{id}/distributions
func (h *DatasetHandler) Distributions(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Distributions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, h.problemFor(r, err))
		return
	}
	render.JSON(w, r, res)
}

// Correlations handles GET /api/datasets/{id}/correlations?top=N
func (h *DatasetHandler) Correlations(w http.ResponseWriter, r *http.Request) {
	top, ok := h.query.ValidateInt(w, r, "top", 1, maxTopPairs, defaultTopPairs)
	if !ok {
		return
	}

	res, err := h.service.Correlations(r.Context(), chi.URLParam(r, "id"), top)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.problemFor(r, err))
		return
	}
	render.JSON(w, r, res)
}

// Export handles GET /api/datasets/{id}/export?format=csv|xlsx. The file is
// rendered into memory first so a failure still yields a problem response.
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	name, ok := h.query.ValidateEnum(w, r, "format", api.ExportFormats, defaultExportFormat)
	if !ok {
		return
	}
	format, err := dataset.ParseFormat(name)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.problemFor(r, err))
		return
	}

	var buf bytes.Buffer
	filename, err := h.service.Export(r.Context(), chi.URLParam(r, "id"), format, &buf)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.problemFor(r, err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write interrupted",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
	}
}

// problemFor translates service errors into API errors. AppErrors carry
// their own status and pass through, as do unknown errors, which surface
// as 500.
func (h *DatasetHandler) problemFor(r *http.Request, err error) error {
	var (
		appErr   *apierrors.AppError
		missing  *services.MissingColumnsError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.Is(err, services.ErrDatasetNotFound):
		return apierrors.DatasetNotFoundError(chi.URLParam(r, "id"))
	case errors.Is(err, services.ErrDatasetConflict):
		return apierrors.DatasetConflictError(chi.URLParam(r, "id"))
	case errors.As(err, &appErr):
		return err
	case errors.As(err, &tooLarge):
		return apierrors.NewLimitError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err)
	case errors.Is(err, services.ErrUnreadableDataset):
		return apierrors.DatasetParseError(err)
	case errors.As(err, &missing):
		return apierrors.MissingColumnsError(missing.Analysis, missing.Columns)
	case errors.Is(err, services.ErrInvalidReferenceDate):
		return apierrors.ErrValidation("reference_date", "reference_date must be a valid YYYY-MM-DD date")
	}
	return err
}
