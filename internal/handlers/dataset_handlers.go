package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"agrifusion/internal/repository"
	"agrifusion/internal/services"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// DatasetHandler handles dataset API endpoints
type DatasetHandler struct {
	datasetService *services.DatasetService
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(
	datasetService *services.DatasetService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *DatasetHandler {
	return &DatasetHandler{
		datasetService: datasetService,
		logger:         logger,
		metrics:        metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// ListDatasets handles GET /api/datasets
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/datasets").Observe(time.Since(startTime).Seconds())
	}()

	datasets, err := h.datasetService.ListDatasets(ctx)
	if err != nil {
		h.logger.Error(ctx, "[API_LIST_DATASETS_ERROR] Failed to list datasets", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/datasets")
		h.sendError(w, r, "failed to list datasets", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/datasets", "GET", "200")
	h.sendJSON(w, map[string]interface{}{"data": datasets}, http.StatusOK)
}

// GetDatasetRecords handles GET /api/datasets/{name}
func (h *DatasetHandler) GetDatasetRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/datasets/{name}").Observe(time.Since(startTime).Seconds())
	}()

	name := mux.Vars(r)["name"]
	filter, page, err := parseRecordFilter(r)
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	records, total, err := h.datasetService.GetDatasetRecords(ctx, name, filter)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			h.sendError(w, r, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error(ctx, "[API_GET_DATASET_ERROR] Failed to get dataset records", logging.Fields{
			"dataset": name,
			"filter":  filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/datasets/{name}")
		h.sendError(w, r, "failed to retrieve dataset records", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/datasets/{name}", "GET", "200")
	h.sendJSON(w, paginate(records, total, page, filter.Limit), http.StatusOK)
}

// GetMasterRecords handles GET /api/master
func (h *DatasetHandler) GetMasterRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/master").Observe(time.Since(startTime).Seconds())
	}()

	filter, page, err := parseRecordFilter(r)
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	records, total, err := h.datasetService.GetMasterRecords(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_MASTER_ERROR] Failed to get master records", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/master")
		h.sendError(w, r, "failed to retrieve master records", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/master", "GET", "200")
	h.sendJSON(w, paginate(records, total, page, filter.Limit), http.StatusOK)
}

// HealthCheck handles GET /health
func (h *DatasetHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK
	if err := h.datasetService.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Database unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{"status": status["status"]})
	h.sendJSON(w, status, code)
}

// parseRecordFilter reads state, district, crop, year, page and limit.
// Bad page and limit values fall back to the defaults.
func parseRecordFilter(r *http.Request) (repository.RecordFilter, int, error) {
	query := r.URL.Query()

	page := 1
	limit := defaultPageLimit
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l <= maxPageLimit {
		limit = l
	}

	filter := repository.RecordFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if v := query.Get("state"); v != "" {
		filter.State = &v
	}
	if v := query.Get("district"); v != "" {
		filter.District = &v
	}
	if v := query.Get("crop"); v != "" {
		filter.Crop = &v
	}
	if v := query.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year <= 0 {
			return filter, page, errors.New("invalid year, expected a positive integer")
		}
		filter.Year = &year
	}
	return filter, page, nil
}

func paginate(data interface{}, total, page, limit int) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}

// sendJSON sends a JSON response
func (h *DatasetHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *DatasetHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all dataset API routes
func (h *DatasetHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/datasets", h.ListDatasets).Methods("GET")
	router.HandleFunc("/api/datasets/{name}", h.GetDatasetRecords).Methods("GET")
	router.HandleFunc("/api/master", h.GetMasterRecords).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
}
