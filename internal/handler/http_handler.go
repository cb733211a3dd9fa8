package handler

import (
	"encoding/json"
	"net/http"

	"github.com/clearstone-ma/be-diligence/internal/errors"
	"github.com/clearstone-ma/be-diligence/internal/logger"
	"github.com/clearstone-ma/be-diligence/internal/service"
)

// HTTPHandler handles HTTP requests for the diligence API.
type HTTPHandler struct {
	deals     *service.DealService
	requests  *service.RequestService
	stages    *service.StageService
	templates *service.TemplateService
	progress  *service.ProgressService
	log       *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	deals *service.DealService,
	requests *service.RequestService,
	stages *service.StageService,
	templates *service.TemplateService,
	progress *service.ProgressService,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		deals:     deals,
		requests:  requests,
		stages:    stages,
		templates: templates,
		progress:  progress,
		log:       log,
	}
}

// Register wires all API routes onto the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Deal routes
	mux.HandleFunc("/api/v1/deals", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListDeals(w, r)
		case http.MethodPost:
			h.CreateDeal(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/deals/get", h.GetDeal)
	mux.HandleFunc("/api/v1/deals/status", h.UpdateDealStatus)
	mux.HandleFunc("/api/v1/deals/delete", h.DeleteDeal)
	mux.HandleFunc("/api/v1/deals/audit", h.GetDealAudit)

	// Request routes
	mux.HandleFunc("/api/v1/requests", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListRequests(w, r)
		case http.MethodPost:
			h.CreateRequest(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/requests/get", h.GetRequest)
	mux.HandleFunc("/api/v1/requests/assign-stage", h.AssignStage)
	mux.HandleFunc("/api/v1/requests/respond", h.SubmitResponse)
	mux.HandleFunc("/api/v1/requests/responses", h.ListResponses)
	mux.HandleFunc("/api/v1/requests/documents", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListDocuments(w, r)
		case http.MethodPost:
			h.AttachDocument(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/requests/approve", h.ApproveRequest)
	mux.HandleFunc("/api/v1/requests/reject", h.RejectRequest)
	mux.HandleFunc("/api/v1/requests/reopen", h.ReopenRequest)
	mux.HandleFunc("/api/v1/requests/delete", h.DeleteRequest)
	mux.HandleFunc("/api/v1/requests/audit", h.GetRequestAudit)

	// Stage routes
	mux.HandleFunc("/api/v1/stages", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListStages(w, r)
		case http.MethodPost:
			h.CreateStage(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/stages/get", h.GetStage)
	mux.HandleFunc("/api/v1/stages/update", h.UpdateStage)
	mux.HandleFunc("/api/v1/stages/reorder", h.ReorderStages)
	mux.HandleFunc("/api/v1/stages/delete", h.DeleteStage)
	mux.HandleFunc("/api/v1/stages/board", h.DealBoard)

	// Template routes
	mux.HandleFunc("/api/v1/templates", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListTemplates(w, r)
		case http.MethodPost:
			h.CreateTemplate(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/templates/get", h.GetTemplate)
	mux.HandleFunc("/api/v1/templates/deactivate", h.DeactivateTemplate)
	mux.HandleFunc("/api/v1/templates/apply", h.ApplyTemplate)

	// Progress routes
	mux.HandleFunc("/api/v1/progress/categories", h.CategoryProgress)
	mux.HandleFunc("/api/v1/progress/stages", h.StageProgress)
}

// writeJSON encodes v to the response with the given status.
func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps a service error to its HTTP status and writes a JSON body.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  string(errors.CodeOf(err)),
	})
}
