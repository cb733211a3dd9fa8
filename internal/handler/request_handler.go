package handler

import (
	"encoding/json"
	"net/http"

	"github.com/clearstone-ma/be-diligence/internal/progress"
	"github.com/clearstone-ma/be-diligence/internal/repository"
	"github.com/clearstone-ma/be-diligence/internal/service"
)

// CreateRequest handles create request HTTP requests.
func (h *HTTPHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.requests.CreateRequest(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, request)
}

// GetRequest handles get request HTTP requests.
func (h *HTTPHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	request, err := h.requests.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// ListRequests handles list requests HTTP requests. Filters come from query
// params: stage_id, category, priority, approval_status.
func (h *HTTPHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	dealID := r.URL.Query().Get("deal_id")
	if dealID == "" {
		http.Error(w, "Deal ID is required", http.StatusBadRequest)
		return
	}

	var filter repository.RequestFilter
	if v := r.URL.Query().Get("stage_id"); v != "" {
		filter.StageID = &v
	}
	if v := r.URL.Query().Get("category"); v != "" {
		category, err := progress.ParseCategory(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Category = &category
	}
	if v := r.URL.Query().Get("priority"); v != "" {
		priority, err := progress.ParsePriority(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Priority = &priority
	}
	if v := r.URL.Query().Get("approval_status"); v != "" {
		approval, err := progress.ParseApprovalStatus(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Approval = &approval
	}

	page, pageSize := pagination(r)
	requests, total, err := h.requests.ListRequests(r.Context(), dealID, filter, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// AssignStage handles stage assignment HTTP requests. A null stage_id clears
// the assignment.
func (h *HTTPHandler) AssignStage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID      string  `json:"id"`
		StageID *string `json:"stage_id"`
		ActedBy string  `json:"acted_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.requests.AssignStage(r.Context(), req.ID, req.StageID, req.ActedBy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// SubmitResponse handles response submission HTTP requests.
func (h *HTTPHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.SubmitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.requests.SubmitResponse(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// ListResponses handles response listing HTTP requests.
func (h *HTTPHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	responses, err := h.requests.ListResponses(r.Context(), requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"responses": responses})
}

// AttachDocument handles document metadata upload HTTP requests.
func (h *HTTPHandler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	var req service.AttachDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.requests.AttachDocument(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// ListDocuments handles document listing HTTP requests.
func (h *HTTPHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	documents, err := h.requests.ListDocuments(r.Context(), requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"documents": documents})
}

// ApproveRequest handles approval HTTP requests.
func (h *HTTPHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.ApproveRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.requests.ApproveRequest(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// RejectRequest handles rejection HTTP requests.
func (h *HTTPHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID         string `json:"id"`
		RejectedBy string `json:"rejected_by"`
		Reason     string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.requests.RejectRequest(r.Context(), req.ID, req.RejectedBy, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// ReopenRequest handles reopen HTTP requests.
func (h *HTTPHandler) ReopenRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID      string `json:"id"`
		ActedBy string `json:"acted_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.requests.ReopenRequest(r.Context(), req.ID, req.ActedBy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// DeleteRequest handles delete request HTTP requests.
func (h *HTTPHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	if err := h.requests.DeleteRequest(r.Context(), id, r.URL.Query().Get("acted_by")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetRequestAudit handles request audit trail HTTP requests.
func (h *HTTPHandler) GetRequestAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := r.URL.Query().Get("request_id")
	if requestID == "" {
		http.Error(w, "Request ID is required", http.StatusBadRequest)
		return
	}

	entries, err := h.requests.GetAuditTrail(r.Context(), requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
