package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/clearstone-ma/be-diligence/internal/service"
)

// CreateDeal handles create deal HTTP requests.
func (h *HTTPHandler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	var req service.CreateDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	deal, err := h.deals.CreateDeal(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, deal)
}

// GetDeal handles get deal HTTP requests.
func (h *HTTPHandler) GetDeal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Deal ID is required", http.StatusBadRequest)
		return
	}

	deal, err := h.deals.GetDeal(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, deal)
}

// ListDeals handles list deals HTTP requests.
func (h *HTTPHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	var statusPtr *string
	if status := r.URL.Query().Get("status"); status != "" {
		statusPtr = &status
	}
	page, pageSize := pagination(r)

	deals, total, err := h.deals.ListDeals(r.Context(), statusPtr, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"deals":    deals,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// UpdateDealStatus handles deal status transition HTTP requests.
func (h *HTTPHandler) UpdateDealStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	deal, err := h.deals.UpdateDealStatus(r.Context(), req.ID, req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, deal)
}

// DeleteDeal handles delete deal HTTP requests.
func (h *HTTPHandler) DeleteDeal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Deal ID is required", http.StatusBadRequest)
		return
	}

	if err := h.deals.DeleteDeal(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDealAudit handles deal audit trail HTTP requests.
func (h *HTTPHandler) GetDealAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dealID := r.URL.Query().Get("deal_id")
	if dealID == "" {
		http.Error(w, "Deal ID is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 100
	}

	entries, err := h.requests.GetDealAudit(r.Context(), dealID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// pagination reads page/page_size query params with the usual bounds.
func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	return page, pageSize
}
