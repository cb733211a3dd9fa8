package handler

import (
	"encoding/json"
	"net/http"

	"github.com/clearstone-ma/be-diligence/internal/service"
)

// CreateStage handles create stage HTTP requests.
func (h *HTTPHandler) CreateStage(w http.ResponseWriter, r *http.Request) {
	var req service.CreateStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	stage, err := h.stages.CreateStage(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, stage)
}

// GetStage handles get stage HTTP requests.
func (h *HTTPHandler) GetStage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Stage ID is required", http.StatusBadRequest)
		return
	}

	stage, err := h.stages.GetStage(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stage)
}

// ListStages handles list stages HTTP requests.
func (h *HTTPHandler) ListStages(w http.ResponseWriter, r *http.Request) {
	dealID := r.URL.Query().Get("deal_id")
	if dealID == "" {
		http.Error(w, "Deal ID is required", http.StatusBadRequest)
		return
	}
	activeOnly := r.URL.Query().Get("include_inactive") != "true"

	stages, err := h.stages.ListStages(r.Context(), dealID, activeOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"stages": stages})
}

// UpdateStage handles stage edit HTTP requests.
func (h *HTTPHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.UpdateStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	stage, err := h.stages.UpdateStage(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stage)
}

// ReorderStages handles workflow reorder HTTP requests.
func (h *HTTPHandler) ReorderStages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		DealID   string   `json:"deal_id"`
		StageIDs []string `json:"stage_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	stages, err := h.stages.ReorderStages(r.Context(), req.DealID, req.StageIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"stages": stages})
}

// DeleteStage handles delete stage HTTP requests.
func (h *HTTPHandler) DeleteStage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Stage ID is required", http.StatusBadRequest)
		return
	}

	if err := h.stages.DeleteStage(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DealBoard handles stage board HTTP requests.
func (h *HTTPHandler) DealBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dealID := r.URL.Query().Get("deal_id")
	if dealID == "" {
		http.Error(w, "Deal ID is required", http.StatusBadRequest)
		return
	}

	board, err := h.stages.DealBoard(r.Context(), dealID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, board)
}
