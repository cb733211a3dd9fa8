package handler

import "net/http"

// CategoryProgress handles per-category progress HTTP requests.
func (h *HTTPHandler) CategoryProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dealID := r.URL.Query().Get("deal_id")
	if dealID == "" {
		http.Error(w, "Deal ID is required", http.StatusBadRequest)
		return
	}

	groups, err := h.progress.CategoryProgress(r.Context(), dealID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"progress": groups})
}

// StageProgress handles per-stage progress HTTP requests.
func (h *HTTPHandler) StageProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dealID := r.URL.Query().Get("deal_id")
	if dealID == "" {
		http.Error(w, "Deal ID is required", http.StatusBadRequest)
		return
	}

	groups, err := h.progress.StageProgress(r.Context(), dealID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"progress": groups})
}
