package handlers

import (
	"net/http"
)

// GetSummary reports per-list item counts for the authenticated
// account: total, pending and completed per list, newest list first.
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	summaries, err := h.db.ListSummaries(account.ID)
	if err != nil {
		storageFail(w, "ListSummaries", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "summary": summaries})
}
