package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

type syncHandler struct {
	runner *SyncRunner
}

func registerSyncRoutes(r *mux.Router, runner *SyncRunner) {
	h := &syncHandler{runner: runner}
	r.HandleFunc("/sync/run", h.handleRun).Methods("POST")
	r.HandleFunc("/sync/status", h.handleStatus).Methods("GET")
}

// handleRun triggers a full sync pass and returns its summary.
func (h *syncHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.RunOnce(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("sync run failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (h *syncHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary := h.runner.LastRun()
	w.Header().Set("Content-Type", "application/json")
	if summary == nil {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "last_run": nil})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "last_run": summary})
}
