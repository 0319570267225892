package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/andreagonzahe/lunaria-app/internal/auth"
	"github.com/andreagonzahe/lunaria-app/internal/domain"
	lsync "github.com/andreagonzahe/lunaria-app/internal/sync"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Retry bool   `json:"retry,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst, answering 400 itself on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

// writeError maps an operation error to a status code. Local write
// failures ask the client to retry; validation errors carry their message.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, lsync.ErrLocalWrite):
		h.log.Error("local write failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error: "Could not save on this device. Please try again.",
			Retry: true,
		})
	case errors.Is(err, domain.ErrInvalidChecklist), errors.Is(err, domain.ErrInvalidEntity):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, lsync.ErrSyncTooRecent):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: err.Error(), Retry: true})
	default:
		h.log.Error("request failed", "path", r.URL.Path, "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

type kindBody struct {
	Kind   lsync.Kind   `json:"kind"`
	Source lsync.Source `json:"source"`
	Count  int          `json:"count"`
	Error  string       `json:"error,omitempty"`
}

// syncBody flattens a report for the wire; per-kind errors become strings.
func syncBody(r *lsync.Report) map[string]any {
	kinds := make([]kindBody, 0, len(r.Results))
	for _, res := range r.Results {
		kb := kindBody{Kind: res.Kind, Source: res.Source, Count: res.Count}
		if res.Err != nil {
			kb.Error = res.Err.Error()
		}
		kinds = append(kinds, kb)
	}
	return map[string]any{
		"syncedAt": r.SyncedAt,
		"skipped":  r.Skipped,
		"kinds":    kinds,
	}
}
