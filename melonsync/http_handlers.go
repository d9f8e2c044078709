// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package melonsync

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mobiletoly/go-melonsync/internal/auth"
)

// HTTPSyncHandlers provides HTTP handlers for the pull/push sync API
type HTTPSyncHandlers struct {
	service *SyncService
	logger  *slog.Logger
}

// NewHTTPSyncHandlers creates a new instance of sync handlers
func NewHTTPSyncHandlers(service *SyncService, logger *slog.Logger) *HTTPSyncHandlers {
	return &HTTPSyncHandlers{
		service: service,
		logger:  logger,
	}
}

// HandlePull processes pull requests. Query parameters:
//
//	last_pulled_at - checkpoint from the previous pull, 0 for initial sync
//	schema_version - client schema version, defaults to 1
func (h *HTTPSyncHandlers) HandlePull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}

	lastPulledAt := int64(0)
	if v := r.URL.Query().Get("last_pulled_at"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "last_pulled_at must be an integer")
			return
		}
		if parsed < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "last_pulled_at must be >= 0")
			return
		}
		lastPulledAt = parsed
	}

	schemaVersion := 1
	if v := r.URL.Query().Get("schema_version"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "schema_version must be a positive integer")
			return
		}
		schemaVersion = parsed
	}

	response, err := h.service.ProcessPull(r.Context(), lastPulledAt, schemaVersion)
	if err != nil {
		if errors.Is(err, ErrSchemaVersion) {
			h.writeError(w, http.StatusBadRequest, "unsupported_schema_version", err.Error())
			return
		}
		h.logger.Error("Failed to process pull", "error", err, "last_pulled_at", lastPulledAt)
		h.writeError(w, http.StatusInternalServerError, "pull_failed", "Failed to process pull")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode pull response", "error", err)
	}
}

// HandlePush processes push requests. The whole batch either commits or is
// rolled back; there is no partial success surface.
func (h *HTTPSyncHandlers) HandlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed")
		return
	}

	var pushReq PushRequest
	if err := json.NewDecoder(r.Body).Decode(&pushReq); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse push request")
		return
	}

	deviceID, _ := auth.GetDeviceID(r.Context())

	if err := h.service.ProcessPush(r.Context(), &pushReq); err != nil {
		switch {
		case errors.Is(err, ErrMalformedBatch):
			h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, ErrReferentialViolation):
			h.writeError(w, http.StatusConflict, "referential_violation", err.Error())
		case errors.Is(err, ErrConcurrentPush):
			// Safe to retry the whole batch: upsert and delete are idempotent
			h.writeError(w, http.StatusConflict, "retry_push", err.Error())
		default:
			h.logger.Error("Failed to process push", "error", err, "device_id", deviceID)
			h.writeError(w, http.StatusInternalServerError, "push_failed", "Failed to process push")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(PushResponse{Message: "Changes synchronized successfully"}); err != nil {
		h.logger.Error("Failed to encode push response", "error", err, "device_id", deviceID)
	}
}

// HandleSchemaVersion returns the current schema version
func (h *HTTPSyncHandlers) HandleSchemaVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only GET method is allowed")
		return
	}
	response := SchemaVersionResponse{
		Version: h.service.GetSchemaVersion(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// writeError writes a standardized error response
func (h *HTTPSyncHandlers) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Debug("HTTP error response",
		"status_code", statusCode,
		"error_code", errorCode,
		"message", message)
}
