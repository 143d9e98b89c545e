package api

import (
	"net/http"

	"github.com/jmylchreest/camvault/internal/camerror"
)

type diagnosticsResponse struct {
	Enabled bool `json:"enabled"`
}

// getDiagnostics handles GET /diagnostics, grounded on
// original_source's get_diagnostics_enabled.
func (h *handlers) getDiagnostics(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.deps.Diagnostics.Enabled(r.Context())
	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.getDiagnostics", err))
		return
	}
	writeJSON(w, http.StatusOK, diagnosticsResponse{Enabled: enabled})
}

// setDiagnostics handles PUT /diagnostics, grounded on
// original_source's set_diagnostics_enabled.
func (h *handlers) setDiagnostics(w http.ResponseWriter, r *http.Request) {
	var req diagnosticsResponse
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.setDiagnostics.decode", err))
		return
	}
	if err := h.deps.Diagnostics.SetEnabled(r.Context(), req.Enabled); err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.setDiagnostics", err))
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type logDirectoryResponse struct {
	Path string `json:"path"`
}

// logDirectory handles GET /diagnostics/logs, grounded on
// original_source's get_log_directory.
func (h *handlers) logDirectory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, logDirectoryResponse{Path: h.deps.Diagnostics.LogDirectory()})
}

type exportLogsRequest struct {
	TargetDir string `json:"target_dir"`
}

type exportLogsResponse struct {
	Copied int `json:"copied"`
}

// exportLogs handles POST /diagnostics/logs/export, grounded on
// original_source's export_logs.
func (h *handlers) exportLogs(w http.ResponseWriter, r *http.Request) {
	var req exportLogsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.exportLogs.decode", err))
		return
	}
	if req.TargetDir == "" {
		writeError(w, camerror.New(camerror.KindInvalidPath, "api.exportLogs.missingTargetDir"))
		return
	}

	copied, err := h.deps.Diagnostics.ExportLogs(req.TargetDir)
	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindIO, "api.exportLogs", err))
		return
	}
	writeJSON(w, http.StatusOK, exportLogsResponse{Copied: copied})
}
