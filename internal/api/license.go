package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/camvault/internal/camerror"
)

type licenseStateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key,omitempty"`
}

// getLicense handles GET /license, grounded on original_source's
// get_license_state.
func (h *handlers) getLicense(w http.ResponseWriter, r *http.Request) {
	state, err := h.deps.Licensing.CheckState(r.Context())
	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.getLicense", err))
		return
	}
	writeJSON(w, http.StatusOK, licenseStateResponse{Status: state.Status, Key: state.Key})
}

type activateLicenseRequest struct {
	Key string `json:"key"`
}

// activateLicense handles POST /license, grounded on original_source's
// activate_license.
func (h *handlers) activateLicense(w http.ResponseWriter, r *http.Request) {
	var req activateLicenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.activateLicense.decode", err))
		return
	}

	if req.Key == "" {
		writeError(w, camerror.New(camerror.KindInvalidPath, "api.activateLicense.missingKey"))
		return
	}

	state, err := h.deps.Licensing.Activate(r.Context(), req.Key)
	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.activateLicense", err))
		return
	}
	writeJSON(w, http.StatusOK, licenseStateResponse{Status: state.Status, Key: state.Key})
}

// deactivateLicense handles DELETE /license, grounded on
// original_source's deactivate_license.
func (h *handlers) deactivateLicense(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Licensing.Deactivate(r.Context()); err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.deactivateLicense", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type licenseAllowedResponse struct {
	Allowed bool `json:"allowed"`
}

// licenseAllowed handles GET /license/allowed/{feature}, grounded on
// original_source's is_feature_allowed.
func (h *handlers) licenseAllowed(w http.ResponseWriter, r *http.Request) {
	feature := chi.URLParam(r, "feature")
	allowed := h.deps.Licensing.IsAllowed(r.Context(), feature)
	writeJSON(w, http.StatusOK, licenseAllowedResponse{Allowed: allowed})
}
