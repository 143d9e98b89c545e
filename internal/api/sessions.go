package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/models"
)

// rescanSession handles POST /sessions/{id}/rescan: runs the rescan
// gate synchronously against the session's recorded manifest. This is
// a fast re-walk-and-compare, not a copy-verify pass, so it does not go
// through the job queue the way ingest does.
func (h *handlers) rescanSession(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseULID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.rescanSession.parseID", err))
		return
	}

	session, err := h.deps.IngestSessions.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.rescanSession.loadSession", err))
		return
	}
	if session == nil {
		writeError(w, camerror.New(camerror.KindOther, "api.rescanSession.notFound"))
		return
	}

	result, err := h.deps.RescanGate.Run(r.Context(), session)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// wipeSession handles POST /sessions/{id}/wipe: deletes the session's
// verified source files once the rescan gate has cleared it.
func (h *handlers) wipeSession(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseULID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.wipeSession.parseID", err))
		return
	}

	report, err := h.deps.Wipe.Run(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
