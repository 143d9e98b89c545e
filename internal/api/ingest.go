package api

import (
	"net/http"

	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/models"
)

type startIngestRequest struct {
	SourceRoot       string `json:"source_root"`
	DeviceSerial     string `json:"device_serial,omitempty"`
	DeviceLabel      string `json:"device_label,omitempty"`
	DeviceMountPoint string `json:"device_mount_point,omitempty"`
}

type startIngestResponse struct {
	SessionID string `json:"session_id"`
	JobID     string `json:"job_id"`
}

// startIngest handles POST /ingest: create an ingest session for
// source_root and enqueue an ingest job for it. The job itself walks
// and seals the manifest (internal/ingest.Pipeline.Seal) once it runs,
// so this handler only needs to persist the session row and its job.
func (h *handlers) startIngest(w http.ResponseWriter, r *http.Request) {
	var req startIngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.startIngest.decode", err))
		return
	}
	if req.SourceRoot == "" {
		writeError(w, camerror.New(camerror.KindInvalidPath, "api.startIngest.missingSourceRoot"))
		return
	}

	if _, err := h.deps.Libs.Current(); err != nil {
		writeError(w, err)
		return
	}

	session := &models.IngestSession{
		SourceRoot:       req.SourceRoot,
		DeviceSerial:     req.DeviceSerial,
		DeviceLabel:      req.DeviceLabel,
		DeviceMountPoint: req.DeviceMountPoint,
	}
	if err := h.deps.IngestSessions.Create(r.Context(), session); err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.startIngest.createSession", err))
		return
	}

	job := models.NewIngestJob(session.ID, req.SourceRoot)
	if err := h.deps.Jobs.Create(r.Context(), job); err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.startIngest.createJob", err))
		return
	}

	session.JobID = job.ID
	if err := h.deps.IngestSessions.Update(r.Context(), session); err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.startIngest.linkJob", err))
		return
	}

	writeJSON(w, http.StatusAccepted, startIngestResponse{
		SessionID: session.ID.String(),
		JobID:     job.ID.String(),
	})
}
