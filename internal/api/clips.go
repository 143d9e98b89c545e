package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/models"
)

type updateClipTagsRequest struct {
	Tag string `json:"tag"`
	// Value, if present, is a set_tag(clipId, tag, value) call. If
	// absent, this is a toggle_tag(clipId, tag) call, matching spec.md
	// line 193's two distinct tag operations sharing one route.
	Value *string `json:"value,omitempty"`
}

type updateClipTagsResponse struct {
	Result bool `json:"result"`
}

// updateClipTags handles POST /clips/{id}/tags, implementing both
// toggle_tag(clipId, tag) and set_tag(clipId, tag, value) depending on
// whether the request body carries a value.
func (h *handlers) updateClipTags(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseULID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.updateClipTags.parseID", err))
		return
	}

	var req updateClipTagsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.updateClipTags.decode", err))
		return
	}
	if req.Tag == "" {
		writeError(w, camerror.New(camerror.KindInvalidPath, "api.updateClipTags.missingTag"))
		return
	}

	clip, err := h.deps.Clips.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.updateClipTags.load", err))
		return
	}
	if clip == nil {
		writeError(w, camerror.New(camerror.KindClipNotFound, "api.updateClipTags.notFound"))
		return
	}

	var result bool
	if req.Value != nil {
		if err := clip.SetTag(req.Tag, *req.Value); err != nil {
			writeError(w, camerror.Wrap(camerror.KindJSON, "api.updateClipTags.setTag", err))
			return
		}
		result = true
	} else {
		result, err = clip.ToggleTag(req.Tag)
		if err != nil {
			writeError(w, camerror.Wrap(camerror.KindJSON, "api.updateClipTags.toggleTag", err))
			return
		}
	}

	if err := h.deps.Clips.Update(r.Context(), clip); err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.updateClipTags.persist", err))
		return
	}

	writeJSON(w, http.StatusOK, updateClipTagsResponse{Result: result})
}
