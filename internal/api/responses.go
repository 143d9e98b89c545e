package api

import (
	"encoding/json"
	"net/http"

	"github.com/jmylchreest/camvault/internal/camerror"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeError maps a camerror.Kind to an HTTP status the way spec.md's
// error-kind list implies: not-found kinds to 404, already-exists and
// duplicate kinds to 409, input/validation kinds to 400, everything else
// to 500. A plain error with no kind is
// treated as an internal error.
func writeError(w http.ResponseWriter, err error) {
	kind := camerror.KindOther
	if ce, ok := camerror.KindOf(err); ok {
		kind = ce
	}

	status := http.StatusInternalServerError
	switch kind {
	case camerror.KindLibraryNotFound, camerror.KindClipNotFound, camerror.KindAssetNotFound,
		camerror.KindJobNotFound, camerror.KindFileNotFound:
		status = http.StatusNotFound
	case camerror.KindLibraryExists, camerror.KindDuplicateFile:
		status = http.StatusConflict
	case camerror.KindInvalidPath, camerror.KindUnsupportedFormat, camerror.KindConfig:
		status = http.StatusBadRequest
	}

	writeJSON(w, status, errorBody{Kind: string(kind), Message: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
