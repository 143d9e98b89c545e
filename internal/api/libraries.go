package api

import (
	"net/http"

	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/library"
	"github.com/jmylchreest/camvault/internal/models"
)

type createLibraryRequest struct {
	Name       string `json:"name"`
	RootPath   string `json:"root_path"`
	IngestMode string `json:"ingest_mode,omitempty"`
}

// createLibrary handles POST /libraries: create a new on-disk library
// record. Opening it is a separate, explicit step (POST
// /libraries/open), mirroring spec.md §9's framing of the open-library
// handle as distinct process state from the library's own row.
func (h *handlers) createLibrary(w http.ResponseWriter, r *http.Request) {
	var req createLibraryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.createLibrary.decode", err))
		return
	}

	lib := &models.Library{
		Name:       req.Name,
		RootPath:   req.RootPath,
		IngestMode: models.IngestMode(req.IngestMode),
	}

	if existing, err := h.deps.Libraries.GetByRootPath(r.Context(), req.RootPath); err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.createLibrary.checkExisting", err))
		return
	} else if existing != nil {
		writeError(w, camerror.New(camerror.KindLibraryExists, "api.createLibrary.alreadyExists"))
		return
	}

	if err := library.InitFolders(req.RootPath); err != nil {
		writeError(w, err)
		return
	}

	if err := h.deps.Libraries.Create(r.Context(), lib); err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.createLibrary.create", err))
		return
	}

	writeJSON(w, http.StatusCreated, lib)
}

type openLibraryRequest struct {
	ID       string `json:"id,omitempty"`
	RootPath string `json:"root_path,omitempty"`
}

// openLibrary handles POST /libraries/open: resolve a library by ID or
// root path and install it as the process-wide open library.
func (h *handlers) openLibrary(w http.ResponseWriter, r *http.Request) {
	var req openLibraryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.openLibrary.decode", err))
		return
	}

	var library *models.Library
	var err error

	switch {
	case req.ID != "":
		var id models.ULID
		id, err = models.ParseULID(req.ID)
		if err != nil {
			writeError(w, camerror.Wrap(camerror.KindInvalidPath, "api.openLibrary.parseID", err))
			return
		}
		library, err = h.deps.Libraries.GetByID(r.Context(), id)
	case req.RootPath != "":
		library, err = h.deps.Libraries.GetByRootPath(r.Context(), req.RootPath)
	default:
		writeError(w, camerror.New(camerror.KindInvalidPath, "api.openLibrary.missingSelector"))
		return
	}

	if err != nil {
		writeError(w, camerror.Wrap(camerror.KindDatabase, "api.openLibrary.lookup", err))
		return
	}
	if library == nil {
		writeError(w, camerror.New(camerror.KindLibraryNotFound, "api.openLibrary.notFound"))
		return
	}

	h.deps.Libs.Open(library)
	writeJSON(w, http.StatusOK, library)
}

// closeLibrary handles POST /libraries/close: clear the process-wide
// open-library slot. Closing when nothing is open is a no-op.
func (h *handlers) closeLibrary(w http.ResponseWriter, r *http.Request) {
	h.deps.Libs.Close()
	w.WriteHeader(http.StatusNoContent)
}

type libraryRootResponse struct {
	RootPath string `json:"root_path"`
}

// libraryRoot handles GET /libraries/root: return the currently open
// library's root path, or 404 if none is open.
func (h *handlers) libraryRoot(w http.ResponseWriter, r *http.Request) {
	library, err := h.deps.Libs.Current()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, libraryRootResponse{RootPath: library.RootPath})
}
