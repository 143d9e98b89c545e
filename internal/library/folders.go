// Package library provisions the on-disk folder structure a library
// root needs before anything can be ingested into it, grounded on
// spec.md §3 and the original implementation's init_library_folders.
package library

import (
	"os"
	"path/filepath"

	"github.com/jmylchreest/camvault/internal/camerror"
)

// DadcamFolder is the hidden subtree holding the embedded database,
// sidecars, and every derived-asset kind.
const DadcamFolder = ".dadcam"

// OriginalsFolder is the top-level (not hidden) tree copy-mode original
// assets land in, per spec.md §6's bit-exact on-disk layout.
const OriginalsFolder = "originals"

// hiddenSubfolders are the fixed subdirectories spec.md §3 names inside
// .dadcam/: proxies, thumbs, sprites, exports, and sidecars. ".dadcam/originals"
// is also provisioned, but only as copy staging - the final home for
// copy-mode assets is the top-level OriginalsFolder.
var hiddenSubfolders = []string{"proxies", "thumbs", "sprites", "exports", "sidecars", "originals"}

// InitFolders provisions a freshly created library's hidden .dadcam/
// subtree plus the top-level originals/ tree. Safe to call on an
// already-provisioned root: every directory is created with MkdirAll.
func InitFolders(rootPath string) error {
	dadcam := filepath.Join(rootPath, DadcamFolder)
	if err := os.MkdirAll(dadcam, 0o755); err != nil {
		return camerror.Wrap(camerror.KindIO, "library.initFolders.dadcam", err)
	}
	for _, sub := range hiddenSubfolders {
		if err := os.MkdirAll(filepath.Join(dadcam, sub), 0o755); err != nil {
			return camerror.Wrap(camerror.KindIO, "library.initFolders.dadcamSub", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(rootPath, OriginalsFolder), 0o755); err != nil {
		return camerror.Wrap(camerror.KindIO, "library.initFolders.originals", err)
	}
	return nil
}
