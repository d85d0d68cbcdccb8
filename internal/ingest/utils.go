package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/cert-verifier/constants"
)

// AllowedExt checks if a file extension is one the pipeline can verify.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
