package api

import (
	"errors"
	"net/http"
	"os"
)

// writeArtifactError maps a filesystem lookup failure for a generated
// artifact to the appropriate HTTP status.
func writeArtifactError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, os.ErrNotExist) {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "no artifact named "+name)
		return
	}
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
}
