package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// HandleGroup serves GET /groups/{name}: the per-group URI list written by
// the Emitter, as a downloadable text file.
func HandleGroup(outputDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if name == "" || strings.ContainsAny(name, `/\`) {
			WriteError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid group name")
			return
		}
		path := filepath.Join(outputDir, "groups", name+".txt")
		body, err := os.ReadFile(path)
		if err != nil {
			writeArtifactError(w, name, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.txt"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
