package api

import (
	"net/http"
	"os"
	"path/filepath"
)

var clientConfigContentType = map[string]string{
	"mihomo.yaml": "application/x-yaml; charset=utf-8",
	"clash.yaml":  "application/x-yaml; charset=utf-8",
	"surge.conf":  "text/plain; charset=utf-8",
	"singbox.json": "application/json; charset=utf-8",
	"v2ray.json":  "application/json; charset=utf-8",
}

// HandleClientConfig serves one of the generated per-client configuration
// files (/mihomo, /clash, /surge, /singbox, /v2ray). filename is the
// Emitter's on-disk artifact name for this route.
func HandleClientConfig(outputDir, filename string) http.HandlerFunc {
	contentType := clientConfigContentType[filename]
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(outputDir, filename)
		body, err := os.ReadFile(path)
		if err != nil {
			writeArtifactError(w, filename, err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
