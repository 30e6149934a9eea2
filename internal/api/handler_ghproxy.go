package api

import (
	"net/http"
	"strings"

	"github.com/subagg/resin/internal/netutil"
)

const githubRawBase = "https://raw.githubusercontent.com/"

// HandleGHProxy serves GET /gh-proxy/*: a transparent passthrough to
// raw.githubusercontent.com, so clients behind a firewall can fetch a
// generated artifact's upstream mirror without reaching GitHub directly.
func HandleGHProxy(downloader netutil.Downloader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/gh-proxy/")
		if rest == "" {
			WriteError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "missing upstream path")
			return
		}
		upstream := githubRawBase + rest
		if r.URL.RawQuery != "" {
			upstream += "?" + r.URL.RawQuery
		}

		body, status, contentType, err := downloader.Download(r.Context(), upstream)
		if err != nil {
			WriteError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
			return
		}
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}
}
