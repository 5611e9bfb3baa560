package server

import (
	"net/http"
	"net/url"
	"strings"
)

// handleFileProxy streams a remote subtitle file back to the player. The
// identifier is opaque to the player; traversal sequences are rejected
// before any remote connection is attempted.
func (s *Server) handleFileProxy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filePath := q.Get("path")
	ext := strings.ToLower(q.Get("ext"))
	name := sanitizeName(q.Get("name"))

	if filePath == "" || strings.Contains(filePath, "..") {
		http.Error(w, "Bad path", http.StatusBadRequest)
		return
	}

	if ext == ".vtt" {
		w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	// Explicit filename plus an RFC 5987 fallback so non-ASCII names
	// survive instead of saving as "file".
	w.Header().Set("Content-Disposition",
		`inline; filename="`+name+`"; filename*=UTF-8''`+url.PathEscape(name))
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	rt, err := s.registry.Get(r.Context(), requestKey(r))
	if err != nil {
		s.writeRuntimeError(w, err)
		return
	}

	if err := rt.Download(r.Context(), filePath, w); err != nil {
		s.log.Error().Err(err).Str("tenant", requestKey(r)).Msg("file proxy failed")
		// Best effort: if bytes already went out the status is committed.
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("proxy error"))
	}
}

func sanitizeName(name string) string {
	name = strings.NewReplacer("/", "", "\\", "", `"`, "").Replace(name)
	if name == "" {
		return "subtitle"
	}
	return name
}
