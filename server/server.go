// Package server exposes the gateway over HTTP: configure pages, the
// per-tenant addon endpoints, and the subtitle file proxy.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"subgate/addon"
	"subgate/config"
	"subgate/runtime"
	"subgate/store"
)

type Server struct {
	log      zerolog.Logger
	cfg      config.Config
	store    store.Store
	registry *runtime.Registry
}

func New(log zerolog.Logger, cfg config.Config, st store.Store, registry *runtime.Registry) *Server {
	return &Server{log: log, cfg: cfg, store: st, registry: registry}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(cors)

	r.Get("/", s.handleConfigureForm)
	r.Get("/configure", s.handleConfigureForm)
	r.Post("/configure", s.handleConfigureSave)
	r.Post("/test-connection", s.handleProbe)
	r.Get("/manifest.json", s.handleRootManifest)

	r.Route("/u/{key}", func(r chi.Router) {
		r.Use(s.tenantKey)
		r.Get("/configure", s.handleTenantConfigureForm)
		r.Post("/configure", s.handleTenantConfigureSave)
		r.Post("/test-connection", s.handleTenantProbe)
		r.Get("/manifest.json", s.handleManifest)
		r.Get("/file", s.handleFileProxy)
		r.Head("/file", s.handleFileProxy)
		r.Get("/subtitles/{mediaType}/*", s.handleSubtitles)
		r.Head("/subtitles/{mediaType}/*", s.handleSubtitles)
	})

	return r
}

// cors mirrors the addon convention: the player loads manifests and
// subtitle payloads cross-origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey int

const tenantKeyCtx ctxKey = 0

// tenantKey validates the /u/{key} path segment before any handler runs.
func (s *Server) tenantKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.ToLower(chi.URLParam(r, "key"))
		if !store.ValidKey(key) {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKeyCtx, key)))
	})
}

func requestKey(r *http.Request) string {
	key, _ := r.Context().Value(tenantKeyCtx).(string)
	return key
}

func (s *Server) handleRootManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, addon.RootManifest())
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	rt, err := s.registry.Get(r.Context(), requestKey(r))
	if err != nil {
		s.writeRuntimeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.Manifest)
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	rt, err := s.registry.Get(r.Context(), requestKey(r))
	if err != nil {
		s.writeRuntimeError(w, err)
		return
	}

	mediaType := chi.URLParam(r, "mediaType")
	switch mediaType {
	case "movie", "series", "other":
	default:
		http.NotFound(w, r)
		return
	}

	mediaID, _, ok := parseIDAndExtras(chi.URLParam(r, "*"))
	if !ok {
		http.Error(w, "Bad id", http.StatusBadRequest)
		return
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}

	resp := rt.GetSubtitles(r.Context(), mediaType, mediaID)
	writeJSON(w, http.StatusOK, resp)
}

// parseIDAndExtras splits the tail of a subtitles path into the media id
// and the optional extras map. Accepted shapes, with or without a ".json"
// suffix or trailing slash: "tt8367814", "tt8367814:1:5",
// "tt8367814/videoHash=abc&videoSize=123".
func parseIDAndExtras(tail string) (string, url.Values, bool) {
	tail = strings.TrimSuffix(tail, "/")
	tail = strings.TrimSuffix(tail, ".json")
	if tail == "" {
		return "", nil, false
	}
	rawID, extrasStr, _ := strings.Cut(tail, "/")
	id, err := url.PathUnescape(rawID)
	if err != nil || id == "" {
		return "", nil, false
	}
	extras, err := url.ParseQuery(extrasStr)
	if err != nil {
		extras = url.Values{}
	}
	return id, extras, true
}

func (s *Server) writeRuntimeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "configuration missing"})
		return
	}
	s.log.Error().Err(err).Msg("runtime build failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
