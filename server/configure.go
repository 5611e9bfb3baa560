package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"subgate/remote"
	"subgate/runtime"
	"subgate/store"
)

func (s *Server) handleConfigureForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, store.TenantConfig{FTPBase: "/subtitles"}, "/configure")
}

func (s *Server) handleTenantConfigureForm(w http.ResponseWriter, r *http.Request) {
	key := requestKey(r)
	prefill, err := s.store.Get(r.Context(), key)
	if err != nil {
		prefill = store.TenantConfig{FTPBase: "/subtitles"}
	}
	s.renderForm(w, prefill, "/u/"+key+"/configure")
}

func (s *Server) handleConfigureSave(w http.ResponseWriter, r *http.Request) {
	key, err := store.NewKey()
	if err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	s.saveConfig(w, r, key)
}

func (s *Server) handleTenantConfigureSave(w http.ResponseWriter, r *http.Request) {
	s.saveConfig(w, r, requestKey(r))
}

func (s *Server) saveConfig(w http.ResponseWriter, r *http.Request, key string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad form", http.StatusBadRequest)
		return
	}
	cfg := configFromForm(r, key)
	if err := s.store.Set(r.Context(), cfg); err != nil {
		s.log.Error().Err(err).Str("tenant", key).Msg("config save failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	// Replace the runtime so the new connection parameters take effect
	// immediately; config writes alone never touch the registry.
	if _, err := s.registry.Rebuild(r.Context(), key); err != nil {
		s.log.Error().Err(err).Str("tenant", key).Msg("runtime rebuild failed")
	}
	s.log.Info().Str("tenant", key).Str("kind", string(cfg.Kind)).Msg("tenant configured")
	s.renderConfigured(w, key)
}

func configFromForm(r *http.Request, key string) store.TenantConfig {
	kind := store.KindFTP
	if r.FormValue("remoteKind") == string(store.KindDrive) {
		kind = store.KindDrive
	}
	base := strings.TrimSpace(r.FormValue("ftpBase"))
	if base == "" {
		base = "/subtitles"
	}
	return store.TenantConfig{
		Key:           key,
		Kind:          kind,
		FTPHost:       strings.TrimSpace(r.FormValue("ftpHost")),
		FTPUser:       strings.TrimSpace(r.FormValue("ftpUser")),
		FTPPass:       r.FormValue("ftpPass"),
		FTPSecure:     r.FormValue("ftpSecure") != "",
		FTPBase:       base,
		DriveFolderID: strings.TrimSpace(r.FormValue("driveFolderId")),
		DriveToken:    strings.TrimSpace(r.FormValue("driveToken")),
	}
}

// probeRequest carries optional overrides; absent fields fall back to the
// stored tenant config on the per-tenant endpoint.
type probeRequest struct {
	RemoteKind    *string `json:"remoteKind"`
	FTPHost       *string `json:"ftpHost"`
	FTPUser       *string `json:"ftpUser"`
	FTPPass       *string `json:"ftpPass"`
	FTPSecure     *bool   `json:"ftpSecure"`
	FTPBase       *string `json:"ftpBase"`
	DriveFolderID *string `json:"driveFolderId"`
	DriveToken    *string `json:"driveToken"`
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProbeRequest(w, r)
	if !ok {
		return
	}
	cfg := req.apply(store.TenantConfig{})
	writeJSON(w, http.StatusOK, remote.Probe(r.Context(), runtime.SourceFor(cfg)))
}

func (s *Server) handleTenantProbe(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProbeRequest(w, r)
	if !ok {
		return
	}
	cfg, err := s.store.Get(r.Context(), requestKey(r))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	cfg = req.apply(cfg)
	writeJSON(w, http.StatusOK, remote.Probe(r.Context(), runtime.SourceFor(cfg)))
}

func decodeProbeRequest(w http.ResponseWriter, r *http.Request) (probeRequest, bool) {
	// Bodies are small; read fully, then parse.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, remote.ProbeResult{OK: false, Error: "bad_body"})
		return probeRequest{}, false
	}
	var req probeRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, remote.ProbeResult{OK: false, Error: "bad_json"})
			return probeRequest{}, false
		}
	}
	return req, true
}

func (p probeRequest) apply(cfg store.TenantConfig) store.TenantConfig {
	if p.RemoteKind != nil {
		cfg.Kind = store.RemoteKind(*p.RemoteKind)
	}
	if cfg.Kind == "" {
		cfg.Kind = store.KindFTP
	}
	if p.FTPHost != nil {
		cfg.FTPHost = *p.FTPHost
	}
	if p.FTPUser != nil {
		cfg.FTPUser = *p.FTPUser
	}
	if p.FTPPass != nil {
		cfg.FTPPass = *p.FTPPass
	}
	if p.FTPSecure != nil {
		cfg.FTPSecure = *p.FTPSecure
	}
	if p.FTPBase != nil {
		cfg.FTPBase = *p.FTPBase
	}
	if p.DriveFolderID != nil {
		cfg.DriveFolderID = *p.DriveFolderID
	}
	if p.DriveToken != nil {
		cfg.DriveToken = *p.DriveToken
	}
	return cfg
}
