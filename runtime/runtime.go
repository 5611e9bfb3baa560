// Package runtime composes one tenant's configuration, metadata lookup,
// listing cache and matching into the getSubtitles capability, and keeps
// the process-wide registry of built runtimes.
package runtime

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"subgate/addon"
	"subgate/config"
	"subgate/listing"
	"subgate/match"
	"subgate/metadata"
	"subgate/remote"
	"subgate/store"
)

// Deps are the process-wide collaborators shared by all tenant runtimes.
type Deps struct {
	Store     store.Store
	Meta      *metadata.Client
	Listings  *listing.Cache
	PublicURL string
	Log       zerolog.Logger
}

// Runtime is one tenant's live instance: an immutable config snapshot, the
// derived manifest, and the subtitles pipeline. Config edits do not reach a
// built runtime; the registry replaces it instead.
type Runtime struct {
	Manifest addon.Manifest

	cfg  store.TenantConfig
	src  remote.Source
	deps Deps
	log  zerolog.Logger
}

// New builds a runtime for key. Fails with store.ErrNotFound (wrapped) when
// the key has no stored configuration.
func New(ctx context.Context, deps Deps, key string) (*Runtime, error) {
	cfg, err := deps.Store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("runtime for %s: %w", key, err)
	}
	return &Runtime{
		Manifest: addon.TenantManifest(key),
		cfg:      cfg,
		src:      SourceFor(cfg),
		deps:     deps,
		log:      deps.Log.With().Str("component", "runtime").Str("tenant", key).Logger(),
	}, nil
}

// SourceFor maps a tenant config onto its remote directory source.
func SourceFor(cfg store.TenantConfig) remote.Source {
	if cfg.Kind == store.KindDrive {
		return &remote.DriveSource{
			FolderID: cfg.DriveFolderID,
			Token:    cfg.DriveToken,
		}
	}
	return &remote.FTPSource{
		Host:     cfg.FTPHost,
		User:     cfg.FTPUser,
		Password: cfg.FTPPass,
		Secure:   cfg.FTPSecure,
		BasePath: cfg.FTPBase,
	}
}

// Config returns the immutable config snapshot the runtime was built from.
func (rt *Runtime) Config() store.TenantConfig { return rt.cfg }

// GetSubtitles runs the full pipeline — metadata, signals, listing,
// scoring, descriptor construction — racing the total budget. It never
// fails: the worst case is an empty response with a short cache hint.
func (rt *Runtime) GetSubtitles(ctx context.Context, mediaType, mediaID string) addon.SubtitlesResponse {
	fallback := addon.SubtitlesResponse{
		Subtitles:   []addon.Subtitle{},
		CacheMaxAge: config.CacheMaxAgeFallback,
	}
	started := time.Now()
	resp := withTimeout(ctx, config.SubtitlesTimeout, fallback, func(ctx context.Context) (out addon.SubtitlesResponse) {
		out = fallback
		defer func() {
			if r := recover(); r != nil {
				rt.log.Error().Interface("panic", r).Msg("subtitles pipeline panicked")
			}
		}()
		return rt.collect(ctx, mediaType, mediaID)
	})
	rt.log.Debug().Str("type", mediaType).Str("id", mediaID).
		Int("subtitles", len(resp.Subtitles)).Dur("took", time.Since(started)).
		Msg("subtitles query")
	return resp
}

func (rt *Runtime) collect(ctx context.Context, mediaType, mediaID string) addon.SubtitlesResponse {
	meta := rt.deps.Meta.Lookup(ctx, mediaType, mediaID)
	sig := match.BuildSignals(mediaType, mediaID, meta)
	files := rt.deps.Listings.ListFiles(ctx, rt.cfg.Key, rt.src)

	type scoredFile struct {
		file  remote.File
		score int
	}
	all := make([]scoredFile, 0, len(files))
	for _, f := range files {
		all = append(all, scoredFile{file: f, score: match.Score(f.Name, sig)})
	}

	picked := make([]scoredFile, 0, config.MaxResults)
	for _, s := range all {
		if s.score > 0 {
			picked = append(picked, s)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].score > picked[j].score })
	if len(picked) > config.MaxResults {
		picked = picked[:config.MaxResults]
	}
	if len(picked) == 0 {
		// No heuristic match: hand back the first files in traversal
		// order rather than nothing.
		n := min(config.MaxResults, len(all))
		picked = all[:n]
	}

	subtitles := make([]addon.Subtitle, 0, len(picked))
	for _, s := range picked {
		subtitles = append(subtitles, rt.descriptor(s.file))
	}
	return addon.SubtitlesResponse{Subtitles: subtitles, CacheMaxAge: config.CacheMaxAgeOK}
}

func (rt *Runtime) descriptor(f remote.File) addon.Subtitle {
	sum := md5.Sum([]byte(f.ID))
	q := url.Values{}
	q.Set("path", f.ID)
	q.Set("ext", remote.ExtLower(f.Name))
	q.Set("name", f.Name)
	label := fmt.Sprintf("%s · %s", kindLabel(rt.cfg.Kind), f.Name)
	return addon.Subtitle{
		ID:    hex.EncodeToString(sum[:]),
		URL:   fmt.Sprintf("%s/u/%s/file?%s", rt.deps.PublicURL, rt.cfg.Key, q.Encode()),
		Lang:  match.DetectLanguage(f.Name),
		Title: label,
		Name:  label,
	}
}

// Download streams one remote file into w over a fresh connection.
func (rt *Runtime) Download(ctx context.Context, fileID string, w io.Writer) error {
	conn, err := rt.src.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Download(ctx, fileID, w)
}

func kindLabel(kind store.RemoteKind) string {
	if kind == store.KindDrive {
		return "Drive"
	}
	return "FTP"
}

// withTimeout races fn against the budget. The winner's value is returned;
// on timeout the fallback is returned and the loser is abandoned with its
// context canceled so it releases resources on its own.
func withTimeout[T any](ctx context.Context, d time.Duration, fallback T, fn func(context.Context) T) T {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan T, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case v := <-done:
		return v
	case <-ctx.Done():
		return fallback
	}
}
