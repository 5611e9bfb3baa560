package config

import (
	"fmt"
	"os"
	"time"
)

// Gateway tuning constants. These mirror the budgets the whole pipeline is
// built around: every remote-facing operation races one of them.
const (
	// ListingTTL is how long a tenant's directory listing stays valid.
	ListingTTL = 60 * time.Second

	// TraversalTimeout is the hard wall-clock bound on one remote
	// directory traversal. Partial results collected by then are final.
	TraversalTimeout = 3500 * time.Millisecond

	// MaxDepth bounds traversal recursion below the base path (base = 0).
	MaxDepth = 2

	// MetadataTimeout bounds the best-effort Cinemeta lookup.
	MetadataTimeout = 1500 * time.Millisecond

	// SubtitlesTimeout is the total budget for one subtitles query.
	SubtitlesTimeout = 2500 * time.Millisecond

	// ConnTestTimeout bounds the configure-page connection probe.
	ConnTestTimeout = 3 * time.Second

	// MaxResults caps how many subtitle descriptors one query returns.
	MaxResults = 12

	// CacheMaxAgeOK is the client cache hint for a completed query.
	CacheMaxAgeOK = 3600

	// CacheMaxAgeFallback is the client cache hint for an empty fallback
	// response, short so the player retries soon.
	CacheMaxAgeFallback = 30
)

// SubtitleExts is the set of file extensions treated as subtitle files
// during traversal, lowercased, dot included.
var SubtitleExts = map[string]bool{
	".srt": true,
	".vtt": true,
	".ass": true,
	".ssa": true,
	".sub": true,
}

// Addon identity advertised in manifests.
const (
	AddonIDPrefix    = "org.community.subgate"
	AddonVersion     = "1.3.3"
	AddonName        = "Remote Folder Subtitles"
	AddonDescription = "Matches subtitles from your own FTP server or Google Drive folder"
)

// Config holds the server-level settings read from the environment.
type Config struct {
	Port      string
	PublicURL string
	DBPath    string
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() Config {
	port := envOr("PORT", "7777")
	return Config{
		Port:      port,
		PublicURL: envOr("PUBLIC_URL", fmt.Sprintf("http://127.0.0.1:%s", port)),
		DBPath:    envOr("DB_PATH", "subgate.db"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
