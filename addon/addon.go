// Package addon holds the wire types of the Stremio addon surface: the
// manifest advertised per tenant and the subtitles response shape.
package addon

import (
	"fmt"

	"subgate/config"
)

// Manifest is the static capability descriptor a media player installs.
type Manifest struct {
	ID            string         `json:"id"`
	Version       string         `json:"version"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Resources     []string       `json:"resources"`
	Types         []string       `json:"types"`
	Catalogs      []Catalog      `json:"catalogs"`
	BehaviorHints *BehaviorHints `json:"behaviorHints,omitempty"`
}

// BehaviorHints provides hints about addon behavior.
type BehaviorHints struct {
	Configurable          bool `json:"configurable,omitempty"`
	ConfigurationRequired bool `json:"configurationRequired,omitempty"`
}

// Catalog defines a catalog in the manifest. This addon advertises none,
// but the field must serialize as an empty array.
type Catalog struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subtitle is one ranked candidate returned to the player. ID is a stable
// content-derived hash so the player can dedup across queries.
type Subtitle struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Lang  string `json:"lang"`
	Title string `json:"title"`
	Name  string `json:"name"`
}

// SubtitlesResponse is the payload of one subtitles query. CacheMaxAge is
// the player-side cache hint in seconds; short on fallback so the player
// retries soon.
type SubtitlesResponse struct {
	Subtitles   []Subtitle `json:"subtitles"`
	CacheMaxAge int        `json:"cacheMaxAge"`
}

// TenantManifest builds the manifest for one configured tenant.
func TenantManifest(key string) Manifest {
	return Manifest{
		ID:          fmt.Sprintf("%s.%s", config.AddonIDPrefix, key),
		Version:     config.AddonVersion,
		Name:        config.AddonName,
		Description: config.AddonDescription,
		Resources:   []string{"subtitles"},
		Types:       []string{"movie", "series", "other"},
		Catalogs:    []Catalog{},
		BehaviorHints: &BehaviorHints{
			Configurable: true,
		},
	}
}

// RootManifest is served to users who have not configured a tenant yet.
func RootManifest() Manifest {
	return Manifest{
		ID:          config.AddonIDPrefix,
		Version:     config.AddonVersion,
		Name:        config.AddonName + " (not configured)",
		Description: "Open /configure to set up your remote folder and install your personal link",
		Resources:   []string{"subtitles"},
		Types:       []string{"movie", "series", "other"},
		Catalogs:    []Catalog{},
		BehaviorHints: &BehaviorHints{
			Configurable:          true,
			ConfigurationRequired: true,
		},
	}
}
