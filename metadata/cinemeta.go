package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"subgate/config"
)

const defaultBaseURL = "https://v3-cinemeta.strem.io"

// Meta is the slice of a Cinemeta record the matcher cares about.
type Meta struct {
	Name string
	Year string
}

func (m *Meta) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name string          `json:"name"`
		Year json.RawMessage `json:"year"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m.Name = raw.Name
	m.Year = yearString(raw.Year)
	return nil
}

// yearString accepts the year as a JSON string or number; Cinemeta uses
// both depending on the record kind.
func yearString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// Client resolves media ids to canonical titles via Cinemeta. Lookups are
// best effort: any failure mode yields a nil Meta, never an error.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: config.MetadataTimeout,
		},
		log: log.With().Str("component", "cinemeta").Logger(),
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub.
func NewClientWithBaseURL(log zerolog.Logger, baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "cinemeta").Logger(),
	}
}

// Lookup fetches metadata for a media id, stripping any sub-identifier
// suffix (text after the first colon) first. A non-2xx status, network
// error, parse error or timeout all return nil.
func (c *Client) Lookup(ctx context.Context, mediaType, mediaID string) *Meta {
	baseID := strings.SplitN(mediaID, ":", 2)[0]
	metaURL := fmt.Sprintf("%s/meta/%s/%s.json",
		c.baseURL, url.PathEscape(mediaType), url.PathEscape(baseID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", "subgate")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("id", baseID).Msg("metadata lookup failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug().Int("status", resp.StatusCode).Str("id", baseID).Msg("metadata lookup non-ok")
		return nil
	}

	var envelope struct {
		Meta *Meta `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.log.Debug().Err(err).Str("id", baseID).Msg("metadata decode failed")
		return nil
	}
	return envelope.Meta
}
