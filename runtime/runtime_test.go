package runtime

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgate/addon"
	"subgate/listing"
	"subgate/metadata"
	"subgate/remote"
	"subgate/store"
)

const testKey = "0123456789abcdef"

// fakeSource serves a flat directory of filenames.
type fakeSource struct {
	names    []string
	contents map[string]string
	block    bool
}

func (s *fakeSource) Connect(ctx context.Context) (remote.Conn, error) {
	return &fakeConn{src: s, done: make(chan struct{})}, nil
}

func (s *fakeSource) Kind() string    { return "ftp" }
func (s *fakeSource) BaseRef() string { return "/" }

type fakeConn struct {
	src       *fakeSource
	done      chan struct{}
	closeOnce sync.Once
}

func (c *fakeConn) List(ctx context.Context, ref string) ([]remote.Entry, error) {
	if c.src.block {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, fmt.Errorf("connection closed")
		}
	}
	entries := make([]remote.Entry, 0, len(c.src.names))
	for _, n := range c.src.names {
		entries = append(entries, remote.Entry{Name: n, Ref: "/" + n})
	}
	return entries, nil
}

func (c *fakeConn) Download(ctx context.Context, fileID string, w io.Writer) error {
	body, ok := c.src.contents[fileID]
	if !ok {
		return fmt.Errorf("no such file %s", fileID)
	}
	_, err := io.WriteString(w, body)
	return err
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// metaStub serves one canned Cinemeta body, or a 404 when body is empty.
func metaStub(t *testing.T, body string) *metadata.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if body == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return metadata.NewClientWithBaseURL(zerolog.Nop(), srv.URL, time.Second)
}

func testRuntime(t *testing.T, src remote.Source, meta *metadata.Client) *Runtime {
	t.Helper()
	deps := Deps{
		Store:     store.NewMemoryStore(),
		Meta:      meta,
		Listings:  listing.NewCache(zerolog.Nop()),
		PublicURL: "http://localhost:7000",
		Log:       zerolog.Nop(),
	}
	return &Runtime{
		Manifest: addon.TenantManifest(testKey),
		cfg:      store.TenantConfig{Key: testKey, Kind: store.KindFTP},
		src:      src,
		deps:     deps,
		log:      zerolog.Nop(),
	}
}

func TestGetSubtitlesMovie(t *testing.T) {
	src := &fakeSource{names: []string{
		"Movie.Name.2020.en.srt",
		"Movie.Name.2020.chs.srt",
		"unrelated.srt",
	}}
	rt := testRuntime(t, src, metaStub(t, `{"meta":{"name":"Movie Name","year":"2020"}}`))

	resp := rt.GetSubtitles(context.Background(), "movie", "tt8367814")

	require.Len(t, resp.Subtitles, 2)
	assert.Equal(t, 3600, resp.CacheMaxAge)

	// The chs token doubles as a generic subtitle indicator, so the
	// Chinese file outranks the English one by a point.
	assert.Equal(t, "zh", resp.Subtitles[0].Lang)
	assert.Equal(t, "en", resp.Subtitles[1].Lang)
	for _, sub := range resp.Subtitles {
		assert.Contains(t, sub.URL, "http://localhost:7000/u/"+testKey+"/file?")
		assert.Contains(t, sub.Title, "FTP · ")
	}
}

func TestGetSubtitlesSeriesTag(t *testing.T) {
	src := &fakeSource{names: []string{
		"Show.S01E05.eng.srt",
		"Show.S02E01.eng.srt",
	}}
	// No metadata: the episode tag alone must rank the right file first.
	rt := testRuntime(t, src, metaStub(t, ""))

	resp := rt.GetSubtitles(context.Background(), "series", "tt0903747:1:5")

	require.NotEmpty(t, resp.Subtitles)
	assert.Contains(t, resp.Subtitles[0].Name, "Show.S01E05.eng.srt")
	assert.Equal(t, 3600, resp.CacheMaxAge)
}

func TestGetSubtitlesFallbackOrder(t *testing.T) {
	// Nothing scores: the response is the head of the traversal order.
	names := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		names = append(names, fmt.Sprintf("file%02d.srt", i))
	}
	rt := testRuntime(t, &fakeSource{names: names}, metaStub(t, ""))

	resp := rt.GetSubtitles(context.Background(), "movie", "tt123")

	require.Len(t, resp.Subtitles, 12)
	assert.Contains(t, resp.Subtitles[0].Name, "file00.srt")
	assert.Equal(t, 3600, resp.CacheMaxAge)
}

func TestGetSubtitlesCapsResults(t *testing.T) {
	names := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		names = append(names, fmt.Sprintf("Movie.Name.part%02d.srt", i))
	}
	rt := testRuntime(t, &fakeSource{names: names}, metaStub(t, `{"meta":{"name":"Movie Name","year":"2020"}}`))

	resp := rt.GetSubtitles(context.Background(), "movie", "tt123")
	assert.Len(t, resp.Subtitles, 12)
}

func TestGetSubtitlesSlowMetadataStillAnswers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"meta":{"name":"Too Late"}}`))
	}))
	t.Cleanup(srv.Close)
	meta := metadata.NewClientWithBaseURL(zerolog.Nop(), srv.URL, 50*time.Millisecond)

	src := &fakeSource{names: []string{"Show.S01E05.eng.srt"}}
	rt := testRuntime(t, src, meta)

	resp := rt.GetSubtitles(context.Background(), "series", "tt123:1:5")

	// The title signal is lost but the id-derived tag still matches.
	require.NotEmpty(t, resp.Subtitles)
	assert.Contains(t, resp.Subtitles[0].Name, "Show.S01E05.eng.srt")
}

func TestGetSubtitlesHangingSourceFallsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the full query budget")
	}
	rt := testRuntime(t, &fakeSource{block: true}, metaStub(t, ""))

	started := time.Now()
	resp := rt.GetSubtitles(context.Background(), "movie", "tt123")
	elapsed := time.Since(started)

	assert.Empty(t, resp.Subtitles)
	assert.Equal(t, 30, resp.CacheMaxAge)
	assert.Less(t, elapsed, 3500*time.Millisecond, "query must not outlive its budget")
}

func TestDescriptor(t *testing.T) {
	rt := testRuntime(t, &fakeSource{}, metaStub(t, ""))

	f := remote.File{ID: "/subs/Movie.Name.2020.chs.srt", Name: "Movie.Name.2020.chs.srt"}
	sub := rt.descriptor(f)

	sum := md5.Sum([]byte(f.ID))
	assert.Equal(t, hex.EncodeToString(sum[:]), sub.ID)
	assert.Equal(t, "zh", sub.Lang)
	assert.Equal(t, "FTP · Movie.Name.2020.chs.srt", sub.Title)
	assert.Equal(t, sub.Title, sub.Name)

	u, err := url.Parse(sub.URL)
	require.NoError(t, err)
	assert.Equal(t, "/u/"+testKey+"/file", u.Path)
	assert.Equal(t, f.ID, u.Query().Get("path"))
	assert.Equal(t, ".srt", u.Query().Get("ext"))
	assert.Equal(t, f.Name, u.Query().Get("name"))

	// Same file id, same descriptor id: players dedup across queries.
	assert.Equal(t, sub.ID, rt.descriptor(f).ID)
}

func TestDownload(t *testing.T) {
	src := &fakeSource{contents: map[string]string{
		"/subs/a.srt": "1\n00:00:01,000 --> 00:00:02,000\nhello\n",
	}}
	rt := testRuntime(t, src, metaStub(t, ""))

	var buf strings.Builder
	require.NoError(t, rt.Download(context.Background(), "/subs/a.srt", &buf))
	assert.Contains(t, buf.String(), "hello")

	assert.Error(t, rt.Download(context.Background(), "/missing.srt", &strings.Builder{}))
}

func TestWithTimeout(t *testing.T) {
	ctx := context.Background()

	got := withTimeout(ctx, time.Second, -1, func(ctx context.Context) int { return 42 })
	assert.Equal(t, 42, got, "fast fn wins the race")

	started := time.Now()
	got = withTimeout(ctx, 20*time.Millisecond, -1, func(ctx context.Context) int {
		<-ctx.Done()
		return 42
	})
	assert.Equal(t, -1, got, "slow fn loses to the fallback")
	assert.Less(t, time.Since(started), 500*time.Millisecond)
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	deps := Deps{
		Store:     st,
		Meta:      metadata.NewClientWithBaseURL(zerolog.Nop(), "http://127.0.0.1:1", 50*time.Millisecond),
		Listings:  listing.NewCache(zerolog.Nop()),
		PublicURL: "http://localhost:7000",
		Log:       zerolog.Nop(),
	}
	reg := NewRegistry(deps)

	_, err := reg.Get(ctx, testKey)
	assert.ErrorIs(t, err, store.ErrNotFound)

	cfg := store.TenantConfig{Key: testKey, Kind: store.KindFTP, FTPHost: "ftp.example.com"}
	require.NoError(t, st.Set(ctx, cfg))

	rt1, err := reg.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "ftp.example.com", rt1.Config().FTPHost)

	rt2, err := reg.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Same(t, rt1, rt2, "repeated Get returns the cached runtime")

	// Config edits are invisible until a rebuild.
	cfg.FTPHost = "ftp2.example.com"
	require.NoError(t, st.Set(ctx, cfg))
	rt3, err := reg.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "ftp.example.com", rt3.Config().FTPHost)

	rt4, err := reg.Rebuild(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, "ftp2.example.com", rt4.Config().FTPHost)

	reg.Invalidate(testKey)
	rt5, err := reg.Get(ctx, testKey)
	require.NoError(t, err)
	assert.NotSame(t, rt4, rt5)
}

func TestSourceFor(t *testing.T) {
	ftpSrc := SourceFor(store.TenantConfig{Kind: store.KindFTP, FTPHost: "h", FTPBase: "/s"})
	assert.Equal(t, "ftp", ftpSrc.Kind())
	assert.Equal(t, "/s", ftpSrc.BaseRef())

	driveSrc := SourceFor(store.TenantConfig{Kind: store.KindDrive, DriveFolderID: "f1"})
	assert.Equal(t, "drive", driveSrc.Kind())
	assert.Equal(t, "f1", driveSrc.BaseRef())
}
