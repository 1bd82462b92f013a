// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// FakeService is an in-memory test double for [services.Service].
//
// Playlists are keyed by canonical id; Aliases map raw ids onto them for ResolveID.
type FakeService struct {
	mu        sync.Mutex
	platform  models.Platform
	playlists map[string]models.Playlist
	aliases   map[string]string
	infoErr   error
	fetchErr  error
	calls     map[string]int
}

// NewFakeService creates an empty FakeService for platform.
func NewFakeService(platform models.Platform) *FakeService {
	return &FakeService{
		platform:  platform,
		playlists: map[string]models.Playlist{},
		aliases:   map[string]string{},
		calls:     map[string]int{},
	}
}

// Put stores or replaces a playlist.
func (f *FakeService) Put(p models.Playlist) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists[p.PlaylistID] = clonePlaylist(p)
}

// Remove deletes a playlist so later lookups are not-found.
func (f *FakeService) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.playlists, id)
}

// Alias makes ResolveID map raw onto id.
func (f *FakeService) Alias(raw, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aliases[raw] = id
}

// FailInfo makes every Info call return err (nil restores normal behavior).
func (f *FakeService) FailInfo(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoErr = err
}

// FailFetch makes every Fetch call return err (nil restores normal behavior).
func (f *FakeService) FailFetch(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

// Calls returns how many times method ("ResolveID", "Info" or "Fetch") was invoked.
func (f *FakeService) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeService) Platform() models.Platform { return f.platform }

func (f *FakeService) ResolveID(_ context.Context, rawID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ResolveID"]++
	if id, ok := f.aliases[rawID]; ok {
		return id
	}
	return rawID
}

func (f *FakeService) Info(_ context.Context, id string) (*models.PlaylistInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Info"]++
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	p, ok := f.playlists[id]
	if !ok {
		return nil, shared.NotFound(nil, "fake playlist not found: "+id)
	}
	info := p.PlaylistInfo
	if p.Etag != nil {
		info.Etag = models.Etag(*p.Etag)
	}
	return &info, nil
}

func (f *FakeService) Fetch(_ context.Context, id string, info *models.PlaylistInfo) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Fetch"]++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	p, ok := f.playlists[id]
	if !ok {
		return nil, shared.NotFound(nil, "fake playlist not found: "+id)
	}
	out := clonePlaylist(p)
	if info != nil {
		out.PlaylistInfo = *info
	}
	return &out, nil
}

func clonePlaylist(p models.Playlist) models.Playlist {
	out := p
	out.Tracks = slices.Clone(p.Tracks)
	if p.Etag != nil {
		out.Etag = models.Etag(*p.Etag)
	}
	return out
}

// SamplePlaylist builds a playlist with n tracks whose ids are derived from id.
func SamplePlaylist(platform models.Platform, id, etag string, n int) models.Playlist {
	p := models.Playlist{
		PlaylistInfo: models.PlaylistInfo{
			Platform:    platform,
			PlaylistID:  id,
			Title:       "Playlist " + id,
			Owner:       "Owner",
			Description: "A playlist",
			Thumbnail:   "https://img.example/" + id + ".jpg",
			Length:      n,
		},
		Tracks: make([]models.Track, 0, n),
	}
	if etag != "" {
		p.Etag = models.Etag(etag)
	}
	for i := range n {
		p.Tracks = append(p.Tracks, models.Track{
			TrackID:         id + "-" + string(rune('a'+i%26)) + string(rune('0'+i/26)),
			Platform:        platform,
			Title:           "Track " + string(rune('A'+i%26)),
			Owner:           "Artist",
			Thumbnail:       "https://img.example/t.jpg",
			DurationSeconds: models.Seconds(180 + i),
		})
	}
	return p
}

// NewTestDB opens a migrated temp-file SQLite database closed at cleanup.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(filepath.Join(t.TempDir(), "mixtape.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)
	t.Cleanup(func() { db.Close() })

	if _, err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// RoundTripFunc adapts a function to [http.RoundTripper].
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// FailingRoundTripper fails every request with a transport error.
var FailingRoundTripper = RoundTripFunc(func(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
})

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// FWriter fails every write.
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
