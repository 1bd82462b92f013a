package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// spotifyTestServer serves a token endpoint plus whatever api routes a test registers.
type spotifyTestServer struct {
	*httptest.Server
	mux       *http.ServeMux
	exchanges atomic.Int32
}

func newSpotifyTestServer(t *testing.T) *spotifyTestServer {
	t.Helper()
	s := &spotifyTestServer{mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			http.Error(w, "missing basic auth", http.StatusBadRequest)
			return
		}
		n := s.exchanges.Add(1)
		writeJSON(w, map[string]any{
			"access_token": fmt.Sprintf("tok-%d", n),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	s.Server = httptest.NewServer(s.mux)
	t.Cleanup(s.Close)
	return s
}

// sleepRecorder replaces the service's sleep and records requested durations.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
	return nil
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func newTestSpotifyService(srv *spotifyTestServer, maxRetries int) (*SpotifyService, *sleepRecorder) {
	opts := DefaultSpotifyOptions()
	opts.MaxRetries = maxRetries
	return newTestSpotifyServiceWith(srv, opts)
}

func newTestSpotifyServiceWith(srv *spotifyTestServer, opts SpotifyOptions) (*SpotifyService, *sleepRecorder) {
	opts.ClientID = "client"
	opts.ClientSecret = "secret"
	opts.BaseURL = srv.URL
	opts.TokenURL = srv.URL + "/token"
	svc := NewSpotifyService(opts)
	rec := &sleepRecorder{}
	svc.sleep = rec.sleep
	return svc, rec
}

func spotifyPlaylistJSON(id string, total int) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        "Road Trip",
		"description": "Songs for the road",
		"owner":       map[string]any{"id": "u1", "display_name": "Jane"},
		"snapshot_id": "snap-1",
		"tracks":      map[string]any{"total": total},
		"images":      []map[string]any{{"url": "https://i.scdn.co/cover.jpg"}},
	}
}

func spotifyTrackJSON(i int) map[string]any {
	return map[string]any{
		"id":          "t" + strconv.Itoa(i),
		"name":        "Song " + strconv.Itoa(i),
		"artists":     []map[string]any{{"name": "A"}, {"name": "B"}},
		"album":       map[string]any{"images": []map[string]any{{"url": "https://i.scdn.co/album.jpg"}}},
		"duration_ms": 215999,
	}
}

// servePagedTracks registers a paginated /playlists/{id}/tracks listing of n tracks.
func (s *spotifyTestServer) servePagedTracks(id string, n int) {
	s.mux.HandleFunc("GET /playlists/"+id+"/tracks", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := min(offset+spotifyPageSize, n)
		items := []map[string]any{}
		for i := offset; i < end; i++ {
			items = append(items, map[string]any{"track": spotifyTrackJSON(i)})
		}
		var next any
		if end < n {
			next = fmt.Sprintf("%s/playlists/%s/tracks?offset=%d&limit=%d", s.URL, id, end, spotifyPageSize)
		}
		writeJSON(w, map[string]any{"items": items, "total": n, "next": next})
	})
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Info", func(t *testing.T) {
		t.Run("returns playlist metadata with snapshot etag", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			srv.mux.HandleFunc("GET /playlists/PL1", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
				writeJSON(w, spotifyPlaylistJSON("PL1", 12))
			})
			svc, _ := newTestSpotifyService(srv, 3)

			info, err := svc.Info(ctx, "  PL1 ")
			require.NoError(t, err)
			assert.Equal(t, models.PlatformSpotify, info.Platform)
			assert.Equal(t, "PL1", info.PlaylistID)
			assert.Equal(t, "Road Trip", info.Title)
			assert.Equal(t, "Jane", info.Owner)
			assert.Equal(t, "Songs for the road", info.Description)
			assert.Equal(t, "https://i.scdn.co/cover.jpg", info.Thumbnail)
			assert.Equal(t, 12, info.Length)
			require.NotNil(t, info.Etag)
			assert.Equal(t, "snap-1", *info.Etag)
		})

		t.Run("falls back to album without etag", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			srv.mux.HandleFunc("GET /playlists/AL1", func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			})
			srv.mux.HandleFunc("GET /albums/AL1", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{
					"id":           "AL1",
					"name":         "Debut",
					"artists":      []map[string]any{{"name": "X"}, {"name": ""}, {"name": "Y"}},
					"total_tracks": 9,
					"images":       []map[string]any{{"url": "https://i.scdn.co/debut.jpg"}},
				})
			})
			svc, _ := newTestSpotifyService(srv, 3)

			info, err := svc.Info(ctx, "AL1")
			require.NoError(t, err)
			assert.Equal(t, "Debut", info.Title)
			assert.Equal(t, "X, Y", info.Owner)
			assert.Equal(t, 9, info.Length)
			assert.Nil(t, info.Etag)
		})

		t.Run("neither playlist nor album is not found", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			svc, _ := newTestSpotifyService(srv, 3)

			_, err := svc.Info(ctx, "missing")
			assert.True(t, errors.Is(err, shared.ErrPlaylistNotFound))
		})

		t.Run("invalid id is not found without a request", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			svc, _ := newTestSpotifyService(srv, 3)

			for _, id := range []string{"", "bad id", "naïve", "a/b"} {
				_, err := svc.Info(ctx, id)
				assert.True(t, errors.Is(err, shared.ErrPlaylistNotFound), id)
			}
			assert.Zero(t, srv.exchanges.Load())
		})

		t.Run("missing credentials are unrecoverable", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			svc := NewSpotifyService(SpotifyOptions{BaseURL: srv.URL, TokenURL: srv.URL + "/token"})

			_, err := svc.Info(ctx, "PL1")
			assert.True(t, errors.Is(err, shared.ErrUnrecoverable))
			assert.True(t, errors.Is(err, shared.ErrMissingCredentials))
		})
	})

	t.Run("Fetch", func(t *testing.T) {
		t.Run("follows every page in order", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			srv.servePagedTracks("PL1", 120)
			srv.mux.HandleFunc("GET /playlists/PL1", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, spotifyPlaylistJSON("PL1", 120))
			})
			svc, _ := newTestSpotifyService(srv, 3)

			p, err := svc.Fetch(ctx, "PL1", nil)
			require.NoError(t, err)
			require.Len(t, p.Tracks, 120)
			for i, track := range p.Tracks {
				assert.Equal(t, "t"+strconv.Itoa(i), track.TrackID)
			}

			first := p.Tracks[0]
			assert.Equal(t, models.PlatformSpotify, first.Platform)
			assert.Equal(t, "A, B", first.Owner)
			assert.Equal(t, "https://i.scdn.co/album.jpg", first.Thumbnail)
			require.NotNil(t, first.DurationSeconds)
			assert.Equal(t, 215, *first.DurationSeconds)
			assert.Equal(t, "Road Trip", p.Title)
			assert.Equal(t, 1, int(srv.exchanges.Load()))
		})

		t.Run("reuses supplied info", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			srv.servePagedTracks("PL1", 3)
			svc, _ := newTestSpotifyService(srv, 3)

			info := &models.PlaylistInfo{Platform: models.PlatformSpotify, PlaylistID: "PL1", Title: "Given", Length: 3}
			p, err := svc.Fetch(ctx, "PL1", info)
			require.NoError(t, err)
			assert.Equal(t, "Given", p.Title)
			assert.Len(t, p.Tracks, 3)
		})

		t.Run("skips unavailable items", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			srv.mux.HandleFunc("GET /playlists/PL2/tracks", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{
					"items": []map[string]any{
						{"track": spotifyTrackJSON(1)},
						{"track": nil},
						{"track": map[string]any{"id": "", "name": "local file"}},
						{"track": spotifyTrackJSON(2)},
					},
					"total": 4,
					"next":  nil,
				})
			})
			svc, _ := newTestSpotifyService(srv, 3)

			p, err := svc.Fetch(ctx, "PL2", &models.PlaylistInfo{PlaylistID: "PL2"})
			require.NoError(t, err)
			require.Len(t, p.Tracks, 2)
			assert.Equal(t, "t1", p.Tracks[0].TrackID)
			assert.Equal(t, "t2", p.Tracks[1].TrackID)
		})

		t.Run("failed later page is unrecoverable", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			srv.mux.HandleFunc("GET /playlists/PL3/tracks", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{
					"items": []map[string]any{{"track": spotifyTrackJSON(0)}},
					"total": 2,
					"next":  srv.URL + "/broken",
				})
			})
			srv.mux.HandleFunc("GET /broken", func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			})
			svc, _ := newTestSpotifyService(srv, 3)

			_, err := svc.Fetch(ctx, "PL3", &models.PlaylistInfo{PlaylistID: "PL3"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrUnrecoverable))
			assert.False(t, errors.Is(err, shared.ErrPlaylistNotFound))
			assert.Contains(t, err.Error(), "/broken")
		})

		t.Run("falls back to album tracks with album cover", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			srv.mux.HandleFunc("GET /playlists/AL1/tracks", func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			})
			srv.mux.HandleFunc("GET /albums/AL1", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{
					"id": "AL1", "name": "Debut", "total_tracks": 2,
					"artists": []map[string]any{{"name": "X"}},
					"images":  []map[string]any{{"url": "https://i.scdn.co/debut.jpg"}},
				})
			})
			srv.mux.HandleFunc("GET /albums/AL1/tracks", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{
					"items": []map[string]any{
						{"id": "a1", "name": "One", "artists": []map[string]any{{"name": "X"}}, "duration_ms": 60000},
						{"id": "a2", "name": "Two", "artists": []map[string]any{{"name": "X"}}},
					},
					"total": 2,
					"next":  nil,
				})
			})
			svc, _ := newTestSpotifyService(srv, 3)

			p, err := svc.Fetch(ctx, "AL1", nil)
			require.NoError(t, err)
			assert.Equal(t, "Debut", p.Title)
			assert.Nil(t, p.Etag)
			require.Len(t, p.Tracks, 2)
			assert.Equal(t, "https://i.scdn.co/debut.jpg", p.Tracks[0].Thumbnail)
			assert.Equal(t, 60, *p.Tracks[0].DurationSeconds)
			assert.Nil(t, p.Tracks[1].DurationSeconds)
		})
	})

	t.Run("rate limiting", func(t *testing.T) {
		rateLimited := func(srv *spotifyTestServer, failures int) *atomic.Int32 {
			var hits atomic.Int32
			srv.mux.HandleFunc("GET /playlists/PL1", func(w http.ResponseWriter, r *http.Request) {
				if int(hits.Add(1)) <= failures {
					w.Header().Set("Retry-After", "2")
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				writeJSON(w, spotifyPlaylistJSON("PL1", 1))
			})
			return &hits
		}

		t.Run("retries while below the limit", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			hits := rateLimited(srv, 2)
			svc, rec := newTestSpotifyService(srv, 3)

			info, err := svc.Info(ctx, "PL1")
			require.NoError(t, err)
			assert.Equal(t, "PL1", info.PlaylistID)
			assert.Equal(t, int32(3), hits.Load())
			assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, rec.recorded())
		})

		t.Run("fails once the limit is reached", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			hits := rateLimited(srv, 3)
			svc, rec := newTestSpotifyService(srv, 3)

			_, err := svc.Info(ctx, "PL1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrUnrecoverable))
			assert.True(t, errors.Is(err, shared.ErrRateLimited))
			assert.Equal(t, int32(3), hits.Load())
			assert.Len(t, rec.recorded(), 2)
		})

		t.Run("uses default wait without Retry-After", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			var hits atomic.Int32
			srv.mux.HandleFunc("GET /playlists/PL1", func(w http.ResponseWriter, r *http.Request) {
				if hits.Add(1) == 1 {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				writeJSON(w, spotifyPlaylistJSON("PL1", 1))
			})
			svc, rec := newTestSpotifyService(srv, 3)

			_, err := svc.Info(ctx, "PL1")
			require.NoError(t, err)
			assert.Equal(t, []time.Duration{15 * time.Second}, rec.recorded())
		})

		t.Run("zero default wait retries immediately", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			var hits atomic.Int32
			srv.mux.HandleFunc("GET /playlists/PL1", func(w http.ResponseWriter, r *http.Request) {
				if hits.Add(1) == 1 {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				writeJSON(w, spotifyPlaylistJSON("PL1", 1))
			})
			opts := DefaultSpotifyOptions()
			opts.DefaultRetryAfter = 0
			svc, rec := newTestSpotifyServiceWith(srv, opts)

			_, err := svc.Info(ctx, "PL1")
			require.NoError(t, err)
			assert.Equal(t, []time.Duration{0}, rec.recorded())
		})

		t.Run("negative default wait takes the default", func(t *testing.T) {
			srv := newSpotifyTestServer(t)
			svc := NewSpotifyService(SpotifyOptions{BaseURL: srv.URL, DefaultRetryAfter: -time.Second})
			assert.Equal(t, 15*time.Second, svc.defaultRetryAfter)
			assert.Equal(t, 3, svc.maxRetries)
		})
	})

	t.Run("unauthorized refreshes the token once", func(t *testing.T) {
		srv := newSpotifyTestServer(t)
		srv.mux.HandleFunc("GET /playlists/PL1", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, spotifyPlaylistJSON("PL1", 1))
		})
		svc, _ := newTestSpotifyService(srv, 3)

		_, err := svc.Info(ctx, "PL1")
		require.NoError(t, err)
		assert.Equal(t, int32(2), srv.exchanges.Load())
	})

	t.Run("repeated unauthorized is unrecoverable", func(t *testing.T) {
		srv := newSpotifyTestServer(t)
		srv.mux.HandleFunc("GET /playlists/PL1", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		svc, _ := newTestSpotifyService(srv, 3)

		_, err := svc.Info(ctx, "PL1")
		assert.True(t, errors.Is(err, shared.ErrUnrecoverable))
		assert.Equal(t, int32(2), srv.exchanges.Load())
	})

	t.Run("server error is unrecoverable", func(t *testing.T) {
		srv := newSpotifyTestServer(t)
		srv.mux.HandleFunc("GET /playlists/PL1", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		svc, _ := newTestSpotifyService(srv, 3)

		_, err := svc.Info(ctx, "PL1")
		assert.True(t, errors.Is(err, shared.ErrUnrecoverable))
		assert.False(t, errors.Is(err, shared.ErrPlaylistNotFound))
	})
}

func TestValidSpotifyID(t *testing.T) {
	assert.True(t, validSpotifyID("37i9dQZF1DXcBWIGoYBM5M"))
	assert.False(t, validSpotifyID(""))
	assert.False(t, validSpotifyID("37i9dQZF1DX-BWIG"))
	assert.False(t, validSpotifyID("ünicode"))
}
