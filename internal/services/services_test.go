package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	tu "github.com/desertthunder/mixtape/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	yt := tu.NewFakeService(models.PlatformYouTube)
	sp := tu.NewFakeService(models.PlatformSpotify)
	r := NewRegistry(yt, sp)

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		for _, name := range []string{"youtube", "YouTube", " SPOTIFY "} {
			srv, err := r.Lookup(name)
			require.NoError(t, err, name)
			assert.NotNil(t, srv)
		}
	})

	t.Run("unknown platform", func(t *testing.T) {
		_, err := r.Lookup("bandcamp")
		assert.True(t, errors.Is(err, shared.ErrUnsupportedPlatform))
	})

	t.Run("known but unconfigured platform", func(t *testing.T) {
		_, err := r.Lookup("soundcloud")
		assert.True(t, errors.Is(err, shared.ErrUnsupportedPlatform))
	})
}

func TestClassifyStatus(t *testing.T) {
	tests := map[int]responseStatus{
		200: statusOK,
		204: statusOK,
		400: statusUnrecoverable,
		401: statusUnauthorized,
		403: statusUnrecoverable,
		404: statusNotFound,
		429: statusRateLimited,
		500: statusUnrecoverable,
		503: statusUnrecoverable,
	}
	for code, want := range tests {
		assert.Equal(t, want, classifyStatus(code), "status %d is %s", code, classifyStatus(code))
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	def := 15 * time.Second

	header := func(v string) http.Header {
		h := http.Header{}
		if v != "" {
			h.Set("Retry-After", v)
		}
		return h
	}

	assert.Equal(t, def, retryAfter(header(""), now, def))
	assert.Equal(t, 7*time.Second, retryAfter(header("7"), now, def))
	assert.Equal(t, time.Duration(0), retryAfter(header("0"), now, def))
	assert.Equal(t, 30*time.Second, retryAfter(header(now.Add(30*time.Second).Format(http.TimeFormat)), now, def))
	assert.Equal(t, time.Duration(0), retryAfter(header(now.Add(-time.Minute).Format(http.TimeFormat)), now, def))
	assert.Equal(t, def, retryAfter(header("soon"), now, def))
	assert.Equal(t, def, retryAfter(header("-3"), now, def))
}

func TestTokenManager(t *testing.T) {
	ctx := context.Background()

	newTokenServer := func(t *testing.T, expiresIn int) (*httptest.Server, *atomic.Int32) {
		var exchanges atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "id" || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				writeJSON(w, map[string]any{"error": "invalid_client"})
				return
			}
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			exchanges.Add(1)
			writeJSON(w, map[string]any{"access_token": "tok", "token_type": "Bearer", "expires_in": expiresIn})
		}))
		t.Cleanup(srv.Close)
		return srv, &exchanges
	}

	t.Run("caches until expiry", func(t *testing.T) {
		srv, exchanges := newTokenServer(t, 3600)
		m := NewTokenManager("id", "secret", srv.URL, nil)
		now := time.Now()
		m.now = func() time.Time { return now }

		for range 3 {
			tok, err := m.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok", tok)
		}
		assert.Equal(t, int32(1), exchanges.Load())

		now = now.Add(2 * time.Hour)
		_, err := m.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(2), exchanges.Load())
	})

	t.Run("invalidate forces an exchange", func(t *testing.T) {
		srv, exchanges := newTokenServer(t, 3600)
		m := NewTokenManager("id", "secret", srv.URL, nil)

		_, err := m.Get(ctx)
		require.NoError(t, err)
		m.Invalidate()
		_, err = m.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, int32(2), exchanges.Load())
	})

	t.Run("missing credentials", func(t *testing.T) {
		srv, exchanges := newTokenServer(t, 3600)
		_, err := NewTokenManager("", "secret", srv.URL, nil).Get(ctx)
		assert.True(t, errors.Is(err, shared.ErrMissingCredentials))
		assert.Zero(t, exchanges.Load())
	})

	t.Run("rejected credentials", func(t *testing.T) {
		srv, _ := newTokenServer(t, 3600)
		_, err := NewTokenManager("id", "wrong", srv.URL, nil).Get(ctx)
		assert.Error(t, err)
	})
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
