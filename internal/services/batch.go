package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const batchTimeout = 30 * time.Second

// BatchOpts contains configuration for batch track completion.
type BatchOpts struct {
	APIURL            string        // api-v2 base URL (default: https://api-v2.soundcloud.com)
	GroupSize         int           // Ids per request (default: 50)
	Workers           int           // Concurrent requests (default: 8)
	RetrySleep        time.Duration // Pause before retrying a failed group (default: 2s)
	MaxRetries        int           // Retries per group before giving up (default: 5)
	RequestsPerSecond float64       // Request start rate, 0 disables (default: 10)
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// DefaultBatchOpts returns the production batch settings.
func DefaultBatchOpts() BatchOpts {
	return BatchOpts{
		APIURL:            soundcloudAPIURL,
		GroupSize:         50,
		Workers:           8,
		RetrySleep:        2 * time.Second,
		MaxRetries:        5,
		RequestsPerSecond: 10,
	}
}

// BatchFetcher completes SoundCloud track stubs by id through api-v2/tracks.
//
// Groups run concurrently; the in-flight bound is shared by every call on the same fetcher.
type BatchFetcher struct {
	apiURL     string
	client     *http.Client
	groupSize  int
	workers    int
	retrySleep time.Duration
	maxRetries int
	inflight   *semaphore.Weighted
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *log.Logger
}

// NewBatchFetcher creates a BatchFetcher. Non-positive GroupSize and Workers take the defaults.
// Zero MaxRetries disables retrying.
func NewBatchFetcher(opts BatchOpts) *BatchFetcher {
	def := DefaultBatchOpts()
	if opts.APIURL == "" {
		opts.APIURL = def.APIURL
	}
	if opts.GroupSize <= 0 {
		opts.GroupSize = def.GroupSize
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.RetrySleep < 0 {
		opts.RetrySleep = 0
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = newHTTPClient(batchTimeout, nil)
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Workers)
	}

	return &BatchFetcher{
		apiURL:     strings.TrimSuffix(opts.APIURL, "/"),
		client:     opts.HTTPClient,
		groupSize:  opts.GroupSize,
		workers:    opts.Workers,
		retrySleep: opts.RetrySleep,
		maxRetries: opts.MaxRetries,
		inflight:   semaphore.NewWeighted(int64(opts.Workers)),
		limiter:    limiter,
		sleep:      sleepCtx,
		logger:     opts.Logger,
	}
}

// Fetch resolves ids into tracks. A group that keeps failing contributes nothing.
//
// Tracks are returned in group completion order, not id order.
func (b *BatchFetcher) Fetch(ctx context.Context, ids []string, clientID string) []models.Track {
	groups := chunk(ids, b.groupSize)
	if len(groups) == 0 {
		return nil
	}

	results := make(chan []models.Track, len(groups))
	var wg sync.WaitGroup
	for _, group := range groups {
		if err := b.inflight.Acquire(ctx, 1); err != nil {
			b.logger.Warn("batch fetch interrupted", "error", err)
			break
		}
		wg.Add(1)
		go func(group []string) {
			defer wg.Done()
			defer b.inflight.Release(1)
			results <- b.fetchGroup(ctx, group, clientID)
		}(group)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var tracks []models.Track
	for res := range results {
		tracks = append(tracks, res...)
	}
	return tracks
}

// fetchGroup requests one group, retrying after a fixed pause on failure.
func (b *BatchFetcher) fetchGroup(ctx context.Context, ids []string, clientID string) []models.Track {
	endpoint := b.apiURL + "/tracks?ids=" + url.QueryEscape(strings.Join(ids, ",")) + "&client_id=" + url.QueryEscape(clientID)

	for attempt := 0; ; attempt++ {
		tracks, err := b.request(ctx, endpoint)
		if err == nil {
			return tracks
		}

		var decodeErr *json.SyntaxError
		if errors.As(err, &decodeErr) || errors.Is(err, errUnexpectedShape) {
			b.logger.Warn("undecodable batch response", "ids", len(ids), "error", err)
			return nil
		}
		if attempt >= b.maxRetries {
			b.logger.Warn("batch group failed", "ids", len(ids), "attempts", attempt+1, "error", err)
			return nil
		}

		b.logger.Debug("retrying batch group", "attempt", attempt+1, "sleep", b.retrySleep, "error", err)
		if err := b.sleep(ctx, b.retrySleep); err != nil {
			return nil
		}
	}
}

var errUnexpectedShape = errors.New("batch response is not a track list")

func (b *BatchFetcher) request(ctx context.Context, endpoint string) ([]models.Track, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.1")
	req.Header.Set("Origin", "https://soundcloud.com")
	req.Header.Set("Referer", "https://soundcloud.com/")
	req.Header.Set("User-Agent", soundcloudUserAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if classifyStatus(resp.StatusCode) != statusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.Newf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var raw []scTrack
	if err := json.Unmarshal(body, &raw); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, err
		}
		return nil, errors.Mark(err, errUnexpectedShape)
	}

	tracks := make([]models.Track, 0, len(raw))
	for _, t := range raw {
		tracks = append(tracks, t.track())
	}
	return tracks, nil
}

// chunk splits ids into consecutive groups of at most size.
func chunk(ids []string, size int) [][]string {
	var groups [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		groups = append(groups, ids[start:end])
	}
	return groups
}
