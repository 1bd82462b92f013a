package tasks

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Outcome is the terminal state of a sync.
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeCached
	OutcomeFresh
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCached:
		return "served-from-cache"
	case OutcomeFresh:
		return "served-fresh"
	default:
		return "not-found"
	}
}

// SyncResult is the outcome of [SyncEngine.Sync]. Playlist is nil when the outcome is [OutcomeNotFound].
type SyncResult struct {
	Outcome  Outcome
	Playlist *models.Playlist
}

// SyncEngine serves playlists through the etag-checked cache.
type SyncEngine interface {
	// Sync returns the playlist for (platform, rawID), from the cache when the provider etag is unchanged.
	Sync(ctx context.Context, platform, rawID string) (SyncResult, error)

	// Info returns provider metadata without touching the cache.
	Info(ctx context.Context, platform, rawID string) (*models.PlaylistInfo, error)
}

// PlaylistEngine implements SyncEngine over a provider [services.Registry] and a [repositories.Store].
type PlaylistEngine struct {
	registry services.Registry
	store    *repositories.Store
	logger   *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine. A nil logger discards output.
func NewPlaylistEngine(registry services.Registry, store *repositories.Store, logger *log.Logger) *PlaylistEngine {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &PlaylistEngine{registry: registry, store: store, logger: logger}
}

// sendProgress sends a progress update to the channel if it's not nil.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}

	select {
	case progress <- update:
	default:
	}
}

func errMissingID() error {
	return errors.Mark(errors.New("playlist id is required"), shared.ErrMissingArgument)
}

// Info resolves rawID and fetches its metadata.
func (e *PlaylistEngine) Info(ctx context.Context, platform, rawID string) (*models.PlaylistInfo, error) {
	svc, err := e.registry.Lookup(platform)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rawID) == "" {
		return nil, errMissingID()
	}
	return svc.Info(ctx, svc.ResolveID(ctx, rawID))
}

// Sync runs [PlaylistEngine.SyncWithProgress] without progress reporting.
func (e *PlaylistEngine) Sync(ctx context.Context, platform, rawID string) (SyncResult, error) {
	return e.SyncWithProgress(ctx, nil, platform, rawID)
}

// SyncWithProgress resolves the id, compares the provider etag with the cached one, and serves either
// the cached copy or a fresh fetch that replaces the cache rows.
//
// A not-found playlist evicts its cache rows. Cache write failures are logged and never change a fresh result.
func (e *PlaylistEngine) SyncWithProgress(ctx context.Context, progress chan<- ProgressUpdate, platform, rawID string) (SyncResult, error) {
	svc, err := e.registry.Lookup(platform)
	if err != nil {
		return SyncResult{}, err
	}
	if strings.TrimSpace(rawID) == "" {
		return SyncResult{}, errMissingID()
	}

	p := svc.Platform()
	logger := shared.WithLogger(e.logger, "platform", p)

	id := svc.ResolveID(ctx, rawID)
	logger = shared.WithLogger(logger, "id", id)
	e.sendProgress(progress, resolvedUpdate(p, id))

	info, err := svc.Info(ctx, id)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		e.evict(ctx, logger, p, id)
		e.sendProgress(progress, evictUpdate(id))
		return SyncResult{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return SyncResult{}, errors.Wrapf(err, "failed to fetch %s playlist info", p)
	}
	e.sendProgress(progress, infoUpdate(info))

	key := info.PlaylistID
	if key == "" {
		key = id
	}

	cached, reason := e.cached(ctx, p, key, info)
	if cached != nil {
		logger.Debug("serving from cache")
		e.sendProgress(progress, cacheUpdate(true, ""))
		return SyncResult{Outcome: OutcomeCached, Playlist: cached}, nil
	}
	logger.Debug("cache miss", "reason", reason)
	e.sendProgress(progress, cacheUpdate(false, reason))

	playlist, err := svc.Fetch(ctx, id, info)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		e.evict(ctx, logger, p, key)
		e.sendProgress(progress, evictUpdate(key))
		return SyncResult{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return SyncResult{}, errors.Wrapf(err, "failed to fetch %s playlist", p)
	}
	e.sendProgress(progress, fetchedUpdate(playlist))

	playlist.Platform = p
	playlist.PlaylistID = key
	playlist.Etag = info.Etag
	playlist.Length = len(playlist.Tracks)
	if playlist.Tracks == nil {
		playlist.Tracks = []models.Track{}
	}

	e.replace(ctx, progress, logger, *playlist)
	return SyncResult{Outcome: OutcomeFresh, Playlist: playlist}, nil
}

// cached returns the cached playlist when it is usable for info, or nil and the reason it is not.
func (e *PlaylistEngine) cached(ctx context.Context, p models.Platform, key string, info *models.PlaylistInfo) (*models.Playlist, string) {
	if !info.HasEtag() {
		return nil, "provider reports no etag"
	}

	row, err := e.store.Playlists.Get(ctx, p, key)
	if err != nil {
		e.logger.Warn("cache lookup failed", "id", key, "error", err)
		return nil, "lookup failed"
	}
	if row == nil {
		return nil, "not cached"
	}

	links, err := e.store.PlaylistTracks.Find(ctx, repositories.Where(repositories.PlaylistKey(p, key)))
	if err != nil {
		e.logger.Warn("cache link lookup failed", "id", key, "error", err)
		return nil, "lookup failed"
	}
	if len(links) == 0 && info.Length != 0 {
		return nil, "cached copy has no tracks"
	}
	if !row.HasEtag() || *row.Etag != *info.Etag {
		return nil, "etag changed"
	}

	playlist := repositories.PlaylistFromJoined(*row, links)
	return &playlist, ""
}

// evict deletes the links and playlist row for key. Shared track rows stay.
func (e *PlaylistEngine) evict(ctx context.Context, logger *log.Logger, p models.Platform, key string) {
	filter := repositories.Where(repositories.PlaylistKey(p, key))
	if _, err := e.store.PlaylistTracks.Delete(ctx, filter); err != nil {
		logger.Error("failed to evict playlist links", "error", err)
	}
	if _, err := e.store.Playlists.Delete(ctx, filter); err != nil {
		logger.Error("failed to evict playlist", "error", err)
	}
}

type replaceStep struct {
	name string
	run  func(tx *repositories.Store) error
}

// replace swaps the cache rows for playlist inside one transaction.
//
// Every sub-step runs and logs its own result even after an earlier failure; any failure rolls the whole
// replacement back so the previous cached copy stays intact.
func (e *PlaylistEngine) replace(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, playlist models.Playlist) {
	filter := repositories.Where(repositories.PlaylistKey(playlist.Platform, playlist.PlaylistID))
	tracks := make([]repositories.Record, len(playlist.Tracks))
	for i, t := range playlist.Tracks {
		tracks[i] = repositories.TrackRecord(t)
	}

	steps := []replaceStep{
		{"delete links", func(tx *repositories.Store) error {
			_, err := tx.PlaylistTracks.Delete(ctx, filter)
			return err
		}},
		{"delete playlist", func(tx *repositories.Store) error {
			_, err := tx.Playlists.Delete(ctx, filter)
			return err
		}},
		{"insert playlist", func(tx *repositories.Store) error {
			return tx.Playlists.Insert(ctx, repositories.PlaylistRecord(playlist.PlaylistInfo))
		}},
		{"insert tracks", func(tx *repositories.Store) error {
			return tx.Tracks.InsertMany(ctx, tracks)
		}},
		{"insert links", func(tx *repositories.Store) error {
			return tx.PlaylistTracks.InsertMany(ctx, repositories.LinkRecords(playlist))
		}},
	}

	err := e.store.Tx(ctx, func(tx *repositories.Store) error {
		var failed error
		for i, step := range steps {
			err := step.run(tx)
			e.sendProgress(progress, replaceStepUpdate(i+1, len(steps), step.name, err))
			if err != nil {
				logger.Error("cache step failed", "step", step.name, "error", err)
				failed = errors.CombineErrors(failed, errors.Wrap(err, step.name))
				continue
			}
			logger.Debug("cache step done", "step", step.name)
		}
		return failed
	})
	if err != nil {
		logger.Warn("cache replacement rolled back", "error", err)
		return
	}
	logger.Info("cached playlist", "tracks", len(playlist.Tracks))
}
