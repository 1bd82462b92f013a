package tasks

import (
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
)

// ProgressUpdate represents a progress event during a sync.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ResolveID Phase = iota
	FetchInfo
	ReadCache
	FetchPlaylist
	ReplaceCache
	EvictCache
)

func (p Phase) String() string {
	switch p {
	case ResolveID:
		return "resolve_id"
	case FetchInfo:
		return "fetch_info"
	case ReadCache:
		return "read_cache"
	case FetchPlaylist:
		return "fetch_playlist"
	case ReplaceCache:
		return "replace_cache"
	case EvictCache:
		return "evict_cache"
	default:
		return ""
	}
}

func resolvedUpdate(platform models.Platform, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveID,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolved %s playlist %s", platform, id),
		Data:    id,
	}
}

func infoUpdate(info *models.PlaylistInfo) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchInfo,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %q by %s (%d tracks)", info.Title, info.Owner, info.Length),
		Data:    info,
	}
}

func cacheUpdate(hit bool, reason string) ProgressUpdate {
	msg := "Cache miss: " + reason
	if hit {
		msg = "Serving from cache"
	}
	return ProgressUpdate{Phase: ReadCache, Step: 1, Total: 1, Message: msg, Data: hit}
}

func fetchedUpdate(p *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d tracks", len(p.Tracks)),
		Data:    len(p.Tracks),
	}
}

func replaceStepUpdate(step, total int, name string, err error) ProgressUpdate {
	msg := name
	if err != nil {
		msg = fmt.Sprintf("%s failed: %v", name, err)
	}
	return ProgressUpdate{Phase: ReplaceCache, Step: step, Total: total, Message: msg, Data: err}
}

func evictUpdate(key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EvictCache,
		Step:    1,
		Total:   1,
		Message: "Playlist not found, evicted cached copy of " + key,
	}
}
