package repositories

import (
	"context"
	"fmt"
)

// PlaylistTrack column names and the aliases used by the joined view.
const (
	ColPosition = "Position"

	ColPlaylistTitle       = "PlaylistTitle"
	ColPlaylistOwner       = "PlaylistOwner"
	ColPlaylistDescription = "PlaylistDescription"
	ColPlaylistThumbnail   = "PlaylistThumbnail"
	ColTrackPlatform       = "TrackPlatform"
	ColTrackTitle          = "TrackTitle"
	ColTrackOwner          = "TrackOwner"
	ColTrackThumbnail      = "TrackThumbnail"
)

const joinedTracksSQL = `
	SELECT
		pt.Position AS Position,
		p.PlaylistID AS PlaylistID,
		p.Platform AS Platform,
		p.Title AS PlaylistTitle,
		p.Owner AS PlaylistOwner,
		p.Description AS PlaylistDescription,
		p.Thumbnail AS PlaylistThumbnail,
		p.Length AS Length,
		p.Etag AS Etag,
		t.TrackID AS TrackID,
		t.Platform AS TrackPlatform,
		t.Title AS TrackTitle,
		t.Owner AS TrackOwner,
		t.Thumbnail AS TrackThumbnail,
		t.DurationSeconds AS DurationSeconds
	FROM PlaylistTrack pt
	JOIN Playlist p ON p.PlaylistID = pt.PlaylistID AND p.Platform = pt.Platform
	JOIN Track t ON t.TrackID = pt.TrackID AND t.Platform = pt.Platform
	WHERE %s
	ORDER BY pt.Position`

const recountSQL = `
	UPDATE Playlist
	SET Length = (SELECT COUNT(*) FROM PlaylistTrack WHERE PlaylistID = ? AND Platform = ?)
	WHERE PlaylistID = ? AND Platform = ?`

// PlaylistTrackTable stores ordered playlist-to-track links.
//
// Links are filtered by their playlist (PlaylistID, Platform); every insert recounts the
// parent playlist's Length in the same unit.
type PlaylistTrackTable struct {
	*Table
}

func newPlaylistTrackTable(c conn) *PlaylistTrackTable {
	return &PlaylistTrackTable{newTable(c, "PlaylistTrack", []string{ColPlaylistID, ColPlatform}, false,
		Required(ColPlaylistID),
		Required(ColTrackID),
		Required(ColPlatform),
		Required(ColPosition),
	)}
}

// Insert stores one link and recounts its playlist.
func (t *PlaylistTrackTable) Insert(ctx context.Context, rec Record) error {
	return t.InsertMany(ctx, []Record{rec})
}

// InsertMany stores links, then sets Length of every playlist they reference to its link count.
func (t *PlaylistTrackTable) InsertMany(ctx context.Context, recs []Record) error {
	return t.insertMany(ctx, recs, recount)
}

func recount(ctx context.Context, q querier, recs []Record) error {
	type key struct{ id, platform string }
	seen := make(map[key]bool)
	for _, rec := range recs {
		k := key{rec.String(ColPlaylistID), rec.String(ColPlatform)}
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, err := q.ExecContext(ctx, recountSQL, k.id, k.platform, k.id, k.platform); err != nil {
			return err
		}
	}
	return nil
}

// Find returns raw link rows for [All], or the joined playlist and track rows for one
// playlist ordered by Position.
func (t *PlaylistTrackTable) Find(ctx context.Context, f Filter) ([]Record, error) {
	if f.all {
		return t.Table.Find(ctx, f)
	}

	clause, args, err := t.where(f, "pt")
	if err != nil {
		return nil, err
	}
	return t.query(ctx, fmt.Sprintf(joinedTracksSQL, clause), args...)
}
