package repositories

import "github.com/desertthunder/mixtape/internal/models"

// PlaylistKey is the natural key filter record of a playlist.
func PlaylistKey(platform models.Platform, id string) Record {
	return Record{ColPlaylistID: id, ColPlatform: string(platform)}
}

// PlaylistRecord converts playlist metadata into a Playlist row.
func PlaylistRecord(info models.PlaylistInfo) Record {
	rec := Record{
		ColPlaylistID:  info.PlaylistID,
		ColPlatform:    string(info.Platform),
		ColTitle:       info.Title,
		ColOwner:       info.Owner,
		ColDescription: info.Description,
		ColThumbnail:   info.Thumbnail,
		ColLength:      info.Length,
		ColEtag:        nil,
	}
	if info.Etag != nil {
		rec[ColEtag] = *info.Etag
	}
	return rec
}

// TrackRecord converts a track into a Track row.
func TrackRecord(t models.Track) Record {
	rec := Record{
		ColTrackID:         t.TrackID,
		ColPlatform:        string(t.Platform),
		ColTitle:           t.Title,
		ColOwner:           t.Owner,
		ColThumbnail:       t.Thumbnail,
		ColDurationSeconds: nil,
	}
	if t.DurationSeconds != nil {
		rec[ColDurationSeconds] = *t.DurationSeconds
	}
	return rec
}

// LinkRecords builds the PlaylistTrack rows for a playlist, positions 0-based in track order.
func LinkRecords(p models.Playlist) []Record {
	recs := make([]Record, len(p.Tracks))
	for i, t := range p.Tracks {
		recs[i] = Record{
			ColPlaylistID: p.PlaylistID,
			ColTrackID:    t.TrackID,
			ColPlatform:   string(p.Platform),
			ColPosition:   i,
		}
	}
	return recs
}

// PlaylistInfoFromRecord converts a Playlist row back into metadata.
func PlaylistInfoFromRecord(rec Record) models.PlaylistInfo {
	return models.PlaylistInfo{
		Platform:    models.Platform(rec.String(ColPlatform)),
		PlaylistID:  rec.String(ColPlaylistID),
		Title:       rec.String(ColTitle),
		Owner:       rec.String(ColOwner),
		Description: rec.String(ColDescription),
		Thumbnail:   rec.String(ColThumbnail),
		Etag:        rec.StringPtr(ColEtag),
		Length:      rec.Int(ColLength),
	}
}

// TrackFromJoined converts one joined PlaylistTrack row into its track.
func TrackFromJoined(rec Record) models.Track {
	return models.Track{
		TrackID:         rec.String(ColTrackID),
		Platform:        models.Platform(rec.String(ColTrackPlatform)),
		Title:           rec.String(ColTrackTitle),
		Owner:           rec.String(ColTrackOwner),
		Thumbnail:       rec.String(ColTrackThumbnail),
		DurationSeconds: rec.IntPtr(ColDurationSeconds),
	}
}

// PlaylistFromJoined assembles a playlist from the cached metadata row and its joined track rows.
func PlaylistFromJoined(info models.PlaylistInfo, rows []Record) models.Playlist {
	tracks := make([]models.Track, len(rows))
	for i, row := range rows {
		tracks[i] = TrackFromJoined(row)
	}
	return models.Playlist{PlaylistInfo: info, Tracks: tracks}
}
