package formatter

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	th "github.com/desertthunder/mixtape/internal/testing"
)

func samplePlaylist() *models.Playlist {
	return &models.Playlist{
		PlaylistInfo: models.PlaylistInfo{
			Platform:    models.PlatformSpotify,
			PlaylistID:  "test123",
			Title:       "Test Playlist",
			Owner:       "Curator",
			Description: "A test playlist",
			Thumbnail:   "https://img.example/cover.jpg",
			Length:      2,
		},
		Tracks: []models.Track{
			{
				TrackID:         "track1",
				Platform:        models.PlatformSpotify,
				Title:           "Song One",
				Owner:           "Artist One",
				Thumbnail:       "https://img.example/1.jpg",
				DurationSeconds: models.Seconds(180),
			},
			{
				TrackID:  "track2",
				Platform: models.PlatformSpotify,
				Title:    "Song, Two",
				Owner:    "Artist Two",
			},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("CSV output does not parse: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d", len(records))
		}
		if got := strings.Join(records[0], ","); got != "Position,ID,Title,Owner,Duration,Thumbnail" {
			t.Errorf("CSV headers = %s", got)
		}
		if got := records[1]; got[0] != "0" || got[1] != "track1" || got[4] != "180" {
			t.Errorf("unexpected first row: %v", got)
		}
		if got := records[2]; got[2] != "Song, Two" || got[4] != "" {
			t.Errorf("unexpected second row: %v", got)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Test Playlist",
			"![Cover](https://img.example/cover.jpg)",
			"**Description**: A test playlist",
			"**Platform**: spotify",
			"**Tracks**: 2",
			"1. Artist One - Song One [3:00]",
			"2. Artist Two - Song, Two [--:--]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToMarkdown without cover", func(t *testing.T) {
		p := samplePlaylist()
		p.Thumbnail = ""
		p.Description = ""

		data, err := ExportToMarkdown(p)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		if strings.Contains(string(data), "![Cover]") || strings.Contains(string(data), "**Description**") {
			t.Errorf("expected no cover or description, got:\n%s", data)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Playlist: Test Playlist\n") {
			t.Errorf("unexpected header: %s", output)
		}
		if !strings.Contains(output, "2. Artist Two - Song, Two") {
			t.Errorf("text missing second track, got:\n%s", output)
		}
	})

	t.Run("empty playlist", func(t *testing.T) {
		p := samplePlaylist()
		p.Tracks = nil

		for _, f := range Formats {
			if _, err := Export(f, p); err != nil {
				t.Errorf("%s export of empty playlist failed: %v", f, err)
			}
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"csv":      FormatCSV,
		"CSV":      FormatCSV,
		"markdown": FormatMarkdown,
		"md":       FormatMarkdown,
		" text ":   FormatText,
		"txt":      FormatText,
	}
	for name, want := range tests {
		got, err := ParseFormat(name)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", name, got, err, want)
		}
	}

	if _, err := ParseFormat("xlsx"); !errors.Is(err, shared.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   *int
		want string
	}{
		{nil, "--:--"},
		{models.Seconds(0), "0:00"},
		{models.Seconds(185), "3:05"},
		{models.Seconds(3661), "61:01"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration = %q, want %q", got, tt.want)
		}
	}
}

func TestWriteExport(t *testing.T) {
	t.Run("writes to the given path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")

		written, err := WriteExport(FormatCSV, samplePlaylist(), path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != path {
			t.Errorf("expected %s, got %s", path, written)
		}
		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "track1") {
			t.Errorf("export missing track1, got %s", content)
		}
	})

	t.Run("defaults to a name derived from the playlist", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		written, err := WriteExport(FormatMarkdown, samplePlaylist(), "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if written != "spotify_test123.md" {
			t.Errorf("unexpected default filename %s", written)
		}
		th.AssertFileExists(t, filepath.Join(dir, written))
	})

	t.Run("unwritable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.txt")
		if _, err := WriteExport(FormatText, samplePlaylist(), path); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}

func TestDefaultFilename(t *testing.T) {
	p := samplePlaylist()
	p.Platform = models.PlatformSoundCloud
	p.PlaylistID = "/artist/sets/mix"

	if got := DefaultFilename(FormatText, p); got != "soundcloud_artist_sets_mix.txt" {
		t.Errorf("DefaultFilename = %s", got)
	}

	p.PlaylistID = "/"
	if got := DefaultFilename(FormatCSV, p); got != "soundcloud_playlist.csv" {
		t.Errorf("DefaultFilename = %s", got)
	}
}
