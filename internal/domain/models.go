// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the tunecore music library.
package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Defaults used when the metadata collaborator cannot resolve a field.
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UnknownGenre  = "Unknown Genre"
)

// supportedFormats are the extensions recognized by directory scans and OpenFile.
var supportedFormats = []string{".mp3", ".flac", ".ogg", ".wav", ".m4a", ".aac"}

// Track represents a single audio file known to the library.
// Path is the identity key: two tracks with equal paths are the same track.
type Track struct {
	// Path is the absolute path to the audio file on the filesystem
	Path string

	// Title is the song title (from metadata or filename)
	Title string

	// Artist is the performing artist name
	Artist string

	// Album is the album name
	Album string

	// Genre is the music genre
	Genre string

	// Year is the release year (0 if unknown)
	Year int

	// Duration is the total length of the track (0 if unresolved)
	Duration time.Duration

	// PlayCount is how many times the track was played
	PlayCount int

	// LastPlayed is when the track was last played (zero if never)
	LastPlayed time.Time

	// AddedAt is when the track entered the library
	AddedAt time.Time
}

// NewTrack builds a track for the given path from resolved metadata.
// Missing fields are replaced with the "Unknown ..." defaults and the
// file name is used when no title is present.
func NewTrack(path string, meta *TrackMetadata) Track {
	t := Track{Path: path}
	if meta == nil {
		meta = &TrackMetadata{}
	}
	t.ApplyMetadata(*meta)
	return t
}

// ApplyMetadata replaces the descriptive fields with meta. Fields meta leaves
// empty fall back to the NewTrack defaults, so a tag removed from the file
// does not survive a reload. Play statistics are left untouched.
func (t *Track) ApplyMetadata(meta TrackMetadata) {
	t.Title = strings.TrimSuffix(filepath.Base(t.Path), filepath.Ext(t.Path))
	t.Artist = UnknownArtist
	t.Album = UnknownAlbum
	t.Genre = UnknownGenre
	t.Year = 0
	t.Duration = 0

	if v := strings.TrimSpace(meta.Title); v != "" {
		t.Title = v
	}
	if v := strings.TrimSpace(meta.Artist); v != "" {
		t.Artist = v
	}
	if v := strings.TrimSpace(meta.Album); v != "" {
		t.Album = v
	}
	if v := strings.TrimSpace(meta.Genre); v != "" {
		t.Genre = v
	}
	if meta.Year > 0 {
		t.Year = meta.Year
	}
	if meta.Duration > 0 {
		t.Duration = meta.Duration
	}
}

// SameAs reports whether both tracks refer to the same file.
func (t Track) SameAs(other Track) bool {
	return t.Path == other.Path
}

// DurationMs returns the duration in whole milliseconds.
func (t Track) DurationMs() int64 {
	return t.Duration.Milliseconds()
}

// FormatDuration renders the duration as m:ss, or h:mm:ss for long tracks.
func (t Track) FormatDuration() string {
	return FormatDuration(t.Duration)
}

// FormatDuration renders d as m:ss, or h:mm:ss when it exceeds an hour.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// IsSupportedAudioFile reports whether the file extension is one the library scans.
func IsSupportedAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range supportedFormats {
		if ext == supported {
			return true
		}
	}
	return false
}

// SupportedFormats returns a copy of the recognized file extensions.
func SupportedFormats() []string {
	formats := make([]string, len(supportedFormats))
	copy(formats, supportedFormats)
	return formats
}

// TrackMetadata is the record produced by the metadata collaborator for a file.
type TrackMetadata struct {
	Title    string
	Artist   string
	Album    string
	Genre    string
	Year     int
	Duration time.Duration

	// Picture is the embedded album artwork as raw bytes (may be nil)
	Picture []byte

	// PictureMIME is the MIME type of Picture, if known
	PictureMIME string
}

// LibraryStats holds the aggregate counters of a track collection.
type LibraryStats struct {
	Tracks        int
	Artists       int
	Albums        int
	Genres        int
	TotalDuration time.Duration
}

// Playlist represents a named, ordered collection of tracks.
type Playlist struct {
	// ID is a unique identifier for the playlist (UUID)
	ID string

	// Name is the playlist name
	Name string

	// Tracks is the ordered list of tracks in the playlist
	Tracks []Track

	// CreatedAt is when the playlist was created
	CreatedAt time.Time

	// UpdatedAt is when the playlist was last modified
	UpdatedAt time.Time
}

// ScanProgress represents the progress of a music library scan operation.
type ScanProgress struct {
	// CurrentFile is the file currently being scanned
	CurrentFile string

	// FilesScanned is the number of files processed so far
	FilesScanned int

	// TotalFiles is the total number of files to scan (may be -1 if unknown)
	TotalFiles int

	// TracksFound is the number of valid music tracks added so far
	TracksFound int
}

// IsValid returns true if the scan progress has valid data.
func (p ScanProgress) IsValid() bool {
	return p.FilesScanned >= 0 && p.TracksFound >= 0
}

// Percentage returns the completion percentage (0-100), or -1 if total is unknown.
func (p ScanProgress) Percentage() float64 {
	if p.TotalFiles <= 0 {
		return -1
	}
	return float64(p.FilesScanned) / float64(p.TotalFiles) * 100.0
}

// ScanResult summarizes a finished directory scan.
type ScanResult struct {
	Path         string
	FilesScanned int
	TracksAdded  int
	Skipped      int
	LimitReached bool
	Elapsed      time.Duration
}

// Recommendation is an externally sourced song suggestion.
type Recommendation struct {
	Title        string
	Artist       string
	ThumbnailURL string

	// PlaybackQuery re-requests playback of the song; unique within the live cache
	PlaybackQuery string

	// Score is the similarity score in [0,1]
	Score float64

	// BatchID groups the entries generated for one source song
	BatchID string

	SourceTitle  string
	SourceArtist string
}

// PlayedSong is a history entry used to derive recommendations.
type PlayedSong struct {
	Title    string
	Artist   string
	Genre    string
	Keywords []string
	PlayedAt time.Time
}

// SearchResult is a single hit returned by the external search collaborator.
type SearchResult struct {
	Title        string
	Uploader     string
	ThumbnailURL string
	PlayableID   string
}

// MediaStatus is the status surfaced to the presentation layer for open/scan operations.
type MediaStatus int

const (
	// StatusIdle indicates nothing is in progress
	StatusIdle MediaStatus = iota

	// StatusLoading indicates a file or scan is being processed
	StatusLoading

	// StatusReady indicates the last operation succeeded
	StatusReady

	// StatusError indicates the last operation failed
	StatusError
)

// String returns a human-readable representation of the media status.
func (s MediaStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
