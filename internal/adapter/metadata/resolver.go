// Package metadata extracts tags, durations and embedded artwork from audio files.
package metadata

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/hajimehoshi/go-mp3"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

// bytesPerSample is fixed by go-mp3: 16 bit little endian, two channels.
const bytesPerSample = 4

// TagResolver reads ID3, MP4, FLAC and Vorbis tags with dhowden/tag.
// MP3 durations are computed by walking the frame headers with go-mp3;
// other formats report no duration.
type TagResolver struct {
	logger *slog.Logger
}

// NewTagResolver creates a resolver.
func NewTagResolver(logger *slog.Logger) *TagResolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TagResolver{
		logger: logger.With(slog.String("component", "tag_resolver")),
	}
}

// Resolve describes the file at path.
//
// A file without any tags still resolves: the record is empty apart from the
// duration and the library falls back to the file name. Tags that are present
// but cannot be parsed yield domain.ErrUnresolvable.
func (r *TagResolver) Resolve(path string) (*domain.TrackMetadata, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	meta := &domain.TrackMetadata{}

	m, err := tag.ReadFrom(f)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
		r.logger.Debug("no tags found", slog.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnresolvable, path, err)
	default:
		meta.Title = strings.TrimSpace(m.Title())
		meta.Artist = strings.TrimSpace(m.Artist())
		meta.Album = strings.TrimSpace(m.Album())
		meta.Genre = strings.TrimSpace(m.Genre())
		meta.Year = m.Year()
		if pic := m.Picture(); pic != nil {
			meta.Picture = pic.Data
			meta.PictureMIME = pic.MIMEType
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			meta.Duration = mp3Duration(f)
		}
	}

	return meta, nil
}

// Artwork returns the embedded picture of the file at path.
func (r *TagResolver) Artwork(path string) ([]byte, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnresolvable, path, err)
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, fmt.Errorf("%w: %s has no artwork", domain.ErrUnresolvable, path)
	}
	return pic.Data, nil
}

func open(path string) (*os.File, error) {
	if path == "" {
		return nil, domain.ErrInvalidFilePath
	}
	if !domain.IsSupportedAudioFile(path) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUnresolvable, path, err)
	}
	return f, nil
}

// mp3Duration returns zero when the stream has no decodable frames.
func mp3Duration(r io.Reader) time.Duration {
	d, err := mp3.NewDecoder(r)
	if err != nil || d.Length() <= 0 || d.SampleRate() <= 0 {
		return 0
	}
	samples := d.Length() / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(d.SampleRate())
}

var (
	_ ports.MetadataResolver = (*TagResolver)(nil)
	_ ports.ArtworkSource    = (*TagResolver)(nil)
)
