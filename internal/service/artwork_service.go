package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"io"
	"log/slog"
	"strings"

	"github.com/fogleman/gg"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder
	"golang.org/x/sync/singleflight"

	"github.com/tejashwikalptaru/tunecore/internal/cache"
	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

const (
	// DefaultArtworkCacheSize is the number of albums whose art stays decoded
	DefaultArtworkCacheSize = 50

	// DefaultArtworkSize is the edge length of a cover thumbnail in pixels
	DefaultArtworkSize = 256
)

// ArtworkConfig tunes the artwork cache.
type ArtworkConfig struct {
	CacheSize int
	Size      int
}

// ArtworkService decodes, scales and caches album covers keyed by album name.
// Concurrent requests for the same album share one decode.
type ArtworkService struct {
	logger *slog.Logger
	source ports.ArtworkSource
	size   int

	covers *cache.LRU[string, image.Image]
	group  singleflight.Group
}

// NewArtworkService creates an artwork service reading embedded pictures from source.
func NewArtworkService(logger *slog.Logger, source ports.ArtworkSource, cfg ArtworkConfig) (*ArtworkService, error) {
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultArtworkCacheSize
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultArtworkSize
	}

	logger = logger.With(slog.String("service", "ArtworkService"))
	covers, err := cache.NewWithEvict[string, image.Image](cfg.CacheSize, func(album string, _ image.Image) {
		logger.Debug("artwork evicted", slog.String("album", album))
	})
	if err != nil {
		return nil, err
	}

	return &ArtworkService{
		logger: logger,
		source: source,
		size:   cfg.Size,
		covers: covers,
	}, nil
}

// Cover returns the square cover of track's album. Tracks without embedded art
// get a generated placeholder, which is cached like a real cover.
func (s *ArtworkService) Cover(track domain.Track) (image.Image, error) {
	key := artworkKey(track)
	if img, ok := s.covers.Get(key); ok {
		return img, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if img, ok := s.covers.Peek(key); ok {
			return img, nil
		}

		img, err := s.load(track)
		if err != nil {
			return nil, err
		}
		s.covers.Put(key, img)
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

func (s *ArtworkService) load(track domain.Track) (image.Image, error) {
	data, err := s.source.Artwork(track.Path)
	switch {
	case errors.Is(err, domain.ErrUnresolvable):
		s.logger.Debug("no embedded artwork", slog.String("path", track.Path))
		return s.placeholder(track.Album), nil
	case err != nil:
		return nil, domain.NewServiceError("ArtworkService", "Cover", "failed to read artwork", err)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("undecodable artwork, using placeholder",
			slog.String("path", track.Path),
			slog.Any("error", err))
		return s.placeholder(track.Album), nil
	}

	s.logger.Debug("artwork decoded",
		slog.String("album", track.Album),
		slog.String("format", format),
		slog.Int("width", src.Bounds().Dx()),
		slog.Int("height", src.Bounds().Dy()))
	return s.square(src), nil
}

// square fits src into a size x size canvas, preserving aspect ratio.
func (s *ArtworkService) square(src image.Image) image.Image {
	thumb := resize.Thumbnail(uint(s.size), uint(s.size), src, resize.Lanczos3)

	dc := gg.NewContext(s.size, s.size)
	dc.SetColor(color.Black)
	dc.Clear()
	dc.DrawImageAnchored(thumb, s.size/2, s.size/2, 0.5, 0.5)
	return dc.Image()
}

func (s *ArtworkService) placeholder(album string) image.Image {
	size := float64(s.size)

	dc := gg.NewContext(s.size, s.size)
	dc.SetHexColor("#333333")
	dc.Clear()
	dc.SetHexColor("#666666")
	dc.DrawCircle(size/2, size/2, size/3)
	dc.Fill()
	dc.SetHexColor("#eeeeee")
	dc.DrawStringAnchored(initials(album), size/2, size/2, 0.5, 0.5)
	return dc.Image()
}

func initials(album string) string {
	if album == "" || album == domain.UnknownAlbum {
		return "?"
	}
	var out []rune
	for _, word := range strings.Fields(album) {
		out = append(out, []rune(word)[0])
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}

// artworkKey groups tracks by album; tracks of unknown albums are cached per file.
func artworkKey(track domain.Track) string {
	if track.Album == "" || track.Album == domain.UnknownAlbum {
		return "file:" + track.Path
	}
	return "album:" + track.Album
}

// WritePNG encodes the cover of track as PNG.
func (s *ArtworkService) WritePNG(w io.Writer, track domain.Track) error {
	img, err := s.Cover(track)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode artwork: %w", err)
	}
	return nil
}

// Cached reports whether the cover of track is in the cache.
func (s *ArtworkService) Cached(track domain.Track) bool {
	return s.covers.Contains(artworkKey(track))
}

// Len returns the number of cached covers.
func (s *ArtworkService) Len() int { return s.covers.Len() }

// Purge drops every cached cover.
func (s *ArtworkService) Purge() { s.covers.Clear() }
