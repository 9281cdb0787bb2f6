package library

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

const (
	m3uHeader = "#EXTM3U"
	m3uInfo   = "#EXTINF:"
)

// WriteM3U writes tracks as an extended M3U playlist:
// a #EXTM3U header, then "#EXTINF:<seconds>,<Artist> - <Title>" and the path per track.
func WriteM3U(w io.Writer, tracks []domain.Track) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, m3uHeader)
	for _, t := range tracks {
		fmt.Fprintf(bw, "%s%d,%s - %s\n", m3uInfo, int64(t.Duration/time.Second), t.Artist, t.Title)
		fmt.Fprintln(bw, t.Path)
	}
	return bw.Flush()
}

// ReadM3U parses an extended or plain M3U stream.
// Paths preceded by an #EXTINF line take their title, artist and duration from it;
// bare paths are named after the file.
func ReadM3U(r io.Reader) ([]domain.Track, error) {
	var (
		tracks  = make([]domain.Track, 0)
		pending *domain.TrackMetadata
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, m3uInfo):
			meta := parseExtInf(strings.TrimPrefix(line, m3uInfo))
			pending = &meta
		case strings.HasPrefix(line, "#"):
		default:
			tracks = append(tracks, domain.NewTrack(line, pending))
			pending = nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	return tracks, nil
}

// parseExtInf reads "<seconds>,<Artist> - <Title>". Missing parts stay empty.
func parseExtInf(info string) domain.TrackMetadata {
	var meta domain.TrackMetadata

	secs, display, _ := strings.Cut(info, ",")
	if n, err := strconv.ParseInt(strings.TrimSpace(secs), 10, 64); err == nil && n > 0 {
		meta.Duration = time.Duration(n) * time.Second
	}

	if artist, title, ok := strings.Cut(display, " - "); ok {
		meta.Artist = artist
		meta.Title = title
	} else {
		meta.Title = display
	}
	return meta
}
