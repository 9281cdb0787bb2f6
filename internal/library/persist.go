package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

// recordHeader is the fixed field order of the library record stream.
var recordHeader = []string{"path", "title", "artist", "album", "genre", "year", "duration_ms", "play_count"}

// WriteRecords writes tracks as a record stream: one header row followed by one
// row per track in recordHeader order.
func WriteRecords(w io.Writer, tracks []domain.Track) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(recordHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range tracks {
		row := []string{
			t.Path,
			t.Title,
			t.Artist,
			t.Album,
			t.Genre,
			strconv.Itoa(t.Year),
			strconv.FormatInt(t.DurationMs(), 10),
			strconv.Itoa(t.PlayCount),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", t.Path, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadRecords parses a stream written by WriteRecords.
// Anything that does not match the exact schema fails with domain.ErrInvalidRecord.
func ReadRecords(r io.Reader) ([]domain.Track, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(recordHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", domain.ErrInvalidRecord)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	if !slices.Equal(header, recordHeader) {
		return nil, fmt.Errorf("%w: unexpected header %v", domain.ErrInvalidRecord, header)
	}

	var tracks []domain.Track
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
		}

		t, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidRecord, line, err)
		}
		tracks = append(tracks, t)
	}

	return tracks, nil
}

func parseRecord(row []string) (domain.Track, error) {
	if row[0] == "" {
		return domain.Track{}, errors.New("empty path")
	}

	year, err := strconv.Atoi(row[5])
	if err != nil || year < 0 {
		return domain.Track{}, fmt.Errorf("bad year %q", row[5])
	}
	durationMs, err := strconv.ParseInt(row[6], 10, 64)
	if err != nil || durationMs < 0 {
		return domain.Track{}, fmt.Errorf("bad duration %q", row[6])
	}
	playCount, err := strconv.Atoi(row[7])
	if err != nil || playCount < 0 {
		return domain.Track{}, fmt.Errorf("bad play count %q", row[7])
	}

	return domain.Track{
		Path:      row[0],
		Title:     row[1],
		Artist:    row[2],
		Album:     row[3],
		Genre:     row[4],
		Year:      year,
		Duration:  time.Duration(durationMs) * time.Millisecond,
		PlayCount: playCount,
	}, nil
}
