package metadata

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/logger"
)

// id3v23 builds a minimal ID3v2.3 tag holding ISO-8859-1 text frames.
func id3v23(frames [][2]string) []byte {
	var body bytes.Buffer
	for _, f := range frames {
		body.WriteString(f[0])
		_ = binary.Write(&body, binary.BigEndian, uint32(len(f[1])+1))
		body.Write([]byte{0, 0, 0})
		body.WriteString(f[1])
	}
	body.Write(make([]byte, 32))

	size := body.Len()
	header := []byte{'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)}
	return append(header, body.Bytes()...)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestResolve_ReadsTags(t *testing.T) {
	path := writeFile(t, "song.mp3", id3v23([][2]string{
		{"TIT2", "Yellow"},
		{"TPE1", "Coldplay"},
		{"TALB", "Parachutes"},
		{"TCON", "Alternative"},
		{"TYER", "2000"},
	}))

	r := NewTagResolver(logger.NewTestLogger())
	meta, err := r.Resolve(path)

	require.NoError(t, err)
	assert.Equal(t, "Yellow", meta.Title)
	assert.Equal(t, "Coldplay", meta.Artist)
	assert.Equal(t, "Parachutes", meta.Album)
	assert.Equal(t, "Alternative", meta.Genre)
	assert.Equal(t, 2000, meta.Year)
	assert.Zero(t, meta.Duration)
	assert.Nil(t, meta.Picture)
}

func TestResolve_UntaggedFileResolvesEmpty(t *testing.T) {
	path := writeFile(t, "raw.wav", make([]byte, 512))

	meta, err := NewTagResolver(nil).Resolve(path)

	require.NoError(t, err)
	assert.Equal(t, domain.TrackMetadata{}, *meta)

	track := domain.NewTrack(path, meta)
	assert.Equal(t, "raw", track.Title)
	assert.Equal(t, domain.UnknownArtist, track.Artist)
}

func TestResolve_Errors(t *testing.T) {
	r := NewTagResolver(nil)

	_, err := r.Resolve("")
	assert.ErrorIs(t, err, domain.ErrInvalidFilePath)

	_, err = r.Resolve(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
	assert.Equal(t, domain.KindNotFound, domain.Classify(err))

	_, err = r.Resolve(writeFile(t, "notes.txt", []byte("hello")))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	// a declared ID3 tag that is cut short
	_, err = r.Resolve(writeFile(t, "broken.mp3", []byte("ID3\x03\x00\x00\x00\x00\x01\x00TIT2")))
	assert.ErrorIs(t, err, domain.ErrUnresolvable)
}

func TestArtwork_Missing(t *testing.T) {
	path := writeFile(t, "song.mp3", id3v23([][2]string{{"TIT2", "Yellow"}}))

	_, err := NewTagResolver(nil).Artwork(path)
	assert.ErrorIs(t, err, domain.ErrUnresolvable)
}
