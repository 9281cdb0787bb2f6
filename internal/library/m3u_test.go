package library

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

func TestWriteM3U(t *testing.T) {
	var buf bytes.Buffer
	err := WriteM3U(&buf, []domain.Track{
		{Path: "/m/hello.mp3", Title: "Hello", Artist: "Adele", Duration: 295500 * time.Millisecond},
		{Path: "/m/yellow.flac", Title: "Yellow", Artist: "Coldplay", Duration: 266 * time.Second},
	})
	require.NoError(t, err)

	want := "#EXTM3U\n" +
		"#EXTINF:295,Adele - Hello\n/m/hello.mp3\n" +
		"#EXTINF:266,Coldplay - Yellow\n/m/yellow.flac\n"
	assert.Equal(t, want, buf.String())
}

func TestReadM3U(t *testing.T) {
	in := strings.Join([]string{
		"#EXTM3U",
		"#EXTINF:295,Adele - Hello",
		"/m/hello.mp3",
		"",
		"# a comment",
		"/m/bare track.ogg",
		"#EXTINF:-1,Just A Title",
		"/m/stream.mp3",
	}, "\r\n")

	tracks, err := ReadM3U(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	assert.Equal(t, "/m/hello.mp3", tracks[0].Path)
	assert.Equal(t, "Hello", tracks[0].Title)
	assert.Equal(t, "Adele", tracks[0].Artist)
	assert.Equal(t, 295*time.Second, tracks[0].Duration)

	assert.Equal(t, "bare track", tracks[1].Title)
	assert.Equal(t, domain.UnknownArtist, tracks[1].Artist)

	assert.Equal(t, "Just A Title", tracks[2].Title)
	assert.Zero(t, tracks[2].Duration)
}

func TestM3U_RoundTrip(t *testing.T) {
	tracks := []domain.Track{
		domain.NewTrack("/m/a.mp3", &domain.TrackMetadata{Title: "A", Artist: "X", Duration: 3 * time.Minute}),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteM3U(&buf, tracks))

	back, err := ReadM3U(&buf)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, tracks[0].Path, back[0].Path)
	assert.Equal(t, tracks[0].Title, back[0].Title)
	assert.Equal(t, tracks[0].Artist, back[0].Artist)
	assert.Equal(t, tracks[0].Duration, back[0].Duration)
}
