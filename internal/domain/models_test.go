package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTrack_Defaults(t *testing.T) {
	track := NewTrack("/music/Intro.mp3", nil)

	assert.Equal(t, "Intro", track.Title)
	assert.Equal(t, UnknownArtist, track.Artist)
	assert.Equal(t, UnknownAlbum, track.Album)
	assert.Equal(t, UnknownGenre, track.Genre)

	tagged := NewTrack("/music/01.mp3", &TrackMetadata{Title: " Hello ", Artist: "Adele", Year: 2015, Duration: time.Minute})
	assert.Equal(t, "Hello", tagged.Title)
	assert.Equal(t, "Adele", tagged.Artist)
	assert.Equal(t, UnknownAlbum, tagged.Album)
	assert.Equal(t, 2015, tagged.Year)
}

func TestTrack_ApplyMetadataDropsRemovedTags(t *testing.T) {
	track := NewTrack("/music/01.mp3", &TrackMetadata{
		Title: "Hello", Artist: "Adele", Album: "25", Genre: "Pop", Year: 2015, Duration: 5 * time.Minute,
	})
	track.PlayCount = 7

	track.ApplyMetadata(TrackMetadata{Duration: 5 * time.Minute})

	assert.Equal(t, "01", track.Title)
	assert.Equal(t, UnknownArtist, track.Artist)
	assert.Equal(t, UnknownAlbum, track.Album)
	assert.Equal(t, UnknownGenre, track.Genre)
	assert.Zero(t, track.Year)
	assert.Equal(t, 5*time.Minute, track.Duration)
	assert.Equal(t, 7, track.PlayCount)
}
