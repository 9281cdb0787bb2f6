package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/logger"
)

// fakeArtwork serves in-memory pictures by path and counts reads.
type fakeArtwork struct {
	pictures map[string][]byte
	reads    atomic.Int32
	err      error
}

func (f *fakeArtwork) Artwork(path string) ([]byte, error) {
	f.reads.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.pictures[path]
	if !ok {
		return nil, domain.ErrUnresolvable
	}
	return data, nil
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestArtworkService_CoverIsScaledAndCachedByAlbum(t *testing.T) {
	source := &fakeArtwork{pictures: map[string][]byte{
		"/m/1.mp3": encodePNG(t, 400, 200),
	}}
	service, err := NewArtworkService(logger.NewTestLogger(), source, ArtworkConfig{Size: 64})
	require.NoError(t, err)

	first := domain.Track{Path: "/m/1.mp3", Album: "Parachutes"}
	second := domain.Track{Path: "/m/2.mp3", Album: "Parachutes"}

	img, err := service.Cover(first)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())

	again, err := service.Cover(second)
	require.NoError(t, err)
	assert.Same(t, img, again)
	assert.Equal(t, int32(1), source.reads.Load())
	assert.True(t, service.Cached(second))
}

func TestArtworkService_PlaceholderForMissingArt(t *testing.T) {
	source := &fakeArtwork{pictures: map[string][]byte{
		"/m/broken.mp3": []byte("not an image"),
	}}
	service, err := NewArtworkService(logger.NewTestLogger(), source, ArtworkConfig{Size: 32})
	require.NoError(t, err)

	img, err := service.Cover(domain.Track{Path: "/m/none.mp3", Album: domain.UnknownAlbum})
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())

	img, err = service.Cover(domain.Track{Path: "/m/broken.mp3", Album: "Broken"})
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dy())
	assert.Equal(t, 2, service.Len())
}

func TestArtworkService_SourceError(t *testing.T) {
	source := &fakeArtwork{err: errors.New("disk on fire")}
	service, err := NewArtworkService(logger.NewTestLogger(), source, ArtworkConfig{})
	require.NoError(t, err)

	_, err = service.Cover(domain.Track{Path: "/m/a.mp3", Album: "A"})
	var svcErr *domain.ServiceError
	assert.ErrorAs(t, err, &svcErr)
	assert.Zero(t, service.Len())
}

func TestArtworkService_EvictsLeastRecentlyUsedAlbum(t *testing.T) {
	service, err := NewArtworkService(logger.NewTestLogger(), &fakeArtwork{}, ArtworkConfig{CacheSize: 2, Size: 8})
	require.NoError(t, err)

	a := domain.Track{Path: "/a", Album: "A"}
	b := domain.Track{Path: "/b", Album: "B"}
	c := domain.Track{Path: "/c", Album: "C"}

	for _, track := range []domain.Track{a, b, a, c} {
		_, err := service.Cover(track)
		require.NoError(t, err)
	}

	assert.True(t, service.Cached(a))
	assert.False(t, service.Cached(b))
	assert.True(t, service.Cached(c))

	service.Purge()
	assert.Zero(t, service.Len())
}

func TestArtworkService_InvalidCacheSize(t *testing.T) {
	_, err := NewArtworkService(logger.NewTestLogger(), &fakeArtwork{}, ArtworkConfig{CacheSize: -1})
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestArtworkService_ConcurrentRequestsShareDecode(t *testing.T) {
	source := &fakeArtwork{pictures: map[string][]byte{"/m/x.mp3": encodePNG(t, 32, 32)}}
	service, err := NewArtworkService(logger.NewTestLogger(), source, ArtworkConfig{Size: 16})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Cover(domain.Track{Path: "/m/x.mp3", Album: "X"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, source.reads.Load(), int32(8))
	assert.Equal(t, 1, service.Len())
}

func TestArtworkService_WritePNG(t *testing.T) {
	service, err := NewArtworkService(logger.NewTestLogger(), &fakeArtwork{}, ArtworkConfig{Size: 16})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, service.WritePNG(&buf, domain.Track{Path: "/m/a.mp3", Album: "Hello World"}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "?", initials(""))
	assert.Equal(t, "?", initials(domain.UnknownAlbum))
	assert.Equal(t, "HW", initials("hello world again"))
	assert.Equal(t, "É", initials("été"))
}
