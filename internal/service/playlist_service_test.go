package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunecore/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunecore/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/library"
	"github.com/tejashwikalptaru/tunecore/internal/logger"
)

// mapLookup is a TrackLookup over a fixed set of tracks.
type mapLookup map[string]domain.Track

func (m mapLookup) GetTrack(path string) (domain.Track, bool) {
	t, ok := m[path]
	return t, ok
}

// failingPlaylistRepository wraps the memory repository and fails saves on demand.
type failingPlaylistRepository struct {
	*memory.PlaylistRepository
	failSave bool
}

func (r *failingPlaylistRepository) Save(ctx context.Context, p *domain.Playlist) error {
	if r.failSave {
		return errors.New("disk full")
	}
	return r.PlaylistRepository.Save(ctx, p)
}

var testTracks = mapLookup{
	"/m/hello.mp3":    {Path: "/m/hello.mp3", Title: "Hello", Artist: "Adele", Album: "25", Duration: 295 * time.Second},
	"/m/yellow.mp3":   {Path: "/m/yellow.mp3", Title: "Yellow", Artist: "Coldplay", Album: "Parachutes", Duration: 266 * time.Second},
	"/m/uprising.mp3": {Path: "/m/uprising.mp3", Title: "Uprising", Artist: "Muse", Album: "The Resistance", Duration: 305 * time.Second},
}

func newTestPlaylistService(t *testing.T) (*PlaylistService, *failingPlaylistRepository, *eventRecorder) {
	t.Helper()

	repo := &failingPlaylistRepository{PlaylistRepository: memory.NewPlaylistRepository()}
	bus := eventbus.NewSyncEventBus(logger.NewTestLogger())
	rec := &eventRecorder{}
	bus.SubscribeAll(rec.record)

	service, err := NewPlaylistService(logger.NewTestLogger(), repo, testTracks, bus, 0)
	require.NoError(t, err)
	return service, repo, rec
}

func TestPlaylistService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	service, repo, rec := newTestPlaylistService(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	service.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := service.Create(ctx, "  Road Trip ")
	require.NoError(t, err)
	assert.Equal(t, "Road Trip", first.Name)
	assert.NotEmpty(t, first.ID)
	assert.NotNil(t, first.Tracks)

	_, err = service.Create(ctx, "Gym")
	require.NoError(t, err)

	list := service.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Road Trip", list[0].Name)
	assert.Equal(t, "Gym", list[1].Name)

	assert.True(t, repo.Exists(first.ID))
	assert.Len(t, rec.ofType(domain.EventPlaylistUpdated), 2)

	found, err := service.FindByName("road trip")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = service.FindByName("nope")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)

	var validation *domain.ValidationError
	_, err = service.Create(ctx, "   ")
	assert.ErrorAs(t, err, &validation)
}

func TestPlaylistService_EditTracks(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestPlaylistService(t)

	p, err := service.Create(ctx, "Mix")
	require.NoError(t, err)

	require.NoError(t, service.AddPaths(ctx, p.ID, "/m/hello.mp3", "/m/yellow.mp3", "/m/uprising.mp3"))
	assert.ErrorIs(t, service.AddPaths(ctx, p.ID, "/m/missing.mp3"), domain.ErrTrackNotFound)

	require.NoError(t, service.MoveTrack(ctx, p.ID, 0, 2))
	got, err := service.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Yellow", "Uprising", "Hello"}, titles(got.Tracks))

	require.NoError(t, service.RemoveTrack(ctx, p.ID, 1))
	assert.ErrorIs(t, service.RemoveTrack(ctx, p.ID, 5), domain.ErrInvalidIndex)
	assert.ErrorIs(t, service.MoveTrack(ctx, p.ID, 0, 9), domain.ErrInvalidIndex)

	got, err = service.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Yellow", "Hello"}, titles(got.Tracks))

	require.NoError(t, service.Sort(ctx, p.ID, library.SortArtist))
	got, err = service.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "Yellow"}, titles(got.Tracks))

	require.NoError(t, service.Rename(ctx, p.ID, "Renamed"))
	got, err = service.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	assert.ErrorIs(t, service.AddTracks(ctx, "unknown"), domain.ErrPlaylistNotFound)
}

func TestPlaylistService_FailedSaveKeepsState(t *testing.T) {
	ctx := context.Background()
	service, repo, _ := newTestPlaylistService(t)

	p, err := service.Create(ctx, "Mix")
	require.NoError(t, err)

	repo.failSave = true
	err = service.AddPaths(ctx, p.ID, "/m/hello.mp3")
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)

	got, err := service.Get(p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tracks)

	_, err = service.Create(ctx, "Other")
	assert.Error(t, err)
	assert.Len(t, service.List(), 1)
}

func TestPlaylistService_MergeAndSearch(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestPlaylistService(t)

	a, err := service.Create(ctx, "A")
	require.NoError(t, err)
	b, err := service.Create(ctx, "B")
	require.NoError(t, err)
	require.NoError(t, service.AddPaths(ctx, a.ID, "/m/hello.mp3"))
	require.NoError(t, service.AddPaths(ctx, b.ID, "/m/yellow.mp3", "/m/uprising.mp3"))

	merged, err := service.Merge(ctx, "A+B", a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "Yellow", "Uprising"}, titles(merged.Tracks))
	assert.Len(t, service.List(), 3)

	hits, err := service.Search(merged.ID, "PARA")
	require.NoError(t, err)
	assert.Equal(t, []string{"Yellow"}, titles(hits))

	_, err = service.Merge(ctx, "bad", a.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)

	require.NoError(t, service.Delete(ctx, a.ID))
	assert.ErrorIs(t, service.Delete(ctx, a.ID), domain.ErrPlaylistNotFound)
}

func TestPlaylistService_M3U(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestPlaylistService(t)

	p, err := service.Create(ctx, "Export")
	require.NoError(t, err)
	require.NoError(t, service.AddPaths(ctx, p.ID, "/m/hello.mp3", "/m/yellow.mp3"))

	var buf bytes.Buffer
	require.NoError(t, service.ExportM3U(p.ID, &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "#EXTM3U\n#EXTINF:295,Adele - Hello\n/m/hello.mp3\n"))

	in := buf.String() + "#EXTINF:10,Someone - Elsewhere\n/other/x.mp3\n"
	imported, err := service.ImportM3U(ctx, "Imported", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, imported.Tracks, 3)
	assert.Equal(t, "25", imported.Tracks[0].Album)
	assert.Equal(t, "Elsewhere", imported.Tracks[2].Title)
	assert.Equal(t, "Someone", imported.Tracks[2].Artist)
}

func TestPlaylistService_LoadFromRepository(t *testing.T) {
	ctx := context.Background()
	service, repo, _ := newTestPlaylistService(t)

	p, err := service.Create(ctx, "Persisted")
	require.NoError(t, err)
	require.NoError(t, service.AddPaths(ctx, p.ID, "/m/hello.mp3"))

	restored, err := NewPlaylistService(logger.NewTestLogger(), repo, testTracks, eventbus.NewSyncEventBus(nil), 0)
	require.NoError(t, err)
	n, err := restored.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := restored.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, titles(got.Tracks))
}

func TestPlaylistService_Queue(t *testing.T) {
	repo := memory.NewPlaylistRepository()
	bus := eventbus.NewSyncEventBus(nil)
	rec := &eventRecorder{}
	bus.SubscribeAll(rec.record)

	service, err := NewPlaylistService(logger.NewTestLogger(), repo, testTracks, bus, 2)
	require.NoError(t, err)

	_, err = service.Next()
	assert.ErrorIs(t, err, domain.ErrQueueEmpty)

	require.NoError(t, service.Enqueue("/m/hello.mp3"))
	require.NoError(t, service.Enqueue("/m/yellow.mp3"))
	require.NoError(t, service.Enqueue("/m/uprising.mp3"))
	assert.ErrorIs(t, service.Enqueue("/m/missing.mp3"), domain.ErrTrackNotFound)

	assert.Equal(t, 2, service.QueueLen())
	assert.Equal(t, []string{"Yellow", "Uprising"}, titles(service.Queue()))

	peek, err := service.PeekNext()
	require.NoError(t, err)
	assert.Equal(t, "Yellow", peek.Title)

	next, err := service.Next()
	require.NoError(t, err)
	assert.Equal(t, "Yellow", next.Title)

	_, err = service.Dequeue(3)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)

	service.ClearQueue()
	assert.Zero(t, service.QueueLen())

	changed := rec.ofType(domain.EventQueueChanged)
	require.Len(t, changed, 5)
	assert.Empty(t, changed[4].(domain.QueueChangedEvent).Queue)

	_, err = NewPlaylistService(logger.NewTestLogger(), repo, testTracks, bus, -1)
	var validation *domain.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func titles(tracks []domain.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}
