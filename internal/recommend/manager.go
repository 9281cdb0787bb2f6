package recommend

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

// ManagerConfig holds the debounce and history settings of a Manager.
type ManagerConfig struct {
	// Delay is how long a song must keep playing before it is dispatched
	Delay time.Duration

	// HistorySize caps the remembered plays, oldest trimmed first
	HistorySize int
}

// DefaultManagerConfig returns the stock settings.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Delay:       10 * time.Second,
		HistorySize: 50,
	}
}

// Manager coordinates recommendation replenishment.
// Start debounces a playing song; once the delay passes the song is appended to the
// history and handed to the worker. Finished batches land in the cache and a
// RecommendationsChangedEvent is published.
//
// A newer Start cancels a timer that has not fired yet. Requests already handed to
// the worker always complete and their batch is still stored.
type Manager struct {
	cache   *Cache
	worker  *Worker
	bus     ports.EventBus
	history ports.HistoryRepository
	cfg     ManagerConfig
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending domain.PlayedSong
	played  []domain.PlayedSong
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager wires a manager to its cache and worker and starts both loops.
// history may be nil, in which case plays are only remembered in memory.
func NewManager(
	cache *Cache,
	worker *Worker,
	bus ports.EventBus,
	history ports.HistoryRepository,
	cfg ManagerConfig,
	logger *slog.Logger,
) *Manager {
	def := DefaultManagerConfig()
	if cfg.Delay <= 0 {
		cfg.Delay = def.Delay
	}
	if cfg.HistorySize < 1 {
		cfg.HistorySize = def.HistorySize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Manager{
		cache:   cache,
		worker:  worker,
		bus:     bus,
		history: history,
		cfg:     cfg,
		logger:  logger.With(slog.String("service", "RecommendationManager")),
		now:     time.Now,
		done:    make(chan struct{}),
	}

	worker.Start()
	m.wg.Add(1)
	go m.collect()

	return m
}

// LoadHistory seeds the in-memory history from the history repository.
func (m *Manager) LoadHistory(ctx context.Context) error {
	if m.history == nil {
		return nil
	}

	songs, err := m.history.Recent(ctx, m.cfg.HistorySize)
	if err != nil {
		return domain.NewServiceError("RecommendationManager", "LoadHistory", "failed to load history", err)
	}

	m.mu.Lock()
	m.played = append(songs, m.played...)
	m.trimHistory()
	m.mu.Unlock()

	m.logger.Debug("history loaded", slog.Int("songs", len(songs)))
	return nil
}

// Start debounces a recommendation request for the given song.
// Returns false when the song is the last fully processed one or the manager is closed.
func (m *Manager) Start(title, artist string) bool {
	return m.StartSong(title, artist, "")
}

// StartTrack is Start for a library track, reusing its genre tag when known.
func (m *Manager) StartTrack(track domain.Track) bool {
	return m.StartSong(track.Title, track.Artist, track.Genre)
}

// StartSong is Start with an explicit genre. An empty genre is guessed from the artist.
func (m *Manager) StartSong(title, artist, genre string) bool {
	if m.cache.IsLastProcessed(title, artist) {
		m.logger.Debug("skipping already processed song",
			slog.String("title", title),
			slog.String("artist", artist))
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.stopTimerLocked()
	m.gen++
	gen := m.gen
	m.pending = domain.PlayedSong{Title: title, Artist: artist, Genre: genre}
	m.timer = time.AfterFunc(m.cfg.Delay, func() { m.fire(gen) })

	m.logger.Debug("recommendation timer started",
		slog.String("title", title),
		slog.String("artist", artist),
		slog.Duration("delay", m.cfg.Delay))
	return true
}

// Cancel stops a pending timer and reports whether one was pending.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	return m.stopTimerLocked()
}

func (m *Manager) stopTimerLocked() bool {
	if m.timer == nil {
		return false
	}
	stopped := m.timer.Stop()
	m.timer = nil
	if stopped {
		m.logger.Debug("cancelled recommendation timer")
	}
	return stopped
}

// fire dispatches the pending song unless a newer Start or Cancel superseded gen.
func (m *Manager) fire(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.timer = nil

	p := m.pending
	song := NewPlayedSong(p.Title, p.Artist, p.Genre, m.now())
	prior := slices.Clone(m.played)

	// Submit never blocks; the song joins the history only once the worker owns it.
	if !m.worker.Submit(Request{Seq: gen, Song: song, History: prior}) {
		m.mu.Unlock()
		m.logger.Warn("recommendation worker stopped, song not dispatched",
			slog.String("title", song.Title))
		return
	}
	m.played = append(m.played, song)
	m.trimHistory()
	m.mu.Unlock()

	if m.history != nil {
		if err := m.history.Append(context.Background(), song); err != nil {
			m.logger.Warn("failed to persist play history", slog.Any("error", err))
		}
	}

	m.logger.Info("generating recommendations",
		slog.String("title", song.Title),
		slog.String("artist", song.Artist),
		slog.Int("history", len(prior)))
}

func (m *Manager) trimHistory() {
	if over := len(m.played) - m.cfg.HistorySize; over > 0 {
		m.played = slices.Clone(m.played[over:])
	}
}

// collect stores every batch the worker finishes.
func (m *Manager) collect() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return
		case res := <-m.worker.Results():
			added := m.cache.AddBatch(res.Recommendations)
			m.cache.SetLastProcessed(res.Request.Song.Title, res.Request.Song.Artist)

			m.logger.Info("recommendations ready",
				slog.String("title", res.Request.Song.Title),
				slog.Int("received", len(res.Recommendations)),
				slog.Int("added", added),
				slog.Int("total", m.cache.Len()))

			m.publish(domain.NewRecommendationsChangedEvent(m.cache.Len(), added))
		}
	}
}

func (m *Manager) publish(event domain.Event) {
	if m.bus != nil {
		m.bus.Publish(event)
	}
}

// Recommendations returns the cached entries, oldest first.
func (m *Manager) Recommendations() []domain.Recommendation {
	return m.cache.Recommendations()
}

// Len returns the number of cached entries.
func (m *Manager) Len() int {
	return m.cache.Len()
}

// History returns the remembered plays, oldest first.
func (m *Manager) History() []domain.PlayedSong {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.played)
}

// Play asks the player to stream the recommendation at index.
func (m *Manager) Play(index int) (domain.Recommendation, error) {
	rec, err := m.cache.At(index)
	if err != nil {
		m.logger.Warn("invalid recommendation index",
			slog.Int("index", index),
			slog.Int("total", m.cache.Len()))
		return domain.Recommendation{}, err
	}

	m.logger.Info("playing recommended song", slog.String("title", rec.Title))
	m.publish(domain.NewRecommendationPlayRequestedEvent(rec))
	return rec, nil
}

// Clear drops every recommendation and forgets the last processed song,
// so the same song can be processed again.
func (m *Manager) Clear() {
	m.cache.Clear()
	m.logger.Debug("cleared recommendations")
	m.publish(domain.NewRecommendationsChangedEvent(0, 0))
}

// Close stops the timer, the worker and the collector loop.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrClosed
	}
	m.closed = true
	m.gen++
	m.stopTimerLocked()
	m.mu.Unlock()

	m.worker.Stop()
	close(m.done)
	m.wg.Wait()

	return nil
}
