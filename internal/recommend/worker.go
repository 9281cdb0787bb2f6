package recommend

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

// Request asks the worker to generate recommendations for Song.
// History holds earlier plays, oldest first, and does not include Song itself.
type Request struct {
	Seq     uint64
	Song    domain.PlayedSong
	History []domain.PlayedSong
}

// Result carries one generated batch back to the coordinator.
type Result struct {
	Request         Request
	BatchID         string
	Recommendations []domain.Recommendation
}

// WorkerConfig holds the search limits of a Worker.
type WorkerConfig struct {
	// ResultsPerQuery caps the hits requested per phrase
	ResultsPerQuery int

	// PerSong caps the entries of one batch
	PerSong int

	// MaxPhrases caps the phrases derived from one song
	MaxPhrases int

	// QueryTimeout bounds a single search call
	QueryTimeout time.Duration

	// QueryInterval is the minimum gap between two search calls
	QueryInterval time.Duration

	// SimilarSongs is how many history songs may contribute phrases
	SimilarSongs int

	// SimilarityThreshold is the score a history song must exceed to contribute
	SimilarityThreshold float64

	// QueueSize is the result channel buffer
	QueueSize int
}

// DefaultWorkerConfig returns the stock limits.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		ResultsPerQuery:     1,
		PerSong:             DefaultPerSong,
		MaxPhrases:          5,
		QueryTimeout:        15 * time.Second,
		QueryInterval:       200 * time.Millisecond,
		SimilarSongs:        2,
		SimilarityThreshold: 0.3,
		QueueSize:           4,
	}
}

// Worker runs search queries on a single background goroutine.
// Requests go in through Submit and finished batches come out of Results;
// callers never block on a search. Every accepted request produces exactly one
// Result unless the worker is stopped first.
type Worker struct {
	provider ports.SearchProvider
	cfg      WorkerConfig
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu      sync.Mutex
	pending []Request
	wake    chan struct{}
	results chan Result

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWorker creates a worker. Call Start to launch its goroutine.
func NewWorker(provider ports.SearchProvider, cfg WorkerConfig, logger *slog.Logger) *Worker {
	def := DefaultWorkerConfig()
	if cfg.ResultsPerQuery < 1 {
		cfg.ResultsPerQuery = def.ResultsPerQuery
	}
	if cfg.PerSong < 1 {
		cfg.PerSong = def.PerSong
	}
	if cfg.MaxPhrases < 1 {
		cfg.MaxPhrases = def.MaxPhrases
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = def.QueueSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	limit := rate.Inf
	if cfg.QueryInterval > 0 {
		limit = rate.Every(cfg.QueryInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		provider: provider,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.With(slog.String("component", "recommend_worker")),
		wake:     make(chan struct{}, 1),
		results:  make(chan Result, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the worker goroutine. Further calls do nothing.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.run()
	})
}

func (w *Worker) run() {
	defer w.wg.Done()

	for {
		req, ok := w.next()
		if !ok {
			select {
			case <-w.ctx.Done():
				return
			case <-w.wake:
				continue
			}
		}
		if w.ctx.Err() != nil {
			return
		}

		res := Result{
			Request:         req,
			BatchID:         uuid.NewString(),
			Recommendations: w.Generate(w.ctx, req.Song, req.History),
		}
		for i := range res.Recommendations {
			res.Recommendations[i].BatchID = res.BatchID
		}

		select {
		case w.results <- res:
		case <-w.ctx.Done():
			return
		}
	}
}

// next pops the oldest pending request.
func (w *Worker) next() (Request, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return Request{}, false
	}
	req := w.pending[0]
	w.pending[0] = Request{}
	w.pending = w.pending[1:]
	return req, true
}

// Submit queues req without blocking and reports whether it was accepted.
// The pending list is unbounded, so only a stopped worker refuses a request.
func (w *Worker) Submit(req Request) bool {
	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return false
	}
	w.pending = append(w.pending, req)
	depth := len(w.pending)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}

	if depth > 1 {
		w.logger.Debug("recommendation request queued behind a busy worker",
			slog.String("title", req.Song.Title),
			slog.Int("pending", depth))
	}
	return true
}

// Pending returns how many accepted requests have not started generating yet.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Results returns the channel finished batches are delivered on.
func (w *Worker) Results() <-chan Result {
	return w.results
}

// Stop shuts the worker down and waits for its goroutine to exit.
// A search in flight is abandoned through its context and pending requests are dropped.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.cancel()
		w.pending = nil
		w.mu.Unlock()
		w.wg.Wait()
	})
}

// Phrases derives up to limit search phrases from a song: two artist phrases,
// one genre phrase and one per keyword longer than four characters.
func Phrases(song domain.PlayedSong, limit int) []string {
	phrases := make([]string, 0, limit)
	add := func(p string) {
		if len(phrases) < limit {
			phrases = append(phrases, p)
		}
	}

	if known(song.Artist, domain.UnknownArtist) {
		add(fmt.Sprintf("%s viral song", song.Artist))
		add(fmt.Sprintf("songs by %s", song.Artist))
	}
	if known(song.Genre, domain.UnknownGenre) {
		add(fmt.Sprintf("%s mashup", song.Genre))
	}
	for _, kw := range song.Keywords {
		if len([]rune(kw)) > 4 {
			add(fmt.Sprintf("%s same vibe", kw))
		}
	}
	return phrases
}

type scoredSong struct {
	song  domain.PlayedSong
	score float64
}

// similarSongs returns the history songs that may contribute phrases, best first.
func (w *Worker) similarSongs(song domain.PlayedSong, history []domain.PlayedSong) []scoredSong {
	scored := make([]scoredSong, 0, len(history))
	for _, h := range history {
		scored = append(scored, scoredSong{song: h, score: Similarity(song, h)})
	}
	slices.SortStableFunc(scored, func(a, b scoredSong) int {
		return cmp.Compare(b.score, a.score)
	})

	out := make([]scoredSong, 0, w.cfg.SimilarSongs)
	for _, s := range scored[:min(w.cfg.SimilarSongs, len(scored))] {
		if s.score > w.cfg.SimilarityThreshold {
			out = append(out, s)
		}
	}
	return out
}

// Generate runs the searches for song and the most similar history songs and
// returns at most PerSong unique recommendations. Search failures are logged and
// contribute nothing. It blocks, so it must only run off the coordinating goroutine.
func (w *Worker) Generate(ctx context.Context, song domain.PlayedSong, history []domain.PlayedSong) []domain.Recommendation {
	sources := append([]scoredSong{{song: song, score: 1.0}}, w.similarSongs(song, history)...)

	seen := make(map[string]struct{})
	queried := make(map[string]struct{})
	recs := make([]domain.Recommendation, 0, w.cfg.PerSong)

	for _, src := range sources {
		for _, phrase := range Phrases(src.song, w.cfg.MaxPhrases) {
			if len(recs) >= w.cfg.PerSong {
				return recs
			}
			if _, dup := queried[phrase]; dup {
				continue
			}
			queried[phrase] = struct{}{}

			for _, hit := range w.search(ctx, phrase) {
				if hit.Title == "" || len(recs) >= w.cfg.PerSong {
					continue
				}
				if _, dup := seen[hit.Title]; dup {
					continue
				}
				seen[hit.Title] = struct{}{}

				artist := hit.Uploader
				if artist == "" {
					artist = domain.UnknownArtist
				}
				recs = append(recs, domain.Recommendation{
					Title:         hit.Title,
					Artist:        artist,
					ThumbnailURL:  hit.ThumbnailURL,
					PlaybackQuery: hit.Title,
					Score:         src.score,
					SourceTitle:   song.Title,
					SourceArtist:  song.Artist,
				})
			}
		}
	}

	w.logger.Debug("recommendations generated",
		slog.String("title", song.Title),
		slog.Int("count", len(recs)))
	return recs
}

func (w *Worker) search(ctx context.Context, phrase string) []domain.SearchResult {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil
	}

	qctx, cancel := context.WithTimeout(ctx, w.cfg.QueryTimeout)
	defer cancel()

	hits, err := w.provider.Search(qctx, phrase, w.cfg.ResultsPerQuery)
	if err != nil {
		w.logger.Warn("search failed",
			slog.String("query", phrase),
			slog.String("kind", domain.Classify(err).String()),
			slog.Any("error", err))
		return nil
	}
	if len(hits) > w.cfg.ResultsPerQuery {
		hits = hits[:w.cfg.ResultsPerQuery]
	}
	return hits
}
