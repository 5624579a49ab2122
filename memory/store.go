package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	errorskg "github.com/sweetpotato0/ai-autopilot/errors"
	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
	"github.com/sweetpotato0/ai-autopilot/pkg/telemetry"
	"github.com/sweetpotato0/ai-autopilot/store"
	"github.com/sweetpotato0/ai-autopilot/vector"
)

// RebuildInterval is the episode count cadence at which the vocabulary is
// rebuilt and every episode re-embedded. Between rebuilds, terms first seen
// in new episodes are not indexed.
const RebuildInterval = 10

const defaultSearchLimit = 5

type state int

const (
	stateIdle state = iota
	stateRebuilding
)

// SearchOptions narrows SearchSimilar. Zero values mean no constraint,
// except Limit which defaults to 5.
type SearchOptions struct {
	Limit       int
	MinScore    float64
	SuccessOnly bool
	TaskType    string
}

// SearchResult pairs an episode with its similarity to the query.
type SearchResult struct {
	Episode *Episode `json:"episode"`
	Score   float64  `json:"score"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a handle on the episode log. The in-memory episode list and the
// vocabulary are rebuilt together under the write lock; reads wait for a
// rebuild to finish.
type Store struct {
	log    store.Log[Episode]
	logger *slog.Logger
	now    func() time.Time

	init singleflight.Group

	mu          sync.RWMutex
	state       state
	initialized bool
	closed      bool
	episodes    []*Episode
	vocab       *Vocabulary

	// partial is set when the log could not be read in full. The store then
	// only appends so unread history is never overwritten.
	partial bool
}

// NewStore wraps log. Call Initialize before use; RecordEpisode and the
// read paths initialise lazily when needed.
func NewStore(log store.Log[Episode], opts ...Option) *Store {
	s := &Store{
		log:    log,
		logger: logging.WithComponent("memory"),
		now:    func() time.Time { return time.Now().UTC() },
		vocab:  BuildVocabulary(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads persisted episodes, builds the vocabulary and backfills
// missing embeddings. It is idempotent and concurrent callers share one
// load. A read failure is logged and keeps whatever was read; the log is
// then never rewritten.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.RLock()
	done, closed := s.initialized, s.closed
	s.mu.RUnlock()
	if closed {
		return errorskg.ErrStoreClosed
	}
	if done {
		return nil
	}
	_, err, _ := s.init.Do("init", func() (any, error) {
		return nil, s.load(ctx)
	})
	return err
}

func (s *Store) load(ctx context.Context) error {
	ctx, span := telemetry.Start(ctx, "memory", "initialize")
	var err error
	defer func() { telemetry.End(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	recs, readErr := s.log.ReadAll(ctx)
	if readErr != nil {
		s.logger.WarnContext(ctx, "failed to read episodes, continuing append-only",
			"error", readErr,
			"recovered", len(recs),
		)
		s.partial = true
	}

	s.episodes = make([]*Episode, 0, len(recs))
	for i := range recs {
		s.episodes = append(s.episodes, &recs[i])
	}

	s.state = stateRebuilding
	s.vocab = BuildVocabulary(s.corpus(nil))
	backfilled := 0
	for _, ep := range s.episodes {
		if len(ep.Embedding) != Dimensions || vector.IsZero(ep.Embedding) {
			ep.Embedding = s.vocab.Embed(ep.SearchableText())
			backfilled++
		}
	}
	s.state = stateIdle

	if backfilled > 0 && !s.partial {
		if rw, ok := s.log.(store.Rewriter[Episode]); ok {
			if werr := rw.Rewrite(ctx, s.snapshot()); werr != nil {
				s.logger.WarnContext(ctx, "failed to persist backfilled embeddings", "error", werr)
			}
		}
	}

	s.initialized = true
	span.SetAttributes(
		attribute.Int("memory.episodes", len(s.episodes)),
		attribute.Int("memory.backfilled", backfilled),
	)
	s.logger.InfoContext(ctx, "episodic memory initialized",
		"episodes", len(s.episodes),
		"vocabulary", s.vocab.Size(),
		"backfilled", backfilled,
	)
	return nil
}

// Close releases the underlying log.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.log.Close()
}

// RecordEpisode persists a finished session and returns the stored episode.
// When the episode count is zero or a multiple of RebuildInterval the
// vocabulary is rebuilt over the whole corpus, new episode included, and
// every existing episode is re-embedded.
func (s *Store) RecordEpisode(ctx context.Context, result SessionResult) (*Episode, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	ctx, span := telemetry.Start(ctx, "memory", "record_episode",
		attribute.String("memory.task_type", result.TaskType),
		attribute.Bool("memory.success", result.Success),
	)
	var err error
	defer func() { telemetry.End(span, err) }()

	id, idErr := uuid.NewV7()
	if idErr != nil {
		id = uuid.New()
	}
	ep := newEpisode(id.String(), s.now(), result)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		err = errorskg.ErrStoreClosed
		return nil, err
	}

	count := len(s.episodes)
	rebuilt := count == 0 || count%RebuildInterval == 0
	if rebuilt {
		s.rebuild(ep)
	}
	ep.Embedding = s.vocab.Embed(ep.SearchableText())

	if rebuilt && count > 0 {
		err = s.persistAll(ctx, ep)
	} else {
		err = s.log.Append(ctx, *ep)
	}
	if err != nil {
		err = fmt.Errorf("record episode: %w", err)
		return nil, err
	}

	s.episodes = append(s.episodes, ep)
	span.SetAttributes(attribute.Bool("memory.rebuilt", rebuilt))
	s.logger.DebugContext(ctx, "episode recorded",
		"episode_id", ep.ID,
		"episodes", len(s.episodes),
		"rebuilt", rebuilt,
	)
	return ep, nil
}

// rebuild must be called with the write lock held.
func (s *Store) rebuild(next *Episode) {
	s.state = stateRebuilding
	defer func() { s.state = stateIdle }()

	s.vocab = BuildVocabulary(s.corpus(next))
	for _, ep := range s.episodes {
		ep.Embedding = s.vocab.Embed(ep.SearchableText())
	}
}

// persistAll writes the re-embedded corpus plus next. Backends that cannot
// rewrite, and logs that were only partly read, keep their stale embeddings
// on disk and only get next appended.
func (s *Store) persistAll(ctx context.Context, next *Episode) error {
	rw, ok := s.log.(store.Rewriter[Episode])
	if !ok || s.partial {
		return s.log.Append(ctx, *next)
	}
	all := append(s.snapshot(), *next)
	return rw.Rewrite(ctx, all)
}

func (s *Store) corpus(next *Episode) []string {
	docs := make([]string, 0, len(s.episodes)+1)
	for _, ep := range s.episodes {
		docs = append(docs, ep.SearchableText())
	}
	if next != nil {
		docs = append(docs, next.SearchableText())
	}
	return docs
}

func (s *Store) snapshot() []Episode {
	out := make([]Episode, len(s.episodes))
	for i, ep := range s.episodes {
		out[i] = *ep
	}
	return out
}

// SearchSimilar embeds query with the current vocabulary and returns the
// episodes most similar to it. Episodes sharing no indexed term with the
// query are never returned.
func (s *Store) SearchSimilar(ctx context.Context, query string, opts SearchOptions) []SearchResult {
	if err := s.Initialize(ctx); err != nil {
		s.logger.WarnContext(ctx, "search on unavailable store", "error", err)
		return nil
	}
	_, span := telemetry.Start(ctx, "memory", "search_similar")
	defer telemetry.End(span, nil)

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	q := s.vocab.Embed(query)
	if vector.IsZero(q) {
		return nil
	}

	var results []SearchResult
	for _, ep := range s.episodes {
		if opts.SuccessOnly && !ep.Success {
			continue
		}
		if opts.TaskType != "" && ep.TaskType != opts.TaskType {
			continue
		}
		score := float64(vector.CosineSimilarity(q, ep.Embedding))
		if score <= 0 || score < opts.MinScore {
			continue
		}
		results = append(results, SearchResult{Episode: ep, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	span.SetAttributes(attribute.Int("memory.results", len(results)))
	return results
}

// Episodes returns a copy of the stored episodes in append order.
func (s *Store) Episodes() []Episode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Count returns the number of stored episodes.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.episodes)
}
