package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/singleflight"

	"github.com/onlhub/boardscope/pkg/domain"
)

// ErrAllSourcesFailed is returned when every source of a feed failed in a
// run; the cache is left untouched so stale data stays servable
var ErrAllSourcesFailed = errors.New("all sources failed")

// ErrUnknownFeed is returned for feed keys no source contributes to
var ErrUnknownFeed = errors.New("unknown feed")

// Fetcher retrieves raw page content through the relay chain
type Fetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// Extractor turns fetched content into raw post fragments per source
type Extractor interface {
	Extract(content string, src domain.Source) ([]domain.RawFragment, error)
}

// Normalizer converts fragments to posts and deduplicates merged sets
type Normalizer interface {
	Normalize(frags []domain.RawFragment, src domain.Source) []domain.Post
	Dedupe(posts []domain.Post) []domain.Post
	Placeholder(src domain.Source) []domain.Post
}

// Cache receives finished snapshots and answers freshness queries
type Cache interface {
	Get(feedKey string) (domain.AggregationResult, bool)
	Put(feedKey string, result domain.AggregationResult)
}

// SnapshotStore persists finished snapshots; may be nil when persistence
// is disabled
type SnapshotStore interface {
	Save(ctx context.Context, result domain.AggregationResult) error
}

// Config holds scheduler configuration
type Config struct {
	RefreshInterval time.Duration
	RunBudget       time.Duration
	MaxWorkers      int
}

// Scheduler coordinates aggregation runs: hourly per feed, on demand via
// RunOnce, with concurrent calls for the same feed collapsed into one run
type Scheduler struct {
	fetcher    Fetcher
	extractor  Extractor
	normalizer Normalizer
	cache      Cache
	store      SnapshotStore

	feeds    map[string][]domain.Source // source order defines merge tie-breaking
	feedKeys []string

	interval   time.Duration
	budget     time.Duration
	maxWorkers int
	now        func() time.Time

	group    singleflight.Group
	inflight sync.Map
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// NewScheduler creates a scheduler for the given sources. Feed membership
// and per-feed source order follow the declaration order of sources.
func NewScheduler(fetcher Fetcher, extractor Extractor, normalizer Normalizer, c Cache, store SnapshotStore, sources []domain.Source, cfg Config) *Scheduler {
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = time.Hour
	}
	if cfg.RunBudget == 0 {
		cfg.RunBudget = 60 * time.Second
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 5
	}

	feeds := make(map[string][]domain.Source)
	var feedKeys []string
	for _, src := range sources {
		for _, key := range src.FeedKeys {
			if _, ok := feeds[key]; !ok {
				feedKeys = append(feedKeys, key)
			}
			feeds[key] = append(feeds[key], src)
		}
	}

	return &Scheduler{
		fetcher:    fetcher,
		extractor:  extractor,
		normalizer: normalizer,
		cache:      c,
		store:      store,
		feeds:      feeds,
		feedKeys:   feedKeys,
		interval:   cfg.RefreshInterval,
		budget:     cfg.RunBudget,
		maxWorkers: cfg.MaxWorkers,
		now:        time.Now,
	}
}

// FeedKeys returns all known feed keys in declaration order
func (s *Scheduler) FeedKeys() []string {
	keys := make([]string, len(s.feedKeys))
	copy(keys, s.feedKeys)
	return keys
}

// InFlight reports whether an aggregation run for the feed is in progress
func (s *Scheduler) InFlight(feedKey string) bool {
	_, ok := s.inflight.Load(feedKey)
	return ok
}

// Start begins periodic refresh of all feeds
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.refreshWorker(ctx)

	lgr.Printf("[INFO] scheduler started for %d feeds, interval %v, run budget %v", len(s.feedKeys), s.interval, s.budget)
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// refreshWorker refreshes every feed on interval, starting immediately
func (s *Scheduler) refreshWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.refreshAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshAll(ctx)
		}
	}
}

// refreshAll runs one aggregation per feed; feeds are fully independent
func (s *Scheduler) refreshAll(ctx context.Context) {
	for _, key := range s.feedKeys {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.RunOnce(ctx, key); err != nil {
			lgr.Printf("[ERROR] scheduled refresh of %s failed: %v", key, err)
		}
	}
}

// RunOnce triggers one aggregation run for the feed. Concurrent calls for
// the same feed key join the in-flight run instead of duplicating work.
func (s *Scheduler) RunOnce(ctx context.Context, feedKey string) (domain.AggregationResult, error) {
	v, err, _ := s.group.Do(feedKey, func() (interface{}, error) {
		s.inflight.Store(feedKey, struct{}{})
		defer s.inflight.Delete(feedKey)
		return s.aggregate(ctx, feedKey)
	})
	if err != nil {
		return domain.AggregationResult{}, err
	}
	return v.(domain.AggregationResult), nil
}

// aggregate fetches all sources of a feed in parallel, merges, dedupes and
// publishes the snapshot. Partial source failures are tolerated; only a run
// where every source failed is reported as an error.
func (s *Scheduler) aggregate(ctx context.Context, feedKey string) (domain.AggregationResult, error) {
	sources, ok := s.feeds[feedKey]
	if !ok {
		return domain.AggregationResult{}, fmt.Errorf("%w: %q", ErrUnknownFeed, feedKey)
	}

	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	lgr.Printf("[INFO] aggregating feed %s from %d sources", feedKey, len(sources))

	collected := make([][]domain.Post, len(sources))
	hardFailed := make([]bool, len(sources))

	sem := make(chan struct{}, s.maxWorkers)
	var wg sync.WaitGroup

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, src domain.Source) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				hardFailed[idx] = true
				return
			}

			posts, err := s.collectSource(ctx, src)
			if err != nil {
				lgr.Printf("[WARN] source %s failed for feed %s: %v", src.ID, feedKey, err)
				hardFailed[idx] = true
				return
			}
			collected[idx] = posts
		}(i, src)
	}
	wg.Wait()

	var failedIDs []string
	allFailed := true
	for i := range sources {
		if hardFailed[i] {
			failedIDs = append(failedIDs, sources[i].ID)
			continue
		}
		allFailed = false
	}
	if allFailed {
		return domain.AggregationResult{}, fmt.Errorf("feed %s: %w", feedKey, ErrAllSourcesFailed)
	}

	// merge in source order so dedupe keeps the first-declared source's copy
	var all []domain.Post
	for _, posts := range collected {
		all = append(all, posts...)
	}
	all = s.normalizer.Dedupe(all)

	counts := make(map[string]int, len(sources))
	for _, src := range sources {
		counts[src.ID] = 0
	}
	for _, p := range all {
		counts[p.SourceID]++
	}

	// clearly-flagged placeholders for opted-in sources that yielded nothing;
	// they never count as contributed posts
	for _, src := range sources {
		if counts[src.ID] == 0 && src.AllowPlaceholder {
			all = append(all, s.normalizer.Placeholder(src)...)
		}
	}

	// stable sort keeps source-enumeration order on equal timestamps,
	// making repeated runs over the same inputs deterministic
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Published.After(all[j].Published)
	})

	result := domain.AggregationResult{
		FeedKey:         feedKey,
		Posts:           all,
		PerSourceCounts: counts,
		Failed:          failedIDs,
		GeneratedAt:     s.now(),
	}

	s.cache.Put(feedKey, result)
	if s.store != nil {
		if err := s.store.Save(context.WithoutCancel(ctx), result); err != nil {
			lgr.Printf("[WARN] failed to persist snapshot for %s: %v", feedKey, err)
		}
	}

	lgr.Printf("[INFO] feed %s aggregated: %d posts, %d sources failed", feedKey, len(all), len(failedIDs))
	return result, nil
}

// collectSource fetches and extracts one source, trying its candidate list
// URLs in order. Degraded extraction (fewer posts than the source's quality
// threshold) is logged but still accepted.
func (s *Scheduler) collectSource(ctx context.Context, src domain.Source) ([]domain.Post, error) {
	if len(src.ListURLs) == 0 {
		return nil, fmt.Errorf("source %s: no list URLs configured", src.ID)
	}

	var lastErr error
	for _, listURL := range src.ListURLs {
		content, err := s.fetcher.Fetch(ctx, listURL)
		if err != nil {
			lastErr = err
			continue
		}

		frags, err := s.extractor.Extract(content, src)
		if err != nil {
			lastErr = err
			continue
		}

		posts := s.normalizer.Normalize(frags, src)
		if len(posts) < src.MinQuality {
			lgr.Printf("[WARN] source %s degraded: %d posts below threshold %d", src.ID, len(posts), src.MinQuality)
		}
		return posts, nil
	}
	return nil, fmt.Errorf("source %s: %w", src.ID, lastErr)
}
