package domain

import "time"

// Source describes one external site or board being aggregated. Sources are
// defined in configuration at startup and never change while running.
type Source struct {
	ID       string   // stable key, e.g. "clien"
	Name     string   // display name, e.g. "클리앙"
	BaseURL  string   // scheme+host used to absolutize relative links
	ListURLs []string // candidate list page URLs, tried in order
	Strategy string   // extraction strategy id registered in the registry
	FeedKeys []string // feeds this source contributes to, e.g. "community:all"

	// selector lists for board-list extraction, tried in order because
	// site markup changes silently over time
	ListSelectors    []string
	TitleSelectors   []string
	ViewSelectors    []string
	TimeSelectors    []string
	ContentSelectors []string

	NoiseElements []string // elements removed from post bodies (ads, nav, comments)
	NoisePatterns []string // substrings marking a title as boilerplate/announcement

	MaxPosts   int // cap on posts taken per run
	MinQuality int // fewer extracted posts than this is a degraded result

	AllowPlaceholder bool // emit clearly-flagged synthetic posts when extraction yields nothing
	FabricateCounts  bool // backfill plausible bounded counters when the site exposes none
}

// AggregationResult is one immutable feed snapshot produced by a run.
type AggregationResult struct {
	FeedKey         string         `json:"feed"`
	Posts           []Post         `json:"posts"`
	PerSourceCounts map[string]int `json:"perSourceCounts"`
	Failed          []string       `json:"failedSources,omitempty"`
	GeneratedAt     time.Time      `json:"generatedAt"`
}
