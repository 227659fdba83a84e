package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/onlhub/boardscope/pkg/domain"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
		BaseURL string        `yaml:"base_url" json:"base_url" jsonschema:"description=Public base URL used in generated RSS links"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:boardscope.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Snapshot persistence configuration"`

	Cache struct {
		TTL        time.Duration `yaml:"ttl" json:"ttl" jsonschema:"default=1h,description=Feed snapshot time-to-live"`
		ContentTTL time.Duration `yaml:"content_ttl" json:"content_ttl" jsonschema:"default=30m,description=Post body cache time-to-live"`
	} `yaml:"cache" json:"cache" jsonschema:"description=Cache configuration"`

	Schedule struct {
		RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval" jsonschema:"default=1h,description=Periodic refresh interval per feed"`
		RunBudget       time.Duration `yaml:"run_budget" json:"run_budget" jsonschema:"default=60s,description=Overall wall-clock budget for one aggregation run"`
		MaxWorkers      int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=5,description=Maximum sources fetched concurrently"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Scheduler configuration"`

	Proxy struct {
		Endpoints      []ProxyEndpoint `yaml:"endpoints" json:"endpoints" jsonschema:"description=Ordered relay endpoints tried on each fetch"`
		AttemptTimeout time.Duration   `yaml:"attempt_timeout" json:"attempt_timeout" jsonschema:"default=15s,description=Timeout per relay attempt"`
		MaxBodySize    int64           `yaml:"max_body_size" json:"max_body_size" jsonschema:"default=5242880,description=Maximum payload size in bytes"`
	} `yaml:"proxy" json:"proxy" jsonschema:"description=Relay fetch configuration"`

	Normalize struct {
		MinTitleLength int `yaml:"min_title_length" json:"min_title_length" jsonschema:"default=5,description=Minimum title length in runes"`
		MaxTitleLength int `yaml:"max_title_length" json:"max_title_length" jsonschema:"default=200,description=Maximum title length in runes"`
	} `yaml:"normalize" json:"normalize" jsonschema:"description=Normalization configuration"`

	Sources []Source `yaml:"sources" json:"sources" jsonschema:"description=Aggregated sources"`
}

// ProxyEndpoint is one relay service used to fetch remote pages on our behalf
type ProxyEndpoint struct {
	URL  string `yaml:"url" json:"url" jsonschema:"required,description=Endpoint prefix the target URL is appended to"`
	Kind string `yaml:"kind" json:"kind" jsonschema:"enum=wrap-json,enum=passthrough,default=passthrough,description=Response shape of the relay"`
}

// Source declares one aggregated site. Adding a source is a config change;
// code changes are only needed when its markup requires a new strategy.
type Source struct {
	ID       string   `yaml:"id" json:"id" jsonschema:"required,description=Stable source key"`
	Name     string   `yaml:"name" json:"name" jsonschema:"required,description=Display name"`
	BaseURL  string   `yaml:"base_url" json:"base_url" jsonschema:"required,description=Site base URL"`
	ListURLs []string `yaml:"list_urls" json:"list_urls" jsonschema:"required,description=Candidate list page URLs tried in order"`
	Strategy string   `yaml:"strategy" json:"strategy" jsonschema:"default=board-list,description=Registered extraction strategy id"`
	Feeds    []string `yaml:"feeds" json:"feeds" jsonschema:"required,description=Feed keys this source contributes to"`

	ListSelectors    []string `yaml:"list_selectors" json:"list_selectors" jsonschema:"description=Candidate list row selectors"`
	TitleSelectors   []string `yaml:"title_selectors" json:"title_selectors" jsonschema:"description=Title selectors within a row"`
	ViewSelectors    []string `yaml:"view_selectors" json:"view_selectors" jsonschema:"description=View counter selectors within a row"`
	TimeSelectors    []string `yaml:"time_selectors" json:"time_selectors" jsonschema:"description=Timestamp selectors within a row"`
	ContentSelectors []string `yaml:"content_selectors" json:"content_selectors" jsonschema:"description=Post body container selectors"`

	NoiseElements []string `yaml:"noise_elements" json:"noise_elements" jsonschema:"description=Elements removed from post bodies"`
	NoisePatterns []string `yaml:"noise_patterns" json:"noise_patterns" jsonschema:"description=Substrings marking a title as boilerplate"`

	MaxPosts   int `yaml:"max_posts" json:"max_posts" jsonschema:"default=5,description=Posts taken per run"`
	MinQuality int `yaml:"min_quality" json:"min_quality" jsonschema:"default=3,description=Degraded-result threshold"`

	AllowPlaceholder bool `yaml:"allow_placeholder" json:"allow_placeholder" jsonschema:"default=false,description=Emit flagged synthetic posts when extraction yields nothing"`
	FabricateCounts  bool `yaml:"fabricate_counts" json:"fabricate_counts" jsonschema:"default=false,description=Backfill bounded plausible counters"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:8080"
	}

	// set defaults for database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:boardscope.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// set defaults for cache
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Cache.ContentTTL == 0 {
		cfg.Cache.ContentTTL = 30 * time.Minute
	}

	// set defaults for schedule
	if cfg.Schedule.RefreshInterval == 0 {
		cfg.Schedule.RefreshInterval = time.Hour
	}
	if cfg.Schedule.RunBudget == 0 {
		cfg.Schedule.RunBudget = 60 * time.Second
	}
	if cfg.Schedule.MaxWorkers == 0 {
		cfg.Schedule.MaxWorkers = 5
	}

	// set defaults for proxy
	if cfg.Proxy.AttemptTimeout == 0 {
		cfg.Proxy.AttemptTimeout = 15 * time.Second
	}
	if cfg.Proxy.MaxBodySize == 0 {
		cfg.Proxy.MaxBodySize = 5 * 1024 * 1024
	}
	for i := range cfg.Proxy.Endpoints {
		if cfg.Proxy.Endpoints[i].Kind == "" {
			cfg.Proxy.Endpoints[i].Kind = "passthrough"
		}
	}

	// set defaults for normalization
	if cfg.Normalize.MinTitleLength == 0 {
		cfg.Normalize.MinTitleLength = 5
	}
	if cfg.Normalize.MaxTitleLength == 0 {
		cfg.Normalize.MaxTitleLength = 200
	}

	// set defaults for sources
	for i := range cfg.Sources {
		if cfg.Sources[i].Strategy == "" {
			cfg.Sources[i].Strategy = "board-list"
		}
		if cfg.Sources[i].MaxPosts == 0 {
			cfg.Sources[i].MaxPosts = 5
		}
		if cfg.Sources[i].MinQuality == 0 {
			cfg.Sources[i].MinQuality = 3
		}
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	if len(cfg.Proxy.Endpoints) == 0 {
		return fmt.Errorf("proxy.endpoints must list at least one relay")
	}
	for _, ep := range cfg.Proxy.Endpoints {
		if ep.Kind != "wrap-json" && ep.Kind != "passthrough" {
			return fmt.Errorf("proxy endpoint %q: unknown kind %q", ep.URL, ep.Kind)
		}
	}

	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}

	seen := make(map[string]bool)
	for _, src := range cfg.Sources {
		if src.ID == "" {
			return fmt.Errorf("source id is required")
		}
		if seen[src.ID] {
			return fmt.Errorf("duplicate source id %q", src.ID)
		}
		seen[src.ID] = true

		if len(src.ListURLs) == 0 {
			return fmt.Errorf("source %q: at least one list URL is required", src.ID)
		}
		if len(src.Feeds) == 0 {
			return fmt.Errorf("source %q: at least one feed key is required", src.ID)
		}
		if _, err := url.Parse(src.BaseURL); err != nil || !strings.HasPrefix(src.BaseURL, "http") {
			return fmt.Errorf("source %q: invalid base URL %q", src.ID, src.BaseURL)
		}
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetBaseURL returns the public base URL
func (c *Config) GetBaseURL() string {
	return c.Server.BaseURL
}

// DomainSources converts configured sources to domain sources,
// preserving declaration order (it defines tie-breaking on merge)
func (c *Config) DomainSources() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, domain.Source{
			ID:               s.ID,
			Name:             s.Name,
			BaseURL:          strings.TrimRight(s.BaseURL, "/"),
			ListURLs:         s.ListURLs,
			Strategy:         s.Strategy,
			FeedKeys:         s.Feeds,
			ListSelectors:    s.ListSelectors,
			TitleSelectors:   s.TitleSelectors,
			ViewSelectors:    s.ViewSelectors,
			TimeSelectors:    s.TimeSelectors,
			ContentSelectors: s.ContentSelectors,
			NoiseElements:    s.NoiseElements,
			NoisePatterns:    s.NoisePatterns,
			MaxPosts:         s.MaxPosts,
			MinQuality:       s.MinQuality,
			AllowPlaceholder: s.AllowPlaceholder,
			FabricateCounts:  s.FabricateCounts,
		})
	}
	return out
}

// FeedKeys returns all feed keys declared across sources, in first-seen order
func (c *Config) FeedKeys() []string {
	var keys []string
	seen := make(map[string]bool)
	for _, s := range c.Sources {
		for _, k := range s.Feeds {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}
