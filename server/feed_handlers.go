package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/onlhub/boardscope/pkg/domain"
	"github.com/onlhub/boardscope/pkg/scheduler"
)

// backgroundRefreshBudget bounds refreshes detached from the client request
const backgroundRefreshBudget = 2 * time.Minute

// feedResponse is an aggregation snapshot plus its freshness flag
type feedResponse struct {
	domain.AggregationResult
	Stale bool `json:"stale"`
}

// feedHandler serves the cached snapshot for a feed. An expired snapshot is
// still served, flagged stale, while a refresh runs in the background; a feed
// with no snapshot at all is aggregated synchronously.
func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	feedKey := r.PathValue("feedKey")

	res, ok, fresh := s.cache.GetStale(feedKey)
	switch {
	case ok && fresh:
	case ok && !fresh:
		s.refreshInBackground(feedKey)
	default:
		var err error
		res, err = s.scheduler.RunOnce(r.Context(), feedKey)
		if err != nil {
			renderRunError(w, r, err)
			return
		}
		fresh = true
	}

	res.Posts = filterSynthetic(res.Posts, r)

	RenderJSON(w, r, http.StatusOK, feedResponse{AggregationResult: res, Stale: !fresh})
}

// refreshHandler triggers an on-demand aggregation run. When a run for the
// feed is already in flight the prior snapshot is returned instead of piling
// another caller onto it.
func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	feedKey := r.PathValue("feedKey")

	if s.scheduler.InFlight(feedKey) {
		if res, ok, fresh := s.cache.GetStale(feedKey); ok {
			res.Posts = filterSynthetic(res.Posts, r)
			RenderJSON(w, r, http.StatusAccepted, feedResponse{AggregationResult: res, Stale: !fresh})
			return
		}
	}

	res, err := s.scheduler.RunOnce(r.Context(), feedKey)
	if err != nil {
		renderRunError(w, r, err)
		return
	}

	res.Posts = filterSynthetic(res.Posts, r)
	RenderJSON(w, r, http.StatusOK, feedResponse{AggregationResult: res, Stale: false})
}

// postContentHandler fetches the full body of a single post on demand
func (s *Server) postContentHandler(w http.ResponseWriter, r *http.Request) {
	postURL := r.URL.Query().Get("url")
	if postURL == "" {
		RenderError(w, r, errors.New("url parameter required"), http.StatusBadRequest)
		return
	}

	src, ok := s.resolveSource(r.URL.Query().Get("source"), postURL)
	if !ok {
		RenderError(w, r, errors.New("no source matches the requested url"), http.StatusNotFound)
		return
	}

	content, err := s.content.FetchBody(r.Context(), src, postURL)
	if err != nil {
		log.Printf("[WARN] post content fetch failed for %s: %v", postURL, err)
		RenderError(w, r, errors.New("failed to fetch post content"), http.StatusBadGateway)
		return
	}

	RenderJSON(w, r, http.StatusOK, content)
}

// refreshInBackground kicks one detached refresh for the feed; concurrent
// calls collapse in the scheduler, the InFlight check just avoids spawning
// goroutines for every reader of a stale snapshot
func (s *Server) refreshInBackground(feedKey string) {
	if s.scheduler.InFlight(feedKey) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundRefreshBudget)
		defer cancel()
		if _, err := s.scheduler.RunOnce(ctx, feedKey); err != nil {
			log.Printf("[WARN] background refresh of %s failed: %v", feedKey, err)
		}
	}()
}

// resolveSource finds the configured source by id, falling back to matching
// the post URL's host against source base URLs
func (s *Server) resolveSource(sourceID, postURL string) (domain.Source, bool) {
	sources := s.config.DomainSources()

	if sourceID != "" {
		for _, src := range sources {
			if src.ID == sourceID {
				return src, true
			}
		}
		return domain.Source{}, false
	}

	parsed, err := url.Parse(postURL)
	if err != nil {
		return domain.Source{}, false
	}
	for _, src := range sources {
		base, err := url.Parse(src.BaseURL)
		if err != nil {
			continue
		}
		if base.Host != "" && base.Host == parsed.Host {
			return src, true
		}
	}
	return domain.Source{}, false
}

// filterSynthetic drops placeholder posts unless the request opts into them
func filterSynthetic(posts []domain.Post, r *http.Request) []domain.Post {
	if r.URL.Query().Get("synthetic") == "1" {
		return posts
	}
	return withoutSynthetic(posts)
}

// withoutSynthetic drops placeholder posts from the response
func withoutSynthetic(posts []domain.Post) []domain.Post {
	filtered := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if !p.Synthetic {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func renderRunError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduler.ErrUnknownFeed):
		RenderError(w, r, err, http.StatusNotFound)
	case errors.Is(err, scheduler.ErrAllSourcesFailed):
		RenderError(w, r, err, http.StatusServiceUnavailable)
	default:
		RenderError(w, r, err, http.StatusInternalServerError)
	}
}
