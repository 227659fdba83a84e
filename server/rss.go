package server

import (
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/onlhub/boardscope/pkg/domain"
)

// rss represents the root RSS 2.0 element
type rss struct {
	XMLName xml.Name    `xml:"rss"`
	Version string      `xml:"version,attr"`
	Atom    string      `xml:"xmlns:atom,attr"`
	Channel *rssChannel `xml:"channel"`
}

// rssChannel represents an RSS channel
type rssChannel struct {
	XMLName       xml.Name   `xml:"channel"`
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	AtomLink      *atomLink  `xml:"http://www.w3.org/2005/Atom link"`
	LastBuildDate string     `xml:"lastBuildDate"`
	Items         []*rssItem `xml:"item"`
}

// atomLink represents an Atom link element within RSS
type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// rssItem represents an item in an RSS feed
type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description,omitempty"`
	Author      string `xml:"author,omitempty"`
	PubDate     string `xml:"pubDate"`
	Category    string `xml:"category,omitempty"`
}

// rssHandler serves the feed's snapshot as RSS 2.0. Placeholder posts are
// never included in RSS output.
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	feedKey := r.PathValue("feedKey")

	res, ok, _ := s.cache.GetStale(feedKey)
	if !ok {
		var err error
		res, err = s.scheduler.RunOnce(r.Context(), feedKey)
		if err != nil {
			log.Printf("[ERROR] failed to aggregate %s for RSS: %v", feedKey, err)
			http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
			return
		}
	}

	out, err := s.generateRSSFeed(feedKey, withoutSynthetic(res.Posts))
	if err != nil {
		log.Printf("[ERROR] failed to generate RSS for %s: %v", feedKey, err)
		http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(out)); err != nil {
		log.Printf("[ERROR] failed to write RSS response: %v", err)
	}
}

// generateRSSFeed creates an RSS 2.0 document from a feed's posts
func (s *Server) generateRSSFeed(feedKey string, posts []domain.Post) (string, error) {
	baseURL := strings.TrimRight(s.config.GetBaseURL(), "/")

	items := make([]*rssItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, &rssItem{
			Title:       p.Title,
			Link:        p.URL,
			GUID:        p.ID,
			Description: p.Preview,
			Author:      p.Author,
			PubDate:     p.Published.Format(time.RFC1123Z),
			Category:    p.SourceID,
		})
	}

	feed := &rss{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: &rssChannel{
			Title:         fmt.Sprintf("Boardscope - %s", feedKey),
			Link:          baseURL + "/",
			Description:   fmt.Sprintf("Aggregated posts for feed %s", feedKey),
			AtomLink:      &atomLink{Href: fmt.Sprintf("%s/rss/%s", baseURL, feedKey), Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: time.Now().Format(time.RFC1123Z),
			Items:         items,
		},
	}

	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal RSS: %w", err)
	}

	return xml.Header + string(output), nil
}
