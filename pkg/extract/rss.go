package extract

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/onlhub/boardscope/pkg/domain"
)

// RSSStrategy extracts posts from RSS/Atom documents. News sources expose
// category feeds which are fetched through the same relay chain as board
// pages; the payload just happens to be XML instead of HTML.
type RSSStrategy struct {
	parser *gofeed.Parser
}

// NewRSSStrategy creates an RSS extraction strategy
func NewRSSStrategy() *RSSStrategy {
	return &RSSStrategy{parser: gofeed.NewParser()}
}

// Extract parses the feed document and returns up to src.MaxPosts fragments
func (s *RSSStrategy) Extract(content string, src domain.Source) ([]domain.RawFragment, error) {
	feed, err := s.parser.ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("parse feed for %s: %w", src.ID, err)
	}

	max := src.MaxPosts
	if max <= 0 {
		max = 5
	}

	frags := make([]domain.RawFragment, 0, max)
	for _, item := range feed.Items {
		if len(frags) >= max {
			break
		}

		frag := domain.RawFragment{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Preview: strings.TrimSpace(item.Description),
		}
		if item.Author != nil {
			frag.Author = item.Author.Name
		}
		if item.PublishedParsed != nil {
			frag.Published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			frag.Published = *item.UpdatedParsed
		}

		frags = append(frags, frag)
	}

	return frags, nil
}
