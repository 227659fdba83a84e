package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/onlhub/boardscope/pkg/domain"
)

// minPlausibleTitle is the shortest title text a list row can contribute;
// anything below it is markup noise, not a post
const minPlausibleTitle = 3

// SelectorStrategy extracts posts from HTML board list pages. Each source
// carries an ordered list of candidate row selectors because board markup
// changes silently over time; the first selector yielding at least one
// plausible row wins. Extraction order follows document order, so repeated
// runs over the same input produce identical fragments.
type SelectorStrategy struct{}

// Extract parses the list page and returns up to src.MaxPosts fragments
func (s *SelectorStrategy) Extract(content string, src domain.Source) ([]domain.RawFragment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse document for %s: %w", src.ID, err)
	}

	for _, selector := range src.ListSelectors {
		frags := s.trySelector(doc, selector, src)
		if len(frags) > 0 {
			return frags, nil
		}
	}

	// no selector matched anything plausible; degraded, not a hard failure
	return nil, nil
}

// trySelector collects fragments from rows matching one candidate selector
func (s *SelectorStrategy) trySelector(doc *goquery.Document, selector string, src domain.Source) []domain.RawFragment {
	max := src.MaxPosts
	if max <= 0 {
		max = 5
	}

	var frags []domain.RawFragment
	doc.Find(selector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		frag, ok := s.parseRow(row, src)
		if ok {
			frags = append(frags, frag)
		}
		return len(frags) < max
	})
	return frags
}

// parseRow extracts title, link and optional stat fields from one list row
func (s *SelectorStrategy) parseRow(row *goquery.Selection, src domain.Source) (domain.RawFragment, bool) {
	title, href := s.findTitle(row, src)
	title = collapseSpace(title)
	if utf8.RuneCountInString(title) < minPlausibleTitle {
		return domain.RawFragment{}, false
	}
	for _, noise := range src.NoisePatterns {
		if strings.Contains(title, noise) {
			return domain.RawFragment{}, false
		}
	}

	frag := domain.RawFragment{
		Title:     title,
		URL:       absolutize(href, src.BaseURL),
		ViewsText: firstText(row, src.ViewSelectors),
		TimeText:  firstText(row, src.TimeSelectors),
	}
	return frag, true
}

// findTitle locates the title anchor within a row, trying the source's
// title selectors first and falling back to the row's first link
func (s *SelectorStrategy) findTitle(row *goquery.Selection, src domain.Source) (title, href string) {
	for _, sel := range src.TitleSelectors {
		el := row.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(el.Text())
		if text == "" {
			continue
		}
		link, _ := el.Attr("href")
		if link == "" {
			link, _ = el.Closest("a").Attr("href")
		}
		return text, link
	}

	anchor := row.Find("a").First()
	link, _ := anchor.Attr("href")
	return strings.TrimSpace(anchor.Text()), link
}

// firstText returns the trimmed text of the first selector that matches
func firstText(row *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(row.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// absolutize resolves a possibly-relative href against the source base URL
func absolutize(href, baseURL string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return baseURL + href
	default:
		return baseURL + "/" + href
	}
}

// collapseSpace trims and squeezes internal whitespace runs to single spaces
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
