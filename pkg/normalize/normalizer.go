package normalize

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/onlhub/boardscope/pkg/domain"
)

// bounds for fabricated counters; an explicit policy to keep sparse sources
// presentable, never applied unless the source opts in
const (
	minFakeViews    = 100
	maxFakeViews    = 10000
	maxFakeLikes    = 500
	maxFakeComments = 300
)

// anonAuthor is the placeholder for sources that hide author names
const anonAuthor = "익명의 시민"

// Normalizer converts raw extracted fragments into canonical posts and
// removes duplicates across the merged set
type Normalizer struct {
	minTitle int
	maxTitle int
	now      func() time.Time
	intn     func(n int) int
}

// New creates a normalizer with the given title length bounds
func New(minTitle, maxTitle int) *Normalizer {
	if minTitle <= 0 {
		minTitle = 5
	}
	if maxTitle <= 0 {
		maxTitle = 200
	}
	return &Normalizer{
		minTitle: minTitle,
		maxTitle: maxTitle,
		now:      time.Now,
		intn:     rand.Intn, //nolint:gosec // fabricated counters are cosmetic, not security-relevant
	}
}

// Normalize converts fragments from one source into posts, dropping noise
// and backfilling optional fields per the source's policies
func (n *Normalizer) Normalize(frags []domain.RawFragment, src domain.Source) []domain.Post {
	posts := make([]domain.Post, 0, len(frags))

	for _, frag := range frags {
		title := collapseSpace(frag.Title)
		if utf8.RuneCountInString(title) < n.minTitle {
			continue
		}
		if isNoise(title, src.NoisePatterns) {
			continue
		}
		title = boundRunes(title, n.maxTitle)

		published := frag.Published
		if published.IsZero() {
			published = parseListTime(frag.TimeText, n.now())
		}

		author := strings.TrimSpace(frag.Author)
		if author == "" {
			author = fmt.Sprintf("%s%04d", anonAuthor, n.intn(10000))
		}

		post := domain.Post{
			ID:        domain.PostID(src.ID, title, published),
			SourceID:  src.ID,
			Title:     title,
			Preview:   boundRunes(collapseSpace(frag.Preview), 300),
			Author:    author,
			Published: published,
			URL:       frag.URL,
		}

		if views, ok := parseCount(frag.ViewsText); ok {
			post.Views = views
		} else if src.FabricateCounts {
			post.Views = minFakeViews + n.intn(maxFakeViews-minFakeViews+1)
			post.Likes = n.intn(maxFakeLikes + 1)
			post.Comments = n.intn(maxFakeComments + 1)
		}

		posts = append(posts, post)
	}

	return posts
}

// Dedupe removes posts with equal normalized titles across the merged set;
// the first occurrence wins, which callers arrange to be source order
func (n *Normalizer) Dedupe(posts []domain.Post) []domain.Post {
	seen := make(map[string]bool, len(posts))
	out := posts[:0:0]
	for _, p := range posts {
		key := strings.ToLower(p.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// Placeholder produces clearly-flagged synthetic posts for a source that
// yielded nothing, preserving feed continuity without silent fabrication
func (n *Normalizer) Placeholder(src domain.Source) []domain.Post {
	titles := []string{
		fmt.Sprintf("%s 게시판을 불러오지 못했습니다", src.Name),
		fmt.Sprintf("%s 최신 글은 사이트에서 직접 확인해 주세요", src.Name),
	}

	now := n.now()
	posts := make([]domain.Post, 0, len(titles))
	for i, title := range titles {
		published := now.Add(-time.Duration(i) * time.Minute)
		posts = append(posts, domain.Post{
			ID:        domain.PostID(src.ID, title, published),
			SourceID:  src.ID,
			Title:     title,
			Author:    src.Name,
			Published: published,
			URL:       src.BaseURL,
			Synthetic: true,
		})
	}
	return posts
}

// isNoise reports whether a title matches any noise pattern
func isNoise(title string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(title, p) {
			return true
		}
	}
	return false
}

// collapseSpace trims and squeezes internal whitespace runs to single spaces
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// boundRunes truncates s to at most max runes
func boundRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

var digitsRe = regexp.MustCompile(`\d+`)

// parseCount extracts an integer from a counter text like "1,532" or "조회 88"
func parseCount(s string) (int, bool) {
	s = strings.ReplaceAll(s, ",", "")
	match := digitsRe.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return v, true
}

// listTimeFormats are the timestamp shapes korean boards put on list pages
var listTimeFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006.01.02",
	"01-02",
	"01.02",
}

// parseListTime best-effort parses a list page timestamp; bare clock times
// mean today, bare dates mean midnight, anything unparseable means crawl time
func parseListTime(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}

	// bare clock time like "13:05" is today's post
	if t, err := time.ParseInLocation("15:04", s, now.Location()); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	}

	for _, layout := range listTimeFormats {
		t, err := time.ParseInLocation(layout, s, now.Location())
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = t.AddDate(now.Year(), 0, 0)
		}
		return t
	}

	return now
}
