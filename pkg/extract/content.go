package extract

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-pkgz/lgr"
	"github.com/markusmobius/go-trafilatura"
	"github.com/microcosm-cc/bluemonday"

	"github.com/onlhub/boardscope/pkg/domain"
)

// minBodyLength is the shortest text a container must hold to be accepted
// as the post body; shorter matches are navigation or teaser fragments
const minBodyLength = 100

// Fetcher retrieves raw page content, normally through the relay chain
type Fetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// ContentExtractor fetches and extracts the full body of a single post on
// demand. Results are cached per URL so reopening a post within a session
// does not hit the network again.
type ContentExtractor struct {
	fetcher   Fetcher
	sanitizer *bluemonday.Policy
	ttl       time.Duration
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]contentEntry
}

type contentEntry struct {
	content   *domain.PostContent
	expiresAt time.Time
}

// NewContentExtractor creates a post body extractor with the given result TTL
func NewContentExtractor(fetcher Fetcher, ttl time.Duration) *ContentExtractor {
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	return &ContentExtractor{
		fetcher:   fetcher,
		sanitizer: bluemonday.StrictPolicy(),
		ttl:       ttl,
		now:       time.Now,
		cache:     make(map[string]contentEntry),
	}
}

// FetchBody retrieves and extracts the body of the post at postURL using the
// source's content selectors, falling back to generic article extraction
// when no selector matches
func (e *ContentExtractor) FetchBody(ctx context.Context, src domain.Source, postURL string) (*domain.PostContent, error) {
	e.mu.Lock()
	if entry, ok := e.cache[postURL]; ok && e.now().Before(entry.expiresAt) {
		e.mu.Unlock()
		return entry.content, nil
	}
	e.mu.Unlock()

	raw, err := e.fetcher.Fetch(ctx, postURL)
	if err != nil {
		return nil, fmt.Errorf("fetch post %s: %w", postURL, err)
	}

	text, ok := e.extractBySelectors(raw, src)
	if !ok {
		lgr.Printf("[DEBUG] no content selector matched for %s, using generic extraction", postURL)
		text, err = e.extractGeneric(raw)
		if err != nil {
			return nil, fmt.Errorf("extract post %s: %w", postURL, err)
		}
	}

	content := &domain.PostContent{
		Content:  text,
		Segments: segmentContent(text),
	}

	e.mu.Lock()
	e.cache[postURL] = contentEntry{content: content, expiresAt: e.now().Add(e.ttl)}
	e.mu.Unlock()

	return content, nil
}

// extractBySelectors finds the post body container with the source's ordered
// content selectors, prunes noise and returns text with media markers appended
func (e *ContentExtractor) extractBySelectors(raw string, src domain.Source) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", false
	}

	for _, selector := range src.ContentSelectors {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(node.Text())) < minBodyLength {
			continue
		}
		return e.cleanBody(node, src), true
	}
	return "", false
}

// cleanBody removes noise elements and texts from the body container and
// reports embedded images as bracket-tagged media blocks
func (e *ContentExtractor) cleanBody(node *goquery.Selection, src domain.Source) string {
	if len(src.NoiseElements) > 0 {
		node.Find(strings.Join(src.NoiseElements, ", ")).Remove()
	}

	// short elements containing noise text are chrome (login prompts, toolbars);
	// long ones may legitimately mention the same words and are kept
	if len(src.NoisePatterns) > 0 {
		node.Find("*").Each(func(_ int, el *goquery.Selection) {
			text := strings.TrimSpace(el.Text())
			if text == "" || utf8.RuneCountInString(text) >= minBodyLength {
				return
			}
			for _, noise := range src.NoisePatterns {
				if strings.Contains(text, noise) {
					el.Remove()
					return
				}
			}
		})
	}

	var media strings.Builder
	node.Find("img").Each(func(i int, img *goquery.Selection) {
		imgSrc, ok := img.Attr("src")
		if !ok || imgSrc == "" {
			return
		}
		alt, _ := img.Attr("alt")
		fmt.Fprintf(&media, "\n\n[이미지 %d]\n%s", i+1, absolutize(imgSrc, src.BaseURL))
		if alt != "" {
			fmt.Fprintf(&media, "\n%s", alt)
		}
	})

	inner, err := node.Html()
	if err != nil {
		inner = node.Text()
	}
	text := html.UnescapeString(e.sanitizer.Sanitize(inner))
	return strings.TrimSpace(text) + media.String()
}

// extractGeneric runs trafilatura over the whole page when the source's
// selectors found nothing usable
func (e *ContentExtractor) extractGeneric(raw string) (string, error) {
	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		Deduplicate:     true,
	}

	result, err := trafilatura.Extract(strings.NewReader(raw), opts)
	if err != nil {
		return "", fmt.Errorf("generic extraction: %w", err)
	}
	if result == nil || strings.TrimSpace(result.ContentText) == "" {
		return "", fmt.Errorf("no text content found")
	}
	return strings.TrimSpace(result.ContentText), nil
}

var (
	imageLineRe = regexp.MustCompile(`(?i)^https?://\S+\.(jpe?g|png|gif|webp|bmp)(\?\S*)?$`)
	videoLineRe = regexp.MustCompile(`(?i)^https?://\S+\.(mp4|webm|mov|avi)(\?\S*)?$`)
	mediaMarkRe = regexp.MustCompile(`^\[(이미지|동영상)\s*\d*\]$`)
)

// segmentContent splits a post body into structured segments; lines
// recognized as media URLs become image/video segments instead of prose.
// The line right after a bracket marker is the media URL even without a
// recognizable extension, since board CDNs serve images from script paths.
func segmentContent(text string) []domain.Segment {
	var segments []domain.Segment
	var prose []string
	var marked domain.SegmentKind

	flush := func() {
		if len(prose) == 0 {
			return
		}
		segments = append(segments, domain.Segment{Kind: domain.SegmentText, Text: strings.Join(prose, "\n")})
		prose = prose[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		if m := mediaMarkRe.FindStringSubmatch(line); m != nil {
			flush()
			marked = domain.SegmentImage
			if m[1] == "동영상" {
				marked = domain.SegmentVideo
			}
			continue
		}

		switch {
		case line == "":
			// blank lines delimit segments
			flush()
		case marked != "" && strings.HasPrefix(line, "http"):
			flush()
			segments = append(segments, domain.Segment{Kind: marked, URL: line})
		case imageLineRe.MatchString(line):
			flush()
			segments = append(segments, domain.Segment{Kind: domain.SegmentImage, URL: line})
		case videoLineRe.MatchString(line):
			flush()
			segments = append(segments, domain.Segment{Kind: domain.SegmentVideo, URL: line})
		default:
			prose = append(prose, line)
		}
		marked = ""
	}
	flush()

	return segments
}
