package extract

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlhub/boardscope/pkg/domain"
)

// countingFetcher returns canned content and counts calls
type countingFetcher struct {
	content string
	err     error
	calls   int32
}

func (f *countingFetcher) Fetch(_ context.Context, _ string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.content, f.err
}

const postFixture = `<!DOCTYPE html>
<html><body>
<nav>메뉴 네비게이션</nav>
<div class="post_view">
	<p>` + longParagraph + `</p>
	<p>본문 두번째 문단입니다. 내용이 이어집니다.</p>
	<div class="login">로그인 상태 유지</div>
	<img src="/files/cat.jpg" alt="고양이 사진">
	<div class="comment">댓글 영역입니다</div>
</div>
</body></html>`

const longParagraph = "게시글 본문의 첫 문단입니다. 충분히 긴 본문이어야 선택자가 본문 컨테이너로 인정하므로 내용을 길게 채워 넣습니다. 오늘 있었던 일을 공유하려고 글을 씁니다. 날씨가 좋아서 산책을 다녀왔습니다."

func contentSource() domain.Source {
	return domain.Source{
		ID:               "clien",
		BaseURL:          "https://www.clien.net",
		ContentSelectors: []string{".post_view", ".view_content", "article"},
		NoiseElements:    []string{".comment", ".reply", "nav"},
		NoisePatterns:    []string{"로그인", "메뉴"},
	}
}

func TestContentExtractor_FetchBody(t *testing.T) {
	t.Run("extracts body with media segments", func(t *testing.T) {
		fetcher := &countingFetcher{content: postFixture}
		extractor := NewContentExtractor(fetcher, time.Minute)

		content, err := extractor.FetchBody(context.Background(), contentSource(), "https://www.clien.net/p/1")
		require.NoError(t, err)

		assert.Contains(t, content.Content, "첫 문단입니다")
		assert.Contains(t, content.Content, "두번째 문단입니다")
		assert.NotContains(t, content.Content, "로그인 상태 유지")
		assert.NotContains(t, content.Content, "댓글 영역")
		assert.Contains(t, content.Content, "[이미지 1]")
		assert.Contains(t, content.Content, "https://www.clien.net/files/cat.jpg")

		// image line must survive as a structured segment, not prose
		var imageSegments []domain.Segment
		for _, seg := range content.Segments {
			if seg.Kind == domain.SegmentImage {
				imageSegments = append(imageSegments, seg)
			}
		}
		require.Len(t, imageSegments, 1)
		assert.Equal(t, "https://www.clien.net/files/cat.jpg", imageSegments[0].URL)
	})

	t.Run("caches per url", func(t *testing.T) {
		fetcher := &countingFetcher{content: postFixture}
		extractor := NewContentExtractor(fetcher, time.Minute)

		_, err := extractor.FetchBody(context.Background(), contentSource(), "https://www.clien.net/p/1")
		require.NoError(t, err)
		_, err = extractor.FetchBody(context.Background(), contentSource(), "https://www.clien.net/p/1")
		require.NoError(t, err)

		assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	})

	t.Run("cache expires", func(t *testing.T) {
		fetcher := &countingFetcher{content: postFixture}
		extractor := NewContentExtractor(fetcher, time.Minute)

		current := time.Now()
		extractor.now = func() time.Time { return current }

		_, err := extractor.FetchBody(context.Background(), contentSource(), "https://www.clien.net/p/1")
		require.NoError(t, err)

		current = current.Add(2 * time.Minute)
		_, err = extractor.FetchBody(context.Background(), contentSource(), "https://www.clien.net/p/1")
		require.NoError(t, err)

		assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls))
	})

	t.Run("fetch error surfaces", func(t *testing.T) {
		fetcher := &countingFetcher{err: assert.AnError}
		extractor := NewContentExtractor(fetcher, time.Minute)

		_, err := extractor.FetchBody(context.Background(), contentSource(), "https://www.clien.net/p/1")
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("generic fallback when selectors miss", func(t *testing.T) {
		page := `<!DOCTYPE html><html><head><title>글</title></head><body><article><h1>제목</h1><p>` +
			strings.Repeat("본문 내용이 이어집니다. ", 30) + `</p></article></body></html>`
		fetcher := &countingFetcher{content: page}
		extractor := NewContentExtractor(fetcher, time.Minute)

		src := contentSource()
		src.ContentSelectors = []string{".does-not-exist"}

		content, err := extractor.FetchBody(context.Background(), src, "https://www.clien.net/p/2")
		require.NoError(t, err)
		assert.Contains(t, content.Content, "본문 내용이 이어집니다")
	})
}

func TestSegmentContent(t *testing.T) {
	t.Run("mixed prose and media", func(t *testing.T) {
		text := "첫 문단입니다.\n이어지는 줄입니다.\n\n[이미지 1]\nhttps://cdn.example.com/a.png\n\n마지막 문단.\nhttps://cdn.example.com/clip.mp4"
		segments := segmentContent(text)

		require.Len(t, segments, 4)
		assert.Equal(t, domain.SegmentText, segments[0].Kind)
		assert.Equal(t, "첫 문단입니다.\n이어지는 줄입니다.", segments[0].Text)
		assert.Equal(t, domain.SegmentImage, segments[1].Kind)
		assert.Equal(t, "https://cdn.example.com/a.png", segments[1].URL)
		assert.Equal(t, domain.SegmentText, segments[2].Kind)
		assert.Equal(t, domain.SegmentVideo, segments[3].Kind)
	})

	t.Run("marker claims the next line without a media extension", func(t *testing.T) {
		text := "본문 문단입니다.\n\n[이미지 1]\nhttps://cdn.example.com/image.php?id=42\n\n[동영상 1]\nhttps://cdn.example.com/stream?v=7"
		segments := segmentContent(text)

		require.Len(t, segments, 3)
		assert.Equal(t, domain.SegmentText, segments[0].Kind)
		assert.Equal(t, domain.SegmentImage, segments[1].Kind)
		assert.Equal(t, "https://cdn.example.com/image.php?id=42", segments[1].URL)
		assert.Equal(t, domain.SegmentVideo, segments[2].Kind)
		assert.Equal(t, "https://cdn.example.com/stream?v=7", segments[2].URL)
	})

	t.Run("plain prose only", func(t *testing.T) {
		segments := segmentContent("한 줄짜리 본문")
		require.Len(t, segments, 1)
		assert.Equal(t, domain.SegmentText, segments[0].Kind)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, segmentContent(""))
	})
}
