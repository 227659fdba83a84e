package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlhub/boardscope/pkg/domain"
)

func boardSource() domain.Source {
	return domain.Source{
		ID:            "site-a",
		Name:          "사이트A",
		BaseURL:       "https://a.example.com",
		NoisePatterns: []string{"공지"},
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	t.Run("drops noise and short titles", func(t *testing.T) {
		n := New(5, 200)
		frags := []domain.RawFragment{
			{Title: "공지: 이벤트"},
			{Title: "실제 게시글 제목입니다", URL: "https://a.example.com/p/2"},
			{Title: ""},
		}

		posts := n.Normalize(frags, boardSource())
		require.Len(t, posts, 1)
		assert.Equal(t, "실제 게시글 제목입니다", posts[0].Title)
	})

	t.Run("bounds title length", func(t *testing.T) {
		n := New(5, 10)
		long := "아주아주아주아주아주 긴 제목입니다 정말로 깁니다"
		posts := n.Normalize([]domain.RawFragment{{Title: long}}, boardSource())
		require.Len(t, posts, 1)
		assert.Equal(t, 10, len([]rune(posts[0].Title)))
	})

	t.Run("anonymized author placeholder", func(t *testing.T) {
		n := New(5, 200)
		posts := n.Normalize([]domain.RawFragment{{Title: "작성자 없는 게시글"}}, boardSource())
		require.Len(t, posts, 1)
		assert.Regexp(t, `^익명의 시민\d{4}$`, posts[0].Author)
	})

	t.Run("keeps real author", func(t *testing.T) {
		n := New(5, 200)
		posts := n.Normalize([]domain.RawFragment{{Title: "작성자 있는 게시글", Author: "홍길동"}}, boardSource())
		require.Len(t, posts, 1)
		assert.Equal(t, "홍길동", posts[0].Author)
	})

	t.Run("parses real view counts", func(t *testing.T) {
		n := New(5, 200)
		posts := n.Normalize([]domain.RawFragment{{Title: "조회수 있는 게시글", ViewsText: "1,532"}}, boardSource())
		require.Len(t, posts, 1)
		assert.Equal(t, 1532, posts[0].Views)
		assert.Zero(t, posts[0].Likes)
	})

	t.Run("fabricated counts stay within bounds", func(t *testing.T) {
		n := New(5, 200)
		src := boardSource()
		src.FabricateCounts = true

		for range 50 {
			posts := n.Normalize([]domain.RawFragment{{Title: "카운터 없는 게시글"}}, src)
			require.Len(t, posts, 1)
			assert.GreaterOrEqual(t, posts[0].Views, 100)
			assert.LessOrEqual(t, posts[0].Views, 10000)
			assert.LessOrEqual(t, posts[0].Likes, 500)
			assert.LessOrEqual(t, posts[0].Comments, 300)
		}
	})

	t.Run("no fabrication without opt-in", func(t *testing.T) {
		n := New(5, 200)
		posts := n.Normalize([]domain.RawFragment{{Title: "카운터 없는 게시글"}}, boardSource())
		require.Len(t, posts, 1)
		assert.Zero(t, posts[0].Views)
	})

	t.Run("published falls back to crawl time", func(t *testing.T) {
		n := New(5, 200)
		fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		n.now = func() time.Time { return fixed }

		posts := n.Normalize([]domain.RawFragment{{Title: "시간 없는 게시글"}}, boardSource())
		require.Len(t, posts, 1)
		assert.Equal(t, fixed, posts[0].Published)
	})

	t.Run("bare clock time means today", func(t *testing.T) {
		n := New(5, 200)
		fixed := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
		n.now = func() time.Time { return fixed }

		posts := n.Normalize([]domain.RawFragment{{Title: "시간 있는 게시글", TimeText: "13:05"}}, boardSource())
		require.Len(t, posts, 1)
		assert.Equal(t, time.Date(2025, 6, 1, 13, 5, 0, 0, time.UTC), posts[0].Published)
	})

	t.Run("derived id is idempotent across runs", func(t *testing.T) {
		n := New(5, 200)
		frag := domain.RawFragment{Title: "동일한 게시글", Published: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}

		first := n.Normalize([]domain.RawFragment{frag}, boardSource())
		second := n.Normalize([]domain.RawFragment{frag}, boardSource())
		require.Len(t, first, 1)
		require.Len(t, second, 1)
		assert.Equal(t, first[0].ID, second[0].ID)
	})
}

func TestNormalizer_Dedupe(t *testing.T) {
	n := New(5, 200)

	t.Run("first occurrence wins", func(t *testing.T) {
		posts := []domain.Post{
			{ID: "a_1", SourceID: "a", Title: "같은 제목의 게시글"},
			{ID: "b_1", SourceID: "b", Title: "같은 제목의 게시글"},
			{ID: "b_2", SourceID: "b", Title: "다른 제목의 게시글"},
		}

		deduped := n.Dedupe(posts)
		require.Len(t, deduped, 2)
		assert.Equal(t, "a_1", deduped[0].ID)
		assert.Equal(t, "b_2", deduped[1].ID)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, n.Dedupe(nil))
	})
}

func TestNormalizer_Placeholder(t *testing.T) {
	n := New(5, 200)
	posts := n.Placeholder(boardSource())

	require.NotEmpty(t, posts)
	for _, p := range posts {
		assert.True(t, p.Synthetic, "placeholder posts must be flagged synthetic")
		assert.Equal(t, "site-a", p.SourceID)
		assert.NotEmpty(t, p.Title)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1,532", 1532, true},
		{"88", 88, true},
		{"조회 420", 420, true},
		{"", 0, false},
		{"없음", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseCount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
