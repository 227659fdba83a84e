package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlhub/boardscope/pkg/domain"
)

const boardFixture = `<!DOCTYPE html>
<html><body>
<div class="board_list">
	<div class="list_row">
		<a href="/service/board/park/1">공지: 이벤트 안내</a>
		<span class="list_count">120</span>
		<span class="list_time">12:30</span>
	</div>
	<div class="list_row">
		<a href="/service/board/park/2">실제 게시글 제목입니다</a>
		<span class="list_count">1,532</span>
		<span class="list_time">13:05</span>
	</div>
	<div class="list_row">
		<a href="https://www.clien.net/service/board/park/3">두번째 실제 게시글</a>
		<span class="list_count">88</span>
		<span class="list_time">13:40</span>
	</div>
	<div class="list_row">
		<a href="/service/board/park/4"></a>
	</div>
</div>
</body></html>`

func testSource() domain.Source {
	return domain.Source{
		ID:            "clien",
		Name:          "클리앙",
		BaseURL:       "https://www.clien.net",
		Strategy:      "board-list",
		ListSelectors: []string{".list_item", ".list_row"},
		ViewSelectors: []string{".list_count", ".hit"},
		TimeSelectors: []string{".list_time", ".time"},
		NoisePatterns: []string{"공지"},
		MaxPosts:      5,
		MinQuality:    3,
	}
}

func TestSelectorStrategy_Extract(t *testing.T) {
	s := &SelectorStrategy{}

	t.Run("falls through to first matching selector", func(t *testing.T) {
		frags, err := s.Extract(boardFixture, testSource())
		require.NoError(t, err)
		require.Len(t, frags, 2) // noise title and empty anchor dropped

		assert.Equal(t, "실제 게시글 제목입니다", frags[0].Title)
		assert.Equal(t, "https://www.clien.net/service/board/park/2", frags[0].URL)
		assert.Equal(t, "1,532", frags[0].ViewsText)
		assert.Equal(t, "13:05", frags[0].TimeText)

		assert.Equal(t, "두번째 실제 게시글", frags[1].Title)
		assert.Equal(t, "https://www.clien.net/service/board/park/3", frags[1].URL)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		first, err := s.Extract(boardFixture, testSource())
		require.NoError(t, err)
		second, err := s.Extract(boardFixture, testSource())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("caps at max posts", func(t *testing.T) {
		src := testSource()
		src.MaxPosts = 1
		frags, err := s.Extract(boardFixture, src)
		require.NoError(t, err)
		assert.Len(t, frags, 1)
	})

	t.Run("no selector matches is degraded not failed", func(t *testing.T) {
		src := testSource()
		src.ListSelectors = []string{".does-not-exist"}
		frags, err := s.Extract(boardFixture, src)
		require.NoError(t, err)
		assert.Empty(t, frags)
	})

	t.Run("title selectors take priority over first anchor", func(t *testing.T) {
		fixture := `<div class="row">
			<a href="/ad">광고 배너</a>
			<a class="subject" href="/post/1">진짜 제목이 여기 있습니다</a>
		</div>`
		src := testSource()
		src.ListSelectors = []string{".row"}
		src.TitleSelectors = []string{".subject"}

		frags, err := s.Extract(fixture, src)
		require.NoError(t, err)
		require.Len(t, frags, 1)
		assert.Equal(t, "진짜 제목이 여기 있습니다", frags[0].Title)
		assert.Equal(t, "https://www.clien.net/post/1", frags[0].URL)
	})

	t.Run("collapses whitespace in titles", func(t *testing.T) {
		fixture := `<div class="list_row"><a href="/p/1">제목에   공백이
		많습니다</a></div>`
		frags, err := s.Extract(fixture, testSource())
		require.NoError(t, err)
		require.Len(t, frags, 1)
		assert.Equal(t, "제목에 공백이 많습니다", frags[0].Title)
	})
}

func TestRegistry(t *testing.T) {
	t.Run("default registry has built-in strategies", func(t *testing.T) {
		r := DefaultRegistry()
		for _, id := range []string{"board-list", "rss"} {
			s, err := r.Get(id)
			require.NoError(t, err)
			assert.NotNil(t, s)
		}
	})

	t.Run("unknown strategy", func(t *testing.T) {
		r := DefaultRegistry()
		_, err := r.Get("nope")
		require.ErrorIs(t, err, ErrNoStrategy)
	})

	t.Run("extract dispatches by source strategy", func(t *testing.T) {
		r := DefaultRegistry()
		frags, err := r.Extract(boardFixture, testSource())
		require.NoError(t, err)
		assert.Len(t, frags, 2)
	})

	t.Run("extract with unregistered strategy", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Extract(boardFixture, testSource())
		require.ErrorIs(t, err, ErrNoStrategy)
	})
}

func TestAbsolutize(t *testing.T) {
	base := "https://www.clien.net"
	assert.Equal(t, "https://www.clien.net/p/1", absolutize("/p/1", base))
	assert.Equal(t, "https://other.com/x", absolutize("https://other.com/x", base))
	assert.Equal(t, "https://cdn.com/i.png", absolutize("//cdn.com/i.png", base))
	assert.Equal(t, "https://www.clien.net/rel", absolutize("rel", base))
	assert.Equal(t, "", absolutize("", base))
}
