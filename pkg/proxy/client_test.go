package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	t.Run("passthrough endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
			w.Write([]byte("<html><body>hello</body></html>"))
		}))
		defer server.Close()

		client := New([]Endpoint{{URL: server.URL + "/?target=", Kind: KindPassthrough}}, 5*time.Second, 0)
		content, err := client.Fetch(context.Background(), "https://example.com/board")
		require.NoError(t, err)
		assert.Contains(t, content, "hello")
	})

	t.Run("wrap-json endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// target must arrive query-escaped
			assert.Contains(t, r.URL.RawQuery, "https%3A%2F%2Fexample.com")
			json.NewEncoder(w).Encode(map[string]string{"contents": "<html>wrapped</html>"})
		}))
		defer server.Close()

		client := New([]Endpoint{{URL: server.URL + "/get?url=", Kind: KindWrapJSON}}, 5*time.Second, 0)
		content, err := client.Fetch(context.Background(), "https://example.com/board")
		require.NoError(t, err)
		assert.Equal(t, "<html>wrapped</html>", content)
	})

	t.Run("falls back to next endpoint on failure", func(t *testing.T) {
		var firstCalls, secondCalls int32

		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&firstCalls, 1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer failing.Close()

		working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&secondCalls, 1)
			w.Write([]byte("<html>from second relay</html>"))
		}))
		defer working.Close()

		client := New([]Endpoint{
			{URL: failing.URL + "/?target=", Kind: KindPassthrough},
			{URL: working.URL + "/?target=", Kind: KindPassthrough},
		}, 5*time.Second, 0)

		content, err := client.Fetch(context.Background(), "https://example.com/board")
		require.NoError(t, err)
		assert.Contains(t, content, "from second relay")
		assert.Equal(t, int32(1), atomic.LoadInt32(&firstCalls))
		assert.Equal(t, int32(1), atomic.LoadInt32(&secondCalls))
	})

	t.Run("empty payload advances the chain", func(t *testing.T) {
		empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("   \n"))
		}))
		defer empty.Close()

		working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("real content"))
		}))
		defer working.Close()

		client := New([]Endpoint{
			{URL: empty.URL + "/?target=", Kind: KindPassthrough},
			{URL: working.URL + "/?target=", Kind: KindPassthrough},
		}, 5*time.Second, 0)

		content, err := client.Fetch(context.Background(), "https://example.com/board")
		require.NoError(t, err)
		assert.Equal(t, "real content", content)
	})

	t.Run("exhaustion error when all endpoints fail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := New([]Endpoint{
			{URL: server.URL + "/a?target=", Kind: KindPassthrough},
			{URL: server.URL + "/b?target=", Kind: KindPassthrough},
		}, 5*time.Second, 0)

		_, err := client.Fetch(context.Background(), "https://example.com/board")
		require.Error(t, err)

		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 2, exhausted.Attempts)
		assert.Equal(t, "https://example.com/board", exhausted.Target)
	})

	t.Run("per-attempt timeout", func(t *testing.T) {
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte("too late"))
		}))
		defer slow.Close()

		client := New([]Endpoint{{URL: slow.URL + "/?target=", Kind: KindPassthrough}}, 20*time.Millisecond, 0)
		_, err := client.Fetch(context.Background(), "https://example.com/board")
		require.Error(t, err)

		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
	})

	t.Run("cancelled context stops the chain early", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := New([]Endpoint{
			{URL: server.URL + "/a?target=", Kind: KindPassthrough},
			{URL: server.URL + "/b?target=", Kind: KindPassthrough},
			{URL: server.URL + "/c?target=", Kind: KindPassthrough},
		}, 5*time.Second, 0)

		_, err := client.Fetch(ctx, "https://example.com/board")
		require.Error(t, err)
		assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(1))
	})

	t.Run("malformed wrap-json envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json at all"))
		}))
		defer server.Close()

		client := New([]Endpoint{{URL: server.URL + "/get?url=", Kind: KindWrapJSON}}, 5*time.Second, 0)
		_, err := client.Fetch(context.Background(), "https://example.com/board")
		require.Error(t, err)
		assert.True(t, errors.As(err, new(*ExhaustedError)))
	})

	t.Run("invalid target url", func(t *testing.T) {
		client := New([]Endpoint{{URL: "https://relay.example.com/?u=", Kind: KindPassthrough}}, time.Second, 0)
		_, err := client.Fetch(context.Background(), "://bad")
		require.Error(t, err)
	})
}
