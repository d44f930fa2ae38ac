package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryYAML = `
sources:
  - key: carshowfinder
    adapter: mock
    base_url: https://carshowfinder.invalid
    trusted: true
  - key: trackday-hub
    adapter: mock
  - key: meetup-json
    adapter: http-json
    base_url: https://meetup.invalid
    query: "car meet"
    timeout_seconds: 5
`

func writeRegistryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	registry, err := LoadRegistry(writeRegistryFile(t, registryYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"carshowfinder", "trackday-hub", "meetup-json"}, registry.Keys())
	assert.Equal(t, []string{"carshowfinder"}, registry.TrustedKeys())

	adapter, ok := registry.Get("meetup-json")
	require.True(t, ok)
	assert.Equal(t, "meetup-json", adapter.Key())

	_, ok = registry.Get("craigslist")
	assert.False(t, ok)
}

func TestLoadRegistryErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing key", "sources:\n  - adapter: mock\n"},
		{"duplicate key", "sources:\n  - key: a\n  - key: a\n"},
		{"unknown adapter", "sources:\n  - key: a\n    adapter: carrier-pigeon\n"},
		{"http-json without base_url", "sources:\n  - key: a\n    adapter: http-json\n"},
		{"not yaml", "{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry(writeRegistryFile(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry, err := NewRegistry(nil)
	require.NoError(t, err)
	require.NoError(t, registry.Register(NewMockAdapter("a", ""), false))
	assert.Error(t, registry.Register(NewMockAdapter("a", ""), false))
}

func TestMockAdapterDeterministic(t *testing.T) {
	adapter := NewMockAdapter("carshowfinder", "https://carshowfinder.invalid")
	params := FetchParams{
		Location:   "Austin",
		RangeStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Limit:      4,
	}

	first, err := adapter.Fetch(context.Background(), params)
	require.NoError(t, err)
	second, err := adapter.Fetch(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first.Events, second.Events, "same params must return identical listings")
	assert.Len(t, first.Events, 4)
	for _, event := range first.Events {
		assert.Equal(t, "Austin", event.City)
		assert.NotEmpty(t, event.Name)
		assert.NotEmpty(t, event.SourceURL)
		assert.Contains(t, event.SourceURL, "carshowfinder.invalid")
	}
}

func TestMockAdapterHonorsCancellation(t *testing.T) {
	adapter := NewMockAdapter("carshowfinder", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.Fetch(ctx, FetchParams{})
	assert.ErrorIs(t, err, context.Canceled)
}

// countingAdapter tracks peak concurrency inside FetchAll.
type countingAdapter struct {
	key     string
	active  *int64
	peak    *int64
	mu      *sync.Mutex
	fetched []string
}

func (a *countingAdapter) Key() string { return a.key }

func (a *countingAdapter) Fetch(_ context.Context, _ FetchParams) (FetchResult, error) {
	n := atomic.AddInt64(a.active, 1)
	a.mu.Lock()
	if n > *a.peak {
		*a.peak = n
	}
	a.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	atomic.AddInt64(a.active, -1)
	return FetchResult{}, nil
}

func TestFetchAllBoundsConcurrency(t *testing.T) {
	var active, peak int64
	var mu sync.Mutex
	var adapters []Adapter
	for _, key := range []string{"a", "b", "c", "d", "e", "f"} {
		adapters = append(adapters, &countingAdapter{key: key, active: &active, peak: &peak, mu: &mu})
	}

	FetchAll(context.Background(), adapters, FetchParams{}, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int64(2))
}

type scriptedAdapter struct {
	key string
	err error
}

func (a *scriptedAdapter) Key() string { return a.key }

func (a *scriptedAdapter) Fetch(_ context.Context, _ FetchParams) (FetchResult, error) {
	if a.err != nil {
		return FetchResult{}, a.err
	}
	return FetchResult{Errors: []string{"one bad listing"}}, nil
}

func TestFetchAllPreservesAdapterOrder(t *testing.T) {
	adapters := []Adapter{
		&scriptedAdapter{key: "first"},
		&scriptedAdapter{key: "second", err: errors.New("boom")},
		&scriptedAdapter{key: "third"},
	}

	outcomes := FetchAll(context.Background(), adapters, FetchParams{}, 4)
	require.Len(t, outcomes, 3)
	assert.Equal(t, "first", outcomes[0].Key)
	assert.Equal(t, "second", outcomes[1].Key)
	assert.Equal(t, "third", outcomes[2].Key)

	assert.NoError(t, outcomes[0].Err)
	assert.EqualError(t, outcomes[1].Err, "boom")
	assert.Equal(t, []string{"one bad listing"}, outcomes[2].Result.Errors)
}

func TestHTTPJSONAdapterWrappedPayload(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/events", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"events": [
				{"name": "Cars & Coffee", "scope": "local", "startDate": "2026-03-01",
				 "city": "Austin", "sourceUrl": "https://meetup.invalid/e/1"}
			],
			"errors": ["listing 2 had no date"]
		}`))
	}))
	defer server.Close()

	adapter, err := NewHTTPJSONAdapter("meetup-json", server.URL, "car meet", time.Second)
	require.NoError(t, err)

	result, err := adapter.Fetch(context.Background(), FetchParams{
		Location:   "Austin",
		RangeStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Limit:      25,
	})
	require.NoError(t, err)

	require.Len(t, result.Events, 1)
	assert.Equal(t, "Cars & Coffee", result.Events[0].Name)
	assert.Equal(t, []string{"listing 2 had no date"}, result.Errors)

	assert.Contains(t, gotQuery, "location=Austin")
	assert.Contains(t, gotQuery, "from=2026-03-01")
	assert.Contains(t, gotQuery, "to=2026-04-01")
	assert.Contains(t, gotQuery, "limit=25")
}

func TestHTTPJSONAdapterBareArrayPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"name": "Vintage Rally", "scope": "regional", "startDate": "2026-05-10",
			"city": "Marfa", "sourceUrl": "https://meetup.invalid/e/2"}]`))
	}))
	defer server.Close()

	adapter, err := NewHTTPJSONAdapter("meetup-json", server.URL, "", time.Second)
	require.NoError(t, err)

	result, err := adapter.Fetch(context.Background(), FetchParams{})
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "Vintage Rally", result.Events[0].Name)
}

func TestHTTPJSONAdapterErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		adapter, err := NewHTTPJSONAdapter("x", server.URL, "", time.Second)
		require.NoError(t, err)
		_, err = adapter.Fetch(context.Background(), FetchParams{})
		assert.ErrorContains(t, err, "502")
	})

	t.Run("truncated body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			// Promise more bytes than are sent; the connection drops mid-body.
			w.Header().Set("Content-Length", "4096")
			w.Write([]byte(`{"events": [`))
		}))
		defer server.Close()

		adapter, err := NewHTTPJSONAdapter("x", server.URL, "", time.Second)
		require.NoError(t, err)
		_, err = adapter.Fetch(context.Background(), FetchParams{})
		require.Error(t, err)
		assert.ErrorContains(t, err, "response body read")
	})

	t.Run("unparsable body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}))
		defer server.Close()

		adapter, err := NewHTTPJSONAdapter("x", server.URL, "", time.Second)
		require.NoError(t, err)
		_, err = adapter.Fetch(context.Background(), FetchParams{})
		assert.ErrorContains(t, err, "parse")
	})
}
