package sde_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Jsharifz/Reprocess-King/internal/resilience"
	"github.com/Jsharifz/Reprocess-King/internal/sde"
)

var fixtures = map[string]string{
	"/invTypes.csv":         "typeID,groupID,typeName\n34,18,Tritanium\n1001,25,Test Module\n",
	"/invTypeMaterials.csv": "typeID,materialTypeID,quantity\n1001,34,12\n",
	"/invGroups.csv":        "groupID,categoryID\n18,4\n25,7\n",
}

func newFeed(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := fixtures[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func newLoader(server *httptest.Server, cache *sde.Cache) *sde.Loader {
	return &sde.Loader{
		HTTP:    resilience.HTTPClient{Client: server.Client(), MaxAttempts: 1},
		BaseURL: server.URL,
		Cache:   cache,
		Logger:  zerolog.Nop(),
	}
}

func TestLoadBuildsIndex(t *testing.T) {
	server, hits := newFeed(t)
	loader := newLoader(server, nil)

	require.False(t, loader.Loaded())
	idx, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.True(t, loader.Loaded())
	require.EqualValues(t, 3, hits.Load())

	id, ok := idx.TypeIDByName("Test Module")
	require.True(t, ok)
	require.EqualValues(t, 1001, id)
	require.Len(t, idx.Materials(1001), 1)
	require.EqualValues(t, 7, idx.CategoryOf(1001))
}

func TestLoadIsMemoized(t *testing.T) {
	server, hits := newFeed(t)
	loader := newLoader(server, nil)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	second, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Same(t, first, second)
	require.EqualValues(t, 3, hits.Load(), "second load must not refetch")
}

func TestLoadFailureLeavesLoaderRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	loader := newLoader(server, nil)

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	require.False(t, loader.Loaded())
}

func TestLoadUsesSharedCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := sde.NewCache(client, time.Hour)

	server, hits := newFeed(t)

	first := newLoader(server, cache)
	_, err = first.Load(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, hits.Load())

	// A fresh loader instance hydrates from the shared cache instead of
	// re-downloading the export.
	second := newLoader(server, cache)
	idx, err := second.Load(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, hits.Load(), "cached resources must not hit the feed")

	id, ok := idx.TypeIDByName("Tritanium")
	require.True(t, ok)
	require.EqualValues(t, 34, id)
}
