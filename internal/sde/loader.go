package sde

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Jsharifz/Reprocess-King/internal/lock"
	"github.com/Jsharifz/Reprocess-King/internal/obs"
	"github.com/Jsharifz/Reprocess-King/internal/resilience"
)

const (
	resourceTypes     = "invTypes.csv"
	resourceMaterials = "invTypeMaterials.csv"
	resourceGroups    = "invGroups.csv"

	refreshLockKey = "sde:refresh"
	refreshLockTTL = 2 * time.Minute
)

// Loader fetches the static data export and builds the session Index. Load
// is idempotent and memoized: concurrent callers share one in-flight load,
// and once built the index persists for the life of the process.
type Loader struct {
	HTTP    resilience.HTTPClient
	BaseURL string
	Cache   *Cache
	Locker  *lock.Locker
	Logger  zerolog.Logger

	mu  sync.Mutex
	idx *Index
}

// Load returns the session catalog index, fetching and building it on first
// use. A failed load leaves the loader empty so the next call retries.
func (l *Loader) Load(ctx context.Context) (*Index, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.idx != nil {
		return l.idx, nil
	}

	start := time.Now()
	payloads := make([][]byte, 3)
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range []string{resourceTypes, resourceMaterials, resourceGroups} {
		i, name := i, name
		g.Go(func() error {
			data, err := l.fetchResource(gctx, name)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", name, err)
			}
			payloads[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		recordCatalogLoad("error")
		return nil, err
	}

	l.idx = BuildIndex(payloads[0], payloads[1], payloads[2])
	types, bills, groups := l.idx.Stats()
	l.Logger.Info().
		Int("types", types).
		Int("bills", bills).
		Int("groups", groups).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("catalog_loaded")
	recordCatalogLoad("ok")
	return l.idx, nil
}

// Loaded reports whether the index has been built, for readiness probes.
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.idx != nil
}

func (l *Loader) fetchResource(ctx context.Context, name string) ([]byte, error) {
	key := "sde:" + name
	if data, ok, err := l.Cache.Get(ctx, key); err == nil && ok {
		return data, nil
	}

	// With Redis available, serialise the download so only one instance
	// refreshes the shared cache.
	if l.Locker != nil {
		var data []byte
		err := l.Locker.WithLock(ctx, refreshLockKey+":"+name, refreshLockTTL, func(ctx context.Context) error {
			if cached, ok, err := l.Cache.Get(ctx, key); err == nil && ok {
				data = cached
				return nil
			}
			downloaded, err := l.download(ctx, name)
			if err != nil {
				return err
			}
			if err := l.Cache.Set(ctx, key, downloaded); err != nil {
				l.Logger.Warn().Err(err).Str("resource", name).Msg("cache catalog resource")
			}
			data = downloaded
			return nil
		})
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	return l.download(ctx, name)
}

func (l *Loader) download(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+"/"+name, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := l.HTTP.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func recordCatalogLoad(result string) {
	if obs.CatalogLoadTotal != nil {
		obs.CatalogLoadTotal.WithLabelValues(result).Inc()
	}
}
