// Package market fetches buy/sell aggregate statistics for a set of type
// ids from the regional market endpoint, enforcing a freshness bound.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Jsharifz/Reprocess-King/internal/obs"
	"github.com/Jsharifz/Reprocess-King/internal/resilience"
)

// ErrStale indicates the endpoint responded with data older than the
// configured staleness bound.
var ErrStale = errors.New("market: data older than staleness bound")

// Quote carries the best buy-side and sell-side reference statistics for one
// type id. Ids absent from the response yield a zero Quote.
type Quote struct {
	Buy  float64
	Sell float64
}

// Client queries the aggregates endpoint for one fixed station.
type Client struct {
	HTTP      resilience.HTTPClient
	BaseURL   string
	StationID int64
	MaxAge    time.Duration
	Now       func() time.Time
}

// aggregate mirrors the endpoint payload per type id. Values may arrive as
// JSON numbers or as quoted strings; flexFloat tolerates both.
type aggregate struct {
	Buy  sideStats `json:"buy"`
	Sell sideStats `json:"sell"`
}

type sideStats struct {
	Max flexFloat `json:"max"`
	Min flexFloat `json:"min"`
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse price %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// Fetch returns quotes for the requested ids. The request carries a
// timestamp parameter to defeat intermediate caching, and the response must
// present freshness evidence (Age, Last-Modified, or Date) within MaxAge;
// otherwise ErrStale is returned and the run must be treated as failed.
func (c *Client) Fetch(ctx context.Context, ids []int64) (map[int64]Quote, error) {
	if len(ids) == 0 {
		return map[int64]Quote{}, nil
	}
	now := c.now()

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("market: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("station", strconv.FormatInt(c.StationID, 10))
	q.Set("types", joinIDs(ids))
	q.Set("ts", strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		recordFetch("error")
		return nil, fmt.Errorf("market: fetch aggregates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		recordFetch("error")
		return nil, fmt.Errorf("market: unexpected status %s", resp.Status)
	}

	if err := c.checkFreshness(resp.Header, now); err != nil {
		recordFetch("stale")
		if obs.MarketStaleTotal != nil {
			obs.MarketStaleTotal.Inc()
		}
		return nil, err
	}

	var payload map[string]aggregate
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		recordFetch("error")
		return nil, fmt.Errorf("market: decode aggregates: %w", err)
	}

	quotes := make(map[int64]Quote, len(payload))
	for key, agg := range payload {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		quotes[id] = Quote{
			Buy:  float64(agg.Buy.Max),
			Sell: float64(agg.Sell.Min),
		}
	}
	recordFetch("ok")
	return quotes, nil
}

// checkFreshness validates standard caching headers against the staleness
// bound. Age wins when present; Last-Modified is consulted next, then Date.
func (c *Client) checkFreshness(h http.Header, now time.Time) error {
	maxAge := c.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	if age := strings.TrimSpace(h.Get("Age")); age != "" {
		if seconds, err := strconv.ParseInt(age, 10, 64); err == nil {
			if time.Duration(seconds)*time.Second > maxAge {
				return fmt.Errorf("%w (age header)", ErrStale)
			}
		}
	}
	if lm := strings.TrimSpace(h.Get("Last-Modified")); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			if now.Sub(t) > maxAge {
				return fmt.Errorf("%w (last-modified)", ErrStale)
			}
		}
		return nil
	}
	if date := strings.TrimSpace(h.Get("Date")); date != "" {
		if t, err := http.ParseTime(date); err == nil {
			if now.Sub(t) > maxAge {
				return fmt.Errorf("%w (date header)", ErrStale)
			}
		}
	}
	return nil
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func joinIDs(ids []int64) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

func recordFetch(result string) {
	if obs.MarketFetchTotal != nil {
		obs.MarketFetchTotal.WithLabelValues(result).Inc()
	}
}
