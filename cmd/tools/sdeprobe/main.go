// Command sdeprobe downloads the static data export and prints index stats,
// useful for verifying the feed before deploying.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Jsharifz/Reprocess-King/internal/config"
	"github.com/Jsharifz/Reprocess-King/internal/obs"
	"github.com/Jsharifz/Reprocess-King/internal/resilience"
	"github.com/Jsharifz/Reprocess-King/internal/sde"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "overall probe timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := obs.NewLogger("console", "info")

	loader := &sde.Loader{
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Timeout: cfg.HTTPClientTimeout},
			MaxAttempts: 3,
			BaseBackoff: 500 * time.Millisecond,
			Timeout:     cfg.HTTPClientTimeout,
		},
		BaseURL: strings.TrimRight(cfg.SDEBaseURL, "/"),
		Logger:  logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	idx, err := loader.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
		os.Exit(1)
	}
	types, bills, groups := idx.Stats()
	fmt.Printf("catalog loaded in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  types:  %d\n", types)
	fmt.Printf("  bills:  %d\n", bills)
	fmt.Printf("  groups: %d\n", groups)
}
