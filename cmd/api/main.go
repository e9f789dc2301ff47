package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"

	"github.com/Jsharifz/Reprocess-King/internal/config"
	"github.com/Jsharifz/Reprocess-King/internal/events"
	"github.com/Jsharifz/Reprocess-King/internal/health"
	"github.com/Jsharifz/Reprocess-King/internal/lock"
	"github.com/Jsharifz/Reprocess-King/internal/market"
	"github.com/Jsharifz/Reprocess-King/internal/obs"
	"github.com/Jsharifz/Reprocess-King/internal/ratelimit"
	"github.com/Jsharifz/Reprocess-King/internal/resilience"
	"github.com/Jsharifz/Reprocess-King/internal/sde"
	"github.com/Jsharifz/Reprocess-King/internal/security"
	"github.com/Jsharifz/Reprocess-King/internal/session"
	"github.com/Jsharifz/Reprocess-King/internal/valuation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "reprocess")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "reprocess-king",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient = redis.NewClient(redisOpts)
		if tracingEnabled {
			if err := redisotel.InstrumentTracing(redisClient); err != nil {
				logger.Error().Err(err).Msg("instrument redis tracing")
			}
		}
		if metricsEnabled {
			if err := redisotel.InstrumentMetrics(redisClient); err != nil {
				logger.Error().Err(err).Msg("instrument redis metrics")
			}
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, catalog caching disabled")
			redisClient = nil
		}
		cancel()
	}

	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	sdeHTTP := resilience.HTTPClient{
		Client:      httpClient,
		Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second, resilience.WithTarget("sde"), resilience.WithLogger(&logger)),
		BaseBackoff: 500 * time.Millisecond,
		MaxAttempts: 3,
		Timeout:     cfg.HTTPClientTimeout,
	}
	marketHTTP := resilience.HTTPClient{
		Client:      httpClient,
		Breaker:     resilience.NewBreaker(5, 0.5, 15*time.Second, resilience.WithTarget("market"), resilience.WithLogger(&logger)),
		BaseBackoff: 250 * time.Millisecond,
		MaxAttempts: 3,
		Timeout:     cfg.HTTPClientTimeout,
	}

	loader := &sde.Loader{
		HTTP:    sdeHTTP,
		BaseURL: strings.TrimRight(cfg.SDEBaseURL, "/"),
		Cache:   sde.NewCache(redisClient, cfg.SDECacheTTL),
		Logger:  logger,
	}
	if redisClient != nil {
		loader.Locker = &lock.Locker{R: redisClient}
	}

	marketClient := &market.Client{
		HTTP:      marketHTTP,
		BaseURL:   cfg.MarketURL,
		StationID: cfg.StationID,
		MaxAge:    cfg.MarketMaxAge,
	}

	bus := &events.Bus{
		Notifiers: []events.Notifier{
			events.NotifierFunc(func(_ context.Context, ev events.Event) error {
				logger.Debug().Str("topic", ev.Topic).Stringer("run_id", ev.RunID).Msg("event")
				return nil
			}),
		},
	}

	sess := session.NewSession(loader, marketClient, bus, logger)
	valuationHandler := session.NewHandler(session.HandlerConfig{
		Session: sess,
		Defaults: valuation.Policy{
			Side:     valuation.SideBuy,
			Recovery: cfg.DefaultRecovery,
			TaxRate:  0,
			TaxMode:  valuation.TaxMinerals,
		},
	})

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{Enable: true}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:       readinessChecker{redis: redisClient, loader: loader},
		RedisTimeout:  300 * time.Millisecond,
		RedisOptional: redisClient == nil,
	}
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		if redisClient != nil && cfg.RateLimitMax > 0 {
			v.Use(ratelimit.Handler{
				Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl"},
				Config: ratelimit.Config{
					Key:    clientIPKey,
					Window: cfg.RateLimitWindow,
					Max:    cfg.RateLimitMax,
				},
				OnError: func(err error) {
					logger.Warn().Err(err).Msg("rate limiter")
				},
			}.Middleware)
		}
		v.Post("/valuations", valuationHandler.Run)
		v.Post("/valuations/policy", valuationHandler.Policy)
		v.Get("/valuations", valuationHandler.View)
	})

	// Warm the catalog in the background so the first valuation does not
	// pay the full download cost.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := loader.Load(ctx); err != nil {
			logger.Warn().Err(err).Msg("catalog preload failed, will retry on first valuation")
			return
		}
		if _, err := bus.Emit(ctx, events.TopicCatalogLoaded, uuid.New(), nil); err != nil {
			logger.Warn().Err(err).Msg("emit catalog event")
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
	logger.Info().Msg("server stopped")
}

type readinessChecker struct {
	redis  *redis.Client
	loader *sde.Loader
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func (c readinessChecker) CatalogLoaded() bool {
	return c.loader != nil && c.loader.Loaded()
}

func clientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
