package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/cors"

	"github.com/pressroomhq/social-scheduler/internal/alerts"
	"github.com/pressroomhq/social-scheduler/internal/dispatch"
	"github.com/pressroomhq/social-scheduler/internal/guard"
	"github.com/pressroomhq/social-scheduler/internal/handlers"
	"github.com/pressroomhq/social-scheduler/internal/metrics"
	"github.com/pressroomhq/social-scheduler/internal/profile"
	"github.com/pressroomhq/social-scheduler/internal/queue"
	"github.com/pressroomhq/social-scheduler/internal/signals"
	"github.com/pressroomhq/social-scheduler/internal/store"
	"github.com/pressroomhq/social-scheduler/internal/workers"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Root context for background workers and graceful shutdown
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Run migrations on startup
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("Failed to init migration driver: %v", err)
	}
	migrator, err := migrate.NewWithDatabaseInstance("file://db/migrations", "postgres", driver)
	if err != nil {
		log.Fatalf("Failed to create migrator: %v", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Database migration failed: %v", err)
	}
	log.Println("Database is up-to-date")

	// Destination timezone for all grid bucketing.
	loc := resolveLocation(os.Getenv)

	// Alerting: Sentry when a DSN is configured, log-only otherwise.
	var sink alerts.Sink = alerts.LogSink{}
	if sentrySink, err := alerts.NewSentrySink(); err != nil {
		log.Printf("[ALERT] sentry init failed, falling back to log sink: %v", err)
	} else if sentrySink != nil {
		sink = sentrySink
	}

	st := store.New(db)
	breakers := guard.NewRegistry(sink)

	calc := &profile.Calculator{
		Accounts: st,
		Own:      &signals.OwnPerformance{History: st, Loc: loc},
		Analytics: &signals.SiteAnalytics{
			Provider: noopAnalytics{},
			Breaker:  breakers.For("site-analytics"),
			Loc:      loc,
		},
		Competitor: &signals.Competitor{Grids: st},
		Loc:        loc,
	}

	dispatchers := dispatch.NewRegistry(breakers,
		dispatch.XDispatcher{},
		dispatch.FacebookDispatcher{},
		dispatch.TruthSocialDispatcher{},
		dispatch.InstagramDispatcher{},
	)
	q := &queue.Orchestrator{Store: st, Dispatchers: dispatchers}

	h := handlers.New(st, q, calc, loc)
	r := buildRouter(h)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	handler := c.Handler(r)

	port := resolvePort(os.Getenv)
	srv := &http.Server{
		Handler:      handler,
		Addr:         ":" + port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	// Handle graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Background: send worker (dispatches approved posts when they come due)
	{
		enabled := os.Getenv("SEND_WORKER_ENABLED")
		if enabled == "" || enabled == "true" {
			interval := parseIntervalFromEnv(os.Getenv, "SEND_WORKER_INTERVAL_SECONDS", time.Minute)
			w := &workers.SendWorker{Store: st, Queue: q}
			go w.Start(rootCtx, interval)
		} else {
			log.Printf("[SendWorker] disabled via SEND_WORKER_ENABLED=%q", enabled)
		}
	}

	// Background: engagement refresh (re-pulls metrics on sent posts so the
	// own-performance signal has fresh buckets)
	{
		enabled := os.Getenv("ENGAGEMENT_REFRESH_ENABLED")
		if enabled == "" || enabled == "true" {
			interval := parseIntervalFromEnv(os.Getenv, "ENGAGEMENT_REFRESH_INTERVAL_SECONDS", time.Hour)
			w := &workers.EngagementRefreshWorker{
				Store:    st,
				Fetcher:  workers.StubEngagementFetcher{},
				Breakers: breakers,
			}
			go w.Start(rootCtx, interval)
		} else {
			log.Printf("[EngagementRefresh] disabled via ENGAGEMENT_REFRESH_ENABLED=%q", enabled)
		}
	}

	go func() {
		<-stop
		log.Println("Shutting down server...")
		cancel()
		ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}

// buildRouter wires the API routes plus the metrics scrape endpoint.
func buildRouter(h *handlers.Handler) *mux.Router {
	r := mux.NewRouter()
	handlers.RegisterRoutes(h, r)
	if metrics.IsEnabled() {
		r.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
	return r
}

// resolvePort returns PORT from env or the default.
func resolvePort(getenv func(string) string) string {
	if p := getenv("PORT"); p != "" {
		return p
	}
	return "18911"
}

// parseIntervalFromEnv reads an integer-seconds env var, falling back to def
// on empty, non-positive or malformed values.
func parseIntervalFromEnv(getenv func(string) string, key string, def time.Duration) time.Duration {
	v := getenv(key)
	if v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

// resolveLocation loads SCHEDULER_TIMEZONE, defaulting to UTC.
func resolveLocation(getenv func(string) string) *time.Location {
	tz := getenv("SCHEDULER_TIMEZONE")
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("[Config] invalid SCHEDULER_TIMEZONE=%q, using UTC: %v", tz, err)
		return time.UTC
	}
	return loc
}

// noopAnalytics stands in until a real analytics provider is configured; it
// always reports no data, which the calculator treats as an absent source.
type noopAnalytics struct{}

func (noopAnalytics) HourlyPageviews(ctx context.Context, site string) ([]signals.HourlyPageviews, error) {
	return nil, nil
}

func (noopAnalytics) SocialTrafficRatio(ctx context.Context, site string) (float64, error) {
	return 0, nil
}
