package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/newsletter-engine/internal/api"
	"github.com/ignite/newsletter-engine/internal/config"
	"github.com/ignite/newsletter-engine/internal/content"
	"github.com/ignite/newsletter-engine/internal/delivery"
	"github.com/ignite/newsletter-engine/internal/jobs"
	"github.com/ignite/newsletter-engine/internal/pkg/distlock"
	"github.com/ignite/newsletter-engine/internal/repository/memory"
	"github.com/ignite/newsletter-engine/internal/repository/postgres"
	"github.com/ignite/newsletter-engine/internal/service/configuration"
	"github.com/ignite/newsletter-engine/internal/service/generation"
	"github.com/ignite/newsletter-engine/internal/service/issue"
	"github.com/ignite/newsletter-engine/internal/service/preview"
	"github.com/ignite/newsletter-engine/internal/service/segment"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	log.Println("Newsletter Engine server starting")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repositories: Postgres in production, in-memory in dev mode
	var (
		issueRepo  issue.Repository
		configRepo configuration.Repository
		segRepo    segment.Repository
		db         *sql.DB
	)
	switch {
	case cfg.Database.URL != "":
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		pingCancel()
		if err != nil {
			log.Fatalf("Failed to ping database (host %s): %v", extractHost(cfg.Database.URL), err)
		}
		defer db.Close()
		issueRepo = postgres.NewIssueRepo(db)
		configRepo = postgres.NewConfigurationRepo(db)
		segRepo = postgres.NewSegmentRepo(db)
		log.Printf("[storage] Postgres connected (host %s)", extractHost(cfg.Database.URL))
	case cfg.DevMode:
		issueRepo = memory.NewIssueRepo()
		configRepo = memory.NewConfigurationRepo()
		segRepo = memory.NewSegmentRepo()
		log.Println("[storage] DEV MODE: in-memory repositories, data will not survive restart")
	default:
		log.Fatalf("database.url is required (set DATABASE_URL, or DEV_MODE=true for in-memory storage)")
	}

	// Generation job handles: Redis when configured, in-memory otherwise
	var jobStore generation.JobStore = jobs.NewMemoryStore()
	var lockRedis *redis.Client
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Printf("Warning: Redis connection failed (%s): %v, falling back to in-memory job handles", cfg.Redis.Addr, err)
		} else {
			jobStore = jobs.NewStore(rdb)
			lockRedis = rdb
			log.Printf("[jobs] Redis connected: %s", cfg.Redis.Addr)
		}
	}

	// Services
	issueSvc := issue.NewService(issueRepo)
	configSvc := configuration.NewService(configRepo)
	segSvc := segment.NewService(segRepo)
	generator := generation.NewCoordinator(issueRepo, configRepo, jobStore)
	previews := preview.NewRenderer(issueRepo)

	// Cross-host generation guard wherever a shared backend exists
	if lockRedis != nil || db != nil {
		generator.SetLockFactory(func(key string) distlock.Lock {
			return distlock.New(lockRedis, db, key, 30*time.Second)
		})
	}

	if len(cfg.Content.FeedURLs) > 0 {
		generator.SetContentSource(content.NewFeedSource(cfg.Content.FeedURLs...))
		log.Printf("[content] feed source configured with %d feed(s)", len(cfg.Content.FeedURLs))
	}

	handlers := api.NewHandlers(issueSvc, generator, previews, configSvc, segSvc)

	// Delivery metrics provider for mark-sent snapshots
	if cfg.Delivery.SES.Enabled() {
		provider, err := delivery.NewSESProvider(ctx, delivery.SESConfig{
			AccessKey: cfg.Delivery.SES.AccessKey,
			SecretKey: cfg.Delivery.SES.SecretKey,
			Region:    cfg.Delivery.SES.Region,
		})
		if err != nil {
			log.Printf("Warning: Failed to initialize SES metrics provider: %v", err)
		} else {
			handlers.SetDeliveryProvider(provider)
			log.Printf("[delivery] SES metrics provider enabled (region %s)", cfg.Delivery.SES.Region)
		}
	}

	server := api.NewServer(handlers)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := cfg.Server.Addr()
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized, server is ready")

	<-done
	log.Println("Shutting down...")

	// Cancel background tasks
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
