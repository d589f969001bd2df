// Sentinela is the back-office engine mediating between the support chat
// bot and the HubSoft customer-management system: CPF verification,
// support-ticket conversations, and the integration scheduler that keeps
// both in sync with HubSoft (spec.md §1).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/gustsr/sentinela/chatnotify"
	"github.com/gustsr/sentinela/clockwork"
	"github.com/gustsr/sentinela/conversation"
	"github.com/gustsr/sentinela/dispatcher"
	"github.com/gustsr/sentinela/domainevent"
	"github.com/gustsr/sentinela/integration"
	"github.com/gustsr/sentinela/internal/api"
	"github.com/gustsr/sentinela/metrics"
	"github.com/gustsr/sentinela/store"
	"github.com/gustsr/sentinela/ticket"
	"github.com/gustsr/sentinela/upstream"
	"github.com/gustsr/sentinela/user"
	"github.com/gustsr/sentinela/verification"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	var (
		dbPath        = flag.String("db", "sentinela.db", "SQLite database path")
		adminAddr     = flag.String("admin-addr", ":8081", "Admin API listen address")
		hubsoftURL    = flag.String("hubsoft-url", "https://hubsoft.example.com", "HubSoft base URL")
		hubsoftToken  = flag.String("hubsoft-token", os.Getenv("HUBSOFT_TOKEN"), "HubSoft bearer token")
		redisAddr     = flag.String("redis-addr", "127.0.0.1:6379", "Redis address for the upstream read cache")
		maxRPM        = flag.Int("upstream-max-rpm", 30, "Upstream calls allowed per rolling minute")
		sweepInterval = flag.Duration("sweep-interval", time.Minute, "Interval between background sweeps")
		showVersion   = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("sentinela %s (commit %s)\n", version, gitCommit)
		return
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := store.Open(*dbPath)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	clock := clockwork.Real{}
	ids := clockwork.UUIDGen{}

	userRepo := store.NewUserRepository(db)
	verificationRepo := store.NewVerificationRepository(db)
	ticketRepo := store.NewTicketRepository(db)
	conversationRepo := store.NewConversationRepository(db)
	integrationRepo := store.NewIntegrationRepository(db)

	authenticator := func(ctx context.Context) (string, error) { return *hubsoftToken, nil }
	upstreamClient := upstream.NewHTTPClient(*hubsoftURL, &http.Client{Timeout: 15 * time.Second}, authenticator, log)

	bus := domainevent.New(domainevent.Config{})

	metricsRegistry := prometheus.NewRegistry()
	metricsCollectors := metrics.NewCollectors(metricsRegistry)
	metricsSub := metrics.NewSubscriber(metricsCollectors)
	metricsSub.Register(bus)

	chatSink := func(ctx context.Context, n chatnotify.Notification) error {
		log.Info("chatnotify: notification ready for delivery",
			"audience", n.Audience, "priority", n.Priority, "title", n.Title)
		return nil
	}
	chatSub := chatnotify.NewSubscriber(chatSink, log)
	chatSub.Register(bus)

	duplicateService := verification.NewDuplicateService(userRepo)
	verificationEngine := verification.NewEngine(
		verificationRepo, upstream.VerificationAdapter{Client: upstreamClient}, duplicateService,
		bus, clock, ids, verification.DefaultConfig(),
	)

	ticketEngine := ticket.NewEngine(ticketRepo, upstream.TicketSyncAdapter{Client: upstreamClient}, bus, clock)
	conversationEngine := conversation.NewEngine(conversationRepo, ticketRepo, bus, clock, ids)

	redisClient := redis.NewClient(&redis.Options{Addr: *redisAddr})
	cache := integration.NewCache(redisClient, "sentinela")
	limiter := integration.NewRateLimiter(*maxRPM, time.Minute, nil)
	breaker := integration.NewBreaker("hubsoft")
	queue := integration.NewQueue()
	executors := buildExecutors(upstreamClient, ticketEngine, cache)
	scheduler := integration.NewScheduler(queue, limiter, breaker, integrationRepo, bus, clock, executors)

	adminOps := user.NewAdminOps(userRepo, clock, ids)

	// Build fails fast (panics) at startup if any spec.md §6 command lacks
	// a registered handler. The wire transport the chat adapter uses to
	// reach Registry.Dispatch is an external collaborator's concern
	// (spec.md §1 Non-goals), so the registry itself isn't served here.
	_ = dispatcher.Build(dispatcher.Deps{
		Log:                  log,
		VerificationEngine:   verificationEngine,
		VerificationRepo:     verificationRepo,
		ConversationEngine:   conversationEngine,
		ConversationRepo:     conversationRepo,
		TicketEngine:         ticketEngine,
		TicketRepo:           ticketRepo,
		IntegrationScheduler: scheduler,
		IntegrationRepo:      integrationRepo,
		AdminOps:             adminOps,
		Bus:                  bus,
		Clock:                clock,
		IDs:                  ids,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go scheduler.Run(ctx)

	runPeriodic(ctx, *sweepInterval, log, "verification-expiry", func(ctx context.Context) (int, error) {
		return verificationEngine.ExpireSweep(ctx, 500)
	})
	runPeriodic(ctx, *sweepInterval, log, "conversation-timeout", func(ctx context.Context) (int, error) {
		return conversationEngine.TimeoutSweep(ctx, 500)
	})
	retryFailedIntegrations := func(ctx context.Context) (int, error) {
		failed, err := integrationRepo.FindByStatus(ctx, integration.StatusFailed, 500)
		if err != nil {
			return 0, err
		}
		count := 0
		for _, req := range failed {
			if !req.CanRetry() {
				continue
			}
			if err := scheduler.Enqueue(ctx, req); err != nil {
				return count, err
			}
			count++
		}
		return count, nil
	}
	runPeriodic(ctx, *sweepInterval, log, "integration-retry", retryFailedIntegrations)
	runPeriodic(ctx, *sweepInterval, log, "metrics-gauges", func(ctx context.Context) (int, error) {
		metricsCollectors.ObserveQueueDepth(queue.Len())
		metricsCollectors.ObserveBreakerOpen(breaker.IsOpen())
		return 0, nil
	})

	stats := func(ctx context.Context) (api.BoardStats, error) {
		pending, err := verificationRepo.FindExpiring(ctx, clock.Now().Add(24*time.Hour), 10000)
		if err != nil {
			return api.BoardStats{}, err
		}
		openTickets, err := ticketRepo.FindByStatus(ctx, ticket.StatusOpen)
		if err != nil {
			return api.BoardStats{}, err
		}
		pendingIntegrations, err := integrationRepo.FindByStatus(ctx, integration.StatusPending, 10000)
		if err != nil {
			return api.BoardStats{}, err
		}
		return api.BoardStats{
			PendingVerifications: len(pending),
			OpenTickets:          len(openTickets),
			PendingIntegrations:  len(pendingIntegrations),
			BreakerOpen:          breaker.IsOpen(),
			QueueDepth:           queue.Len(),
		}, nil
	}

	adminServer := api.NewServer(*adminAddr, log, stats, map[string]api.Sweeper{
		"verification-expiry": func(ctx context.Context) (int, error) { return verificationEngine.ExpireSweep(ctx, 500) },
		"conversation-timeout": func(ctx context.Context) (int, error) { return conversationEngine.TimeoutSweep(ctx, 500) },
		"integration-retry":    retryFailedIntegrations,
	}, promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))

	log.Info("sentinela starting", "admin_addr", *adminAddr, "db", *dbPath)
	if err := adminServer.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
		log.Error("admin server exited", "error", err)
	}
}

// runPeriodic runs fn immediately and then every interval until ctx is
// cancelled, matching the teacher's background-cycle idiom (run once on
// start, then tick).
func runPeriodic(ctx context.Context, interval time.Duration, log *slog.Logger, name string, fn func(context.Context) (int, error)) {
	run := func() {
		count, err := fn(ctx)
		if err != nil {
			log.Error("sweep failed", "sweep", name, "error", err)
			return
		}
		if count > 0 {
			log.Info("sweep processed", "sweep", name, "count", count)
		}
	}

	go func() {
		run()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
