package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"netwatch/app/internal/alerts"
	"netwatch/app/internal/database"
	"netwatch/app/internal/events"
	"netwatch/app/internal/handlers"
	"netwatch/app/internal/metrics"
	"netwatch/app/internal/monitor"
	"netwatch/app/internal/ratelimit"
	"netwatch/app/internal/retention"
	"netwatch/app/internal/speedtest"
	"netwatch/app/internal/stats"
)

func main() {
	if err := createCliApp().Run(os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

// runServe wires every component and blocks until SIGINT/SIGTERM
func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	broker := events.NewBroker()

	// Metrics
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec, err := metrics.NewRecorder(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		if err := rec.TrackDrops(reg, broker.Dropped); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		broker.AddHook(rec.Observe)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		log.Println("Prometheus metrics enabled at /metrics")
	}

	// Alerts
	alertMgr := alerts.NewManager(alerts.Config{
		WebhookURL:        cfg.WebhookURL,
		WebhookSecret:     cfg.WebhookSecret,
		DiscordWebhookURL: cfg.DiscordWebhookURL,
		DashboardURL:      cfg.DashboardURL,
		Cooldown:          cfg.AlertCooldown(),
	})
	if alertMgr.Enabled() {
		broker.AddHook(alertMgr.Notify)
		log.Println("Alert delivery enabled")
	}

	engine := stats.NewEngine(store, cfg.StatsCacheTTL())
	defer engine.Close()

	// Ping monitoring
	supervisor := monitor.NewSupervisor(
		cfg.PingTarget,
		monitor.PingLauncher(cfg.PingCommand, cfg.PingTarget),
		store, broker,
	)
	if cfg.AutostartMonitoring {
		if err := supervisor.Start(); err != nil {
			log.Printf("Warning: Failed to start monitoring: %v", err)
		}
	}

	// Speedtests
	deps := handlers.Deps{
		Stats:            engine,
		Issues:           store,
		Monitor:          supervisor,
		Events:           broker,
		Metrics:          metricsHandler,
		SpeedtestTimeout: cfg.SpeedtestTimeout(),
	}
	var scheduler *speedtest.Scheduler
	if cfg.EnableSpeedtest {
		scheduler = speedtest.NewScheduler(
			speedtest.NewCommandRunner(cfg.SpeedtestCommand),
			store, engine, broker,
			speedtest.Options{
				Interval: cfg.SpeedtestInterval(),
				Warmup:   cfg.SpeedtestWarmup(),
				Timeout:  cfg.SpeedtestTimeout(),
			},
		)
		scheduler.Start()
		deps.Speedtest = scheduler
		log.Printf("Speedtest scheduler started with %v interval", cfg.SpeedtestInterval())
	}

	// Retention
	sweeper := retention.NewSweeper(store, retention.NewPolicy(cfg.PingRetentionDays, cfg.SpeedtestRetentionDays))
	sweeper.Start()

	limiter := ratelimit.New(ratelimit.Config{
		TokensPerMinute: 10,
		ErrorMessage:    "too many control requests, try again in a minute",
	})
	deps.ControlLimiter = limiter
	deps.TrustProxy = cfg.TrustProxy

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handlers.SetupRoutes(deps),
		ReadTimeout: 15 * time.Second,
		// on-demand speedtests hold the response open
		WriteTimeout: cfg.SpeedtestTimeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s (target %s)", cfg.Port, cfg.PingTarget)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Printf("Server failed: %v", serveErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: HTTP shutdown: %v", err)
	}

	supervisor.Stop()
	if scheduler != nil {
		scheduler.Stop()
	}
	sweeper.Stop()
	limiter.Stop()
	alertMgr.Wait()

	log.Println("Shutdown complete")
	return serveErr
}
