package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"netwatch/app/internal/config"
	"netwatch/app/internal/database"
	"netwatch/app/internal/retention"
	"netwatch/app/internal/speedtest"
	"netwatch/app/internal/stats"
)

const (
	AppName    = "netwatch"
	AppVersion = "1.0.0"
	AppDesc    = "continuous ping and speedtest monitor"
)

// createCliApp builds the command tree; serve is the default action
func createCliApp() *cli.App {
	return &cli.App{
		Name:     AppName,
		Version:  AppVersion,
		Usage:    AppDesc,
		Flags:    createCliFlags(),
		Action:   runServe,
		Commands: createCommands(),
	}
}

func createCliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file (overrides CONFIG_FILE)",
		},
		&cli.StringFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "HTTP listen port",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "SQLite database path",
		},
		&cli.StringFlag{
			Name:    "target",
			Aliases: []string{"t"},
			Usage:   "host or IP to ping",
		},
	}
}

func createCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "run the monitor and HTTP API (default)",
			Action: runServe,
		},
		{
			Name:   "speedtest",
			Usage:  "run one speedtest, record it and print the result",
			Action: runSpeedtestOnce,
		},
		{
			Name:   "sweep",
			Usage:  "apply the retention policy once and exit",
			Action: runSweepOnce,
		},
		{
			Name:    "version",
			Aliases: []string{"v"},
			Usage:   "show version information",
			Action: func(c *cli.Context) error {
				fmt.Printf("%s v%s\n", AppName, AppVersion)
				fmt.Printf("%s/%s %s\n", runtime.GOOS, runtime.GOARCH, runtime.Version())
				return nil
			},
		},
	}
}

// loadConfig reads .env, the YAML file and the environment, then applies
// command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		_ = godotenv.Load()
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if c.IsSet("port") {
		cfg.Port = c.String("port")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("target") {
		cfg.PingTarget = c.String("target")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSpeedtestOnce(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	sched := oneShotScheduler(store, speedtest.NewCommandRunner(cfg.SpeedtestCommand), cfg.SpeedtestTimeout())
	res := sched.Run(c.Context)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success {
		return cli.Exit("speedtest failed: "+res.Error, 1)
	}
	return nil
}

// oneShotScheduler builds an unscheduled speedtest runner whose records are
// correlated with the ping samples already in store.
func oneShotScheduler(store *database.Store, runner speedtest.Runner, timeout time.Duration) *speedtest.Scheduler {
	return speedtest.NewScheduler(runner, store, stats.NewEngine(store, 0), nil, speedtest.Options{Timeout: timeout})
}

func runSweepOnce(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	sweeper := retention.NewSweeper(store, retention.NewPolicy(cfg.PingRetentionDays, cfg.SpeedtestRetentionDays))
	res, err := sweeper.Sweep()
	for kind, n := range res {
		log.Printf("Purged %d %s rows", n, kind)
	}
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	log.Printf("Retention sweep removed %d rows", res.Total())
	return nil
}
