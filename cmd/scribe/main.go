package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scribe/internal/bus"
	"scribe/internal/channel"
	"scribe/internal/config"
	"scribe/internal/domain"
	"scribe/internal/elastic"
	"scribe/internal/ingest"
	"scribe/internal/journal"
	"scribe/internal/metrics"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "scribe",
		Short: "Scribe: Discord to Elasticsearch chat archiver",
		Long:  "Scribe forwards Discord messages to an Elasticsearch index, live and on demand.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.scribe/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// setupLogger rebuilds the process logger from the loaded config.
func setupLogger(cfg *config.Config) error {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var w io.Writer = os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
	}

	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			logger.Info("next: set discord.token, elastic.baseUrl, elastic.apiKey and elastic.index")
			return nil
		},
	}
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Connect to Discord and forward messages",
		Long:  "Connects to Discord and forwards every visible message to the configured Elasticsearch index. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := setupLogger(cfg); err != nil {
		return err
	}

	if len(cfg.Discord.Privileged) == 0 {
		logger.Warn("no privileged authors configured, in-band commands are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Message bus (closed during graceful shutdown below)
	messageBus := bus.New(100, logger)

	var writeJournal domain.Journal
	var journalStore *journal.Store
	if cfg.Journal.Enabled {
		journalStore, err = journal.Open(cfg.Journal.DBPath, logger)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		writeJournal = journalStore
	}

	sink := elastic.New(elastic.Config{
		BaseURL:            cfg.Elastic.BaseURL,
		Index:              cfg.Elastic.Index,
		APIKey:             cfg.Elastic.APIKey,
		InsecureSkipVerify: cfg.Elastic.InsecureSkipVerify,
		Timeout:            time.Duration(cfg.Elastic.TimeoutSeconds) * time.Second,
	}, logger)

	discord := channel.NewDiscord(channel.DiscordConfig{
		Token:  cfg.Discord.Token,
		Logger: logger,
	})

	verbosity := &ingest.Verbosity{}
	forwarder := ingest.NewForwarder(sink, discord, writeJournal, verbosity, logger)

	dispatcher := ingest.NewDispatcher(ingest.DispatcherConfig{
		Bus:       messageBus,
		Gateway:   discord,
		Router:    ingest.NewRouter(cfg.Discord.CommandPrefix, cfg.Discord.Privileged),
		Forwarder: forwarder,
		Backfills: ingest.NewRunner(discord, forwarder, logger),
		Verbosity: verbosity,
		Logger:    logger,
	})

	go dispatcher.Run(ctx)

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc(cfg.Metrics.Endpoint, metrics.Collector.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Info("metrics endpoint", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Endpoint)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	go func() {
		if err := discord.Start(ctx, messageBus); err != nil {
			logger.Error("discord gateway error", "err", err)
			stop()
		}
	}()

	logger.Info("gateway started. Press Ctrl+C to stop.")

	// Block until shutdown signal
	<-ctx.Done()
	logger.Info("shutting down gateway...")

	// Graceful shutdown with timeout
	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		discord.Stop()
		messageBus.Close()
		if metricsSrv != nil {
			metricsSrv.Shutdown(shutdownCtx)
		}
		if journalStore != nil {
			journalStore.Close()
		}
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		shutdownErr = fmt.Errorf("shutdown timed out")
	}

	return shutdownErr
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and journal status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.LoadUnvalidated(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false, "err", err)
				return nil
			}
			logger.Info("config", "path", cfgPath, "loaded", true)
			logger.Info("elastic", "baseUrl", cfg.Elastic.BaseURL, "index", cfg.Elastic.Index)
			logger.Info("commands", "prefix", cfg.Discord.CommandPrefix, "privileged", len(cfg.Discord.Privileged))

			if !cfg.Journal.Enabled {
				logger.Info("journal", "enabled", false)
				return nil
			}
			store, err := journal.Open(cfg.Journal.DBPath, logger)
			if err != nil {
				logger.Warn("journal", "enabled", true, "err", err)
				return nil
			}
			defer store.Close()

			ctx := context.Background()
			total, err := store.TotalCount(ctx)
			if err != nil {
				return err
			}
			failures, err := store.FailureCount(ctx)
			if err != nil {
				return err
			}
			logger.Info("journal", "path", cfg.Journal.DBPath, "writes", total, "failures", failures)

			if failures > 0 {
				recent, err := store.RecentFailures(ctx, 5)
				if err != nil {
					return err
				}
				for _, rec := range recent {
					logger.Info("recent failure",
						"message", rec.MessageID,
						"channel", rec.ChannelName,
						"status", rec.Status,
						"err", rec.Error,
					)
				}
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. elastic.index)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.LoadUnvalidated(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. elastic.index chat-archive)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.LoadUnvalidated(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.LoadUnvalidated(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
