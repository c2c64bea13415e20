// Command monitor is the entry point for the election monitor. It loads the
// configuration, starts the live update channel, the initial-load sequence
// and the local dashboard, and manages graceful shutdown via OS signals.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Guliveer/election-monitor-go/internal/config"
	"github.com/Guliveer/election-monitor-go/internal/logger"
	"github.com/Guliveer/election-monitor-go/internal/monitor"
)

const banner = `
+--------------------------------------------------+
|          Live Election Monitor (Go)              |
+--------------------------------------------------+
`

func main() {
	configPath := pflag.StringP("config", "c", config.DefaultConfigPath, "Path to the configuration file")
	addr := pflag.String("addr", "", "Dashboard listen address (overrides server.addr)")
	logLevel := pflag.String("log-level", "", "Log level: DEBUG, INFO, WARN, ERROR (overrides LOG_LEVEL env)")
	noColor := pflag.Bool("no-color", false, "Disable colored output (overrides TTY detection)")
	testNotify := pflag.Bool("test-notify", false, "Send a test notification to every enabled provider and exit")
	pflag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *logLevel != "" {
		level = logger.ParseLevel(*logLevel)
	} else if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = logger.ParseLevel(envLevel)
	}

	colored := !*noColor && term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = level
	logCfg.Colored = colored
	logCfg.LogDir = cfg.Log.Dir
	logCfg.Rotation = logger.RotationConfig{
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}

	rootLog, err := logger.Setup(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}

	if err := config.Validate(cfg); err != nil {
		rootLog.Error("Invalid config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	fmt.Print(banner)

	m, err := monitor.New(cfg, rootLog)
	if err != nil {
		rootLog.Error("Failed to create monitor", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *testNotify {
		if !m.Notifier().HasNotifiers() {
			rootLog.Warn("No notification providers are enabled")
			return
		}
		m.Notifier().SendTest(ctx)
		rootLog.Info("Test notification sent")
		return
	}

	go func() {
		<-ctx.Done()
		rootLog.Info("Received shutdown signal")
		time.AfterFunc(30*time.Second, func() {
			rootLog.Error("Graceful shutdown timed out, forcing exit")
			os.Exit(1)
		})
	}()

	if err := m.Run(ctx); err != nil {
		rootLog.Error("Monitor failed", "error", err)
		os.Exit(1)
	}

	rootLog.Info("Shutdown complete. Goodbye!")
}
