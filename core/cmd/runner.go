package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/menubot/core/bootstrap"
	"github.com/m3rciful/menubot/core/buildinfo"
	coreconfig "github.com/m3rciful/menubot/core/config"
	"github.com/m3rciful/menubot/core/conversation"
	"github.com/m3rciful/menubot/core/logger"
)

// TransportRunner serves conversations for one transport until ctx is done.
type TransportRunner func(ctx context.Context, env Env) error

// Env is what a transport runner receives from the runner.
type Env struct {
	Config    *coreconfig.Config
	Journal   conversation.HandoffRecorder
	StartedAt time.Time
}

// Options describe how to load configuration, bootstrap infrastructure and
// pick the transport. Nil hooks select the defaults.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig     func(path string) (*coreconfig.Config, error)
	Bootstrap      func(ctx context.Context, cfg *coreconfig.Config) (*bootstrap.Result, error)
	ShutdownLogger func() error
	Transports     map[string]TransportRunner
}

// Run loads configuration, bootstraps infrastructure and runs the configured
// transport until SIGINT or SIGTERM.
func Run(opts Options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return RunContext(ctx, opts)
}

// RunContext is Run with a caller-supplied lifetime.
func RunContext(ctx context.Context, opts Options) error {
	startedAt := time.Now()

	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	load := opts.LoadConfig
	if load == nil {
		load = coreconfig.Load
	}
	log.Printf("loading config: %s", cfgPath)
	cfg, err := load(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	transports := opts.Transports
	if transports == nil {
		transports = DefaultTransports()
	}
	run, ok := transports[cfg.Transport]
	if !ok {
		return fmt.Errorf("cmd: no runner for transport %q", cfg.Transport)
	}

	boot := opts.Bootstrap
	if boot == nil {
		boot = func(ctx context.Context, cfg *coreconfig.Config) (*bootstrap.Result, error) {
			return bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
		}
	}
	res, err := boot(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn(logger.Background(), logger.CompDB, "close", slog.String("err", err.Error()))
		}
	}()

	logger.Info(ctx, logger.CompApp, "start",
		slog.String("version", buildinfo.String()),
		slog.String("transport", cfg.Transport),
		slog.Bool("journal", res.DB != nil),
	)

	journal := res.Journal
	if journal == nil {
		journal = conversation.HandoffRecorderFunc(func(context.Context, conversation.Handoff) error { return nil })
	}
	err = run(ctx, Env{Config: cfg, Journal: journal, StartedAt: startedAt})
	logger.Info(logger.Background(), logger.CompApp, "shutdown", slog.String("status", logger.Status(err)))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// NewDispatcher builds the conversation dispatcher from cfg.Bot.
func NewDispatcher(env Env, transport string, sender conversation.Sender) (*conversation.Dispatcher, error) {
	bot := env.Config.Bot
	return conversation.NewDispatcher(conversation.Options{
		Sender:            sender,
		Journal:           env.Journal,
		Transport:         transport,
		InactivityTimeout: bot.InactivityTimeout,
		SendTimeout:       bot.SendTimeout,
		JournalTimeout:    bot.JournalTimeout,
		TriggerWords:      bot.TriggerWords,
		ExitWords:         bot.ExitWords,
	})
}

func logReady(ctx context.Context, env Env) {
	logger.Info(ctx, logger.CompApp, "ready",
		slog.Duration("startup_duration", logger.RoundMS(time.Since(env.StartedAt))),
	)
}
