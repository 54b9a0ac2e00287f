package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/genricoloni/mprisbar/internal/artwork"
	"github.com/genricoloni/mprisbar/internal/config"
	"github.com/genricoloni/mprisbar/internal/domain"
	"github.com/genricoloni/mprisbar/internal/engine"
	"github.com/genricoloni/mprisbar/internal/executor"
	"github.com/genricoloni/mprisbar/internal/monitor"
	"github.com/genricoloni/mprisbar/internal/output"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const stopTimeout = 5 * time.Second

// AppOptions wires the daemon's dependency graph
var AppOptions = fx.Options(
	// Logger configuration
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	// Provide dependencies
	fx.Provide(
		newLogLevel,
		newLogger,
		fx.Annotate(config.NewAppConfig, fx.As(new(domain.Config))),
		fx.Annotate(monitor.NewMprisMonitor, fx.As(new(domain.Monitor))),
		fx.Annotate(output.NewStdoutWriter, fx.As(new(domain.Emitter))),
		fx.Annotate(artwork.NewSymlinkCache, fx.As(new(domain.ArtworkCache))),
		fx.Annotate(executor.NewExecutor, fx.As(new(domain.Executor))),
		engine.NewEngine,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(AppOptions)

	// SIGABRT is handled too so the bar is cleared on abort
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGABRT)
	defer cancel()

	// Start the application
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mprisbar: %v\n", err)
		os.Exit(1)
	}

	// Wait for a termination signal
	<-ctx.Done()

	// Stop the application gracefully
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "mprisbar: %v\n", err)
		os.Exit(1)
	}
}

// newLogLevel creates the shared level so config can switch on debug logging
func newLogLevel() zap.AtomicLevel {
	return zap.NewAtomicLevelAt(zapcore.InfoLevel)
}

// newLogger creates a production logger on stderr; stdout carries the status feed
func newLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// registerHooks sets up application lifecycle hooks
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, eng *engine.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := eng.Start(ctx); err != nil {
				logger.Error("Failed to start engine", zap.Error(err))
				return err
			}
			logger.Info("mprisbar daemon started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			err := eng.Stop(ctx)
			_ = logger.Sync()
			return err
		},
	})
}
