package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/chatflow/pkg/cmd"
	"github.com/dukex/chatflow/pkg/endpoint"
	"github.com/dukex/chatflow/pkg/eventbus"
	"github.com/dukex/chatflow/pkg/events"
	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/otelhelper"
	"github.com/dukex/chatflow/pkg/sweeper"
	cli "github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func run(ctx context.Context, command *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.Setup(command.String("log-level"), command.String("log-format")).With("module", "api")

	logger.InfoContext(ctx, "Initializing chatflow API")

	tracer, shutdownTracer, err := otelhelper.NewTracer(ctx, "chatflow-api", command.Bool("tracing"))
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}()

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(context.Background()); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	persistence, closeStates, err := cmd.WithStateStore(ctx, logger, persistence, command.String("state-store"), command.String("redis-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := closeStates(); err != nil {
			logger.Error("Failed to close state store", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger, command.Bool("tracing"))
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	if err := subscribeLifecycleLog(ctx, eventBus, logger); err != nil {
		return err
	}

	configs, err := endpoint.LoadConfigs(command.String("endpoints-file"))
	if err != nil {
		return err
	}

	endpoints, err := endpoint.NewHTTPExecutor(logger, configs)
	if err != nil {
		return err
	}

	timeout := time.Duration(command.Int("workflow-timeout")) * time.Minute

	api := NewAPI(logger, persistence, eventBus, endpoints, tracer, timeout)

	sweep, err := sweeper.New(logger, api.Store(), timeout, sweeper.WithSchedule(command.String("timeout-schedule")))
	if err != nil {
		return err
	}

	if err := sweep.Start(ctx); err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := sweep.Stop(shutdownCtx); err != nil {
			logger.Error("Failed to stop sweeper", "error", err)
		}
	}()

	errCh := make(chan error, 1)

	go func() {
		errCh <- api.Start(command.Int("port"))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down chatflow API")

		if err := api.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		return nil
	}
}

// subscribeLifecycleLog logs every lifecycle event at debug level.
func subscribeLifecycleLog(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	handler := func(ctx context.Context, event any) error {
		logger.DebugContext(ctx, "Lifecycle event", "event", event)

		return nil
	}

	for _, eventType := range []events.EventType{
		events.WorkflowStartedEvent,
		events.WorkflowCompletedEvent,
		events.WorkflowAbandonedEvent,
		events.WorkflowTimedOutEvent,
		events.KeywordExecutedEvent,
	} {
		if err := bus.Handle(eventType, handler); err != nil {
			return err
		}
	}

	return bus.Subscribe(ctx)
}
