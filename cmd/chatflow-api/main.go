// Package main provides the chatflow API server.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort            = 9091
	defaultTimeoutMinutes  = 30
	defaultTimeoutSchedule = "*/5 * * * *"
)

func main() {
	command := &cli.Command{
		Name:                  "chatflow-api",
		Usage:                 "Route chat messages through conversational workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://dir or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "state-store",
				Usage:   "Where workflow state lives (database, redis)",
				Value:   "database",
				Sources: cli.EnvVars("STATE_STORE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL for the redis state store",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "endpoints-file",
				Usage:    "JSON file with the outbound endpoint configurations",
				Required: true,
				Sources:  cli.EnvVars("ENDPOINTS_FILE"),
			},
			&cli.IntFlag{
				Name:    "workflow-timeout",
				Usage:   "Minutes a workflow may stay idle before it is abandoned",
				Value:   defaultTimeoutMinutes,
				Sources: cli.EnvVars("WORKFLOW_TIMEOUT_MINUTES"),
			},
			&cli.StringFlag{
				Name:    "timeout-schedule",
				Usage:   "Cron expression for the idle workflow sweep",
				Value:   defaultTimeoutSchedule,
				Sources: cli.EnvVars("TIMEOUT_SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
