package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "invoicectl",
		Usage: "draft, manage and export invoices against an invoiced server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   "localhost:8080",
				Usage:   "invoiced gRPC address",
				EnvVars: []string{"INVOICED_ADDR"},
			},
		},
		Commands: []*cli.Command{
			draftCommand(),
			listCommand(),
			getCommand(),
			statusCommand(),
			deleteCommand(),
			restoreCommand(),
			exportCommand(),
			healthCommand(),
			extractCommand(),
			batchCommand(logger),
			dbCommand(logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		if _, werr := fmt.Fprintf(os.Stderr, "Error: %v\n", err); werr != nil {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}
