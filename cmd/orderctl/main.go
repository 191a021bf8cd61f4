package main

import (
	"context"
	"fmt"
	"os"

	"github.com/example/order-engine/internal/app"
	"github.com/example/order-engine/internal/command"
	"github.com/example/order-engine/internal/config"
	"github.com/example/order-engine/internal/logging"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "orderctl",
		Usage: "inspect and change orders from the terminal",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "approve every side effect without asking"},
		},
		Commands: []*cli.Command{
			validateCommand(),
			priceCommand(),
			diffCommand(),
			editCommand(),
			planCommand(),
			transitionCommand(),
			retryCommand(),
		},
	}
}

// withEngine opens the configured stores, runs fn against a command handler
// and closes the stores again
func withEngine(c *cli.Context, fn func(ctx context.Context, h *command.Handler) error) error {
	cfg, err := config.Load("ORDERS")
	if err != nil {
		return err
	}
	// the terminal is for prompts and results; keep logs quiet
	logger, err := logging.New("warn", cfg.LogFormat)
	if err != nil {
		return err
	}
	logger.SetOutput(c.App.ErrWriter)

	ctx := c.Context
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	return fn(ctx, app.NewEngine(stores.Events, confirmerFor(c), logger))
}
