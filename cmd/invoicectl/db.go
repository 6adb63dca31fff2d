package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	repo "github.com/joseph-ayodele/invoice-drafter/internal/repository"
)

// dbCommand works on the store directly, using the same env/CONFIG_FILE
// settings as invoiced.
func dbCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "store maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "health",
				Usage: "ping the configured store",
				Action: func(c *cli.Context) error {
					db, err := openStore(c, logger)
					if err != nil {
						return err
					}
					defer db.Close(logger)
					if err := db.HealthCheck(c.Context, time.Second); err != nil {
						return fmt.Errorf("DB health: FAIL (%w)", err)
					}
					fmt.Println("DB health: OK")
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "apply pending schema migrations",
				Action: func(c *cli.Context) error {
					db, err := openStore(c, logger)
					if err != nil {
						return err
					}
					defer db.Close(logger)
					if err := repo.Migrate(c.Context, db, logger); err != nil {
						return err
					}
					fmt.Println("migrations applied")
					return nil
				},
			},
		},
	}
}

func openStore(c *cli.Context, logger *slog.Logger) (*repo.DB, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, err
	}
	return repo.Open(c.Context, repo.Config{
		Driver:      cfg.Store.Driver,
		Path:        cfg.Store.Path,
		DSN:         cfg.Store.DSN,
		MaxConns:    2,
		DialTimeout: cfg.Store.DialTimeout,
	}, logger)
}
