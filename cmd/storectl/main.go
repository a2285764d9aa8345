// Command storectl administers the store database: catalog seeding, bulk
// stock import and staff accounts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/xenking/combo-store/internal/storage/postgres"
)

func main() {
	lg, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newApp(lg).RunContext(ctx, os.Args); err != nil {
		lg.Error("storectl failed", zap.Error(err))
		cancel()
		os.Exit(1)
	}
}

func newApp(lg *zap.Logger) *cli.App {
	return &cli.App{
		Name:  "storectl",
		Usage: "administer the combo store database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "PostgreSQL connection URL",
				EnvVars:  []string{"STORE_DATABASE_URL", "DATABASE_URL"},
				Required: true,
			},
		},
		Commands: []*cli.Command{
			seedCommand(lg),
			importStockCommand(lg),
			staffCommand(lg),
		},
	}
}

// connect opens the pool and applies pending migrations.
func connect(c *cli.Context, lg *zap.Logger) (*pgxpool.Pool, error) {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(c.Context, c.String("database-url"))
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	if err := postgres.RunMigrations(c.Context, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return pool, nil
}
