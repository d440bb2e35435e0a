// Command canteenctl is the operator CLI: schema, seed data, stock and the
// expiry sweep, run directly against Postgres.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MikeMC777/canteen-ordering/internal/config"
	"github.com/MikeMC777/canteen-ordering/internal/db"
	"github.com/MikeMC777/canteen-ordering/internal/logging"
)

var Version = "dev"

var (
	dsnFlag string
	verbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "canteenctl",
		Short:         "Operate the canteen ordering database",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "Postgres DSN (default $POSTGRES_DSN)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stdout")

	root.AddCommand(migrateCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(stockCmd())
	root.AddCommand(hashTokenCmd())
	return root
}

// env bundles what every database command needs.
type env struct {
	cfg  config.Config
	log  *zap.Logger
	pool *pgxpool.Pool
}

func (e *env) close() {
	if e.pool != nil {
		e.pool.Close()
	}
	_ = e.log.Sync()
}

func connect(ctx context.Context) (*env, error) {
	cfg := config.Load()
	if dsnFlag != "" {
		cfg.PostgresDSN = dsnFlag
	}
	log := zap.NewNop()
	if verbose {
		l, err := logging.NewLogger("canteenctl", cfg.Env, cfg.LogFile)
		if err != nil {
			return nil, err
		}
		log = l
	}
	pool, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, pool: pool}, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
