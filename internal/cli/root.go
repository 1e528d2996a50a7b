package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"resume_rewards/internal/catalog"
	"resume_rewards/internal/config"
	"resume_rewards/internal/db"
	"resume_rewards/internal/logger"
	"resume_rewards/internal/repository"
	"resume_rewards/internal/service"

	"github.com/spf13/cobra"
)

// env is what ledger commands operate on.
type env struct {
	store      repository.LedgerStore
	catalog    *catalog.Catalog
	economy    *service.EconomyService
	onboarding *service.OnboardingService
	close      func()
}

// openEnv connects to the configured Postgres ledger. Tests replace it.
var openEnv = func(ctx context.Context, cfg *config.Config) (*env, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	store := repository.NewLedgerRepository(pool, cfg.LedgerMaxRetries)
	return newEnv(store, cat, cfg, pool.Close), nil
}

func newEnv(store repository.LedgerStore, cat *catalog.Catalog, cfg *config.Config, closeFn func()) *env {
	economy := service.NewEconomyService(store, cat, service.WithAISuggestionCost(cfg.AISuggestionCost))
	referrals := service.NewReferralService(store, economy)
	return &env{
		store:      store,
		catalog:    cat,
		economy:    economy,
		onboarding: service.NewOnboardingService(store, economy, referrals),
		close:      closeFn,
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// withEnv loads config, opens the ledger and runs fn.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx, cfg)
	if err != nil {
		return err
	}
	if e.close != nil {
		defer e.close()
	}
	return fn(ctx, e)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewRootCmd builds the pointsctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pointsctl",
		Short:         "Operate the resume rewards ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			logger.InitWriter(cmd.ErrOrStderr(), level, false)
		},
	}
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newMigrateCmd(),
		newAccountCmd(),
		newReconcileCmd(),
		newAdjustCmd(),
		newRefundCmd(),
		newBadgeCmd(),
		newTemplateCmd(),
		newCatalogCmd(),
	)
	return root
}

// Execute runs pointsctl and reports the error on stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}
