package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lremane/gitlab-2-forge-migration/internal/config"
	"github.com/lremane/gitlab-2-forge-migration/internal/forgejo"
	"github.com/lremane/gitlab-2-forge-migration/internal/gitlab"
	"github.com/lremane/gitlab-2-forge-migration/internal/logging"
	"github.com/lremane/gitlab-2-forge-migration/internal/migration"
	"github.com/lremane/gitlab-2-forge-migration/internal/report"
)

var (
	flagUsers    bool
	flagGroups   bool
	flagProjects bool
	flagAll      bool
	flagNotify   bool
	flagFromCSV  string
)

var rootCmd = &cobra.Command{
	Use:   "migrator",
	Short: "Migrate users, groups and projects from GitLab to Forgejo",
	Long: `migrator copies users, groups and projects from a GitLab instance
into a Forgejo instance. Every entity is checked against Forgejo before
it is created, so an interrupted run can simply be restarted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVar(&flagUsers, "users", false, "Migrate user accounts and their SSH keys")
	rootCmd.Flags().BoolVar(&flagGroups, "groups", false, "Migrate groups as organizations, including members")
	rootCmd.Flags().BoolVar(&flagProjects, "projects", false, "Migrate projects with collaborators, labels, milestones and issues")
	rootCmd.Flags().BoolVar(&flagAll, "all", false, "Migrate users, groups and projects")
	rootCmd.Flags().BoolVar(&flagNotify, "notify", false, "Send notification mails to users created by the user pass")
	rootCmd.Flags().StringVar(&flagFromCSV, "from-csv", "", "Restrict the project pass to the project urls listed in this csv file")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	sel := migration.Selection{
		Users:    flagUsers || flagAll,
		Groups:   flagGroups || flagAll,
		Projects: flagProjects || flagAll,
		CSVPath:  flagFromCSV,
	}
	if flagFromCSV != "" {
		sel.Projects = true
	}
	if !sel.Users && !sel.Groups && !sel.Projects {
		logger.Warn("Nothing to do: pass --users, --groups, --projects, --all or --from-csv")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := gitlab.NewClient(gitlab.ClientConfig{
		BaseURL: cfg.GitLab.URL,
		Token:   cfg.GitLab.Token,
		Timeout: time.Duration(cfg.Migration.RequestTimeoutSeconds) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create gitlab client: %w", err)
	}

	target, err := forgejo.NewClient(forgejo.ClientConfig{
		BaseURL:        cfg.Forgejo.URL,
		Token:          cfg.Forgejo.Token,
		Timeout:        time.Duration(cfg.Migration.RequestTimeoutSeconds) * time.Second,
		MigrateTimeout: time.Duration(cfg.Migration.MigrateTimeoutSeconds) * time.Second,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create forgejo client: %w", err)
	}

	// Version handshakes double as credential checks: fail here, before
	// anything has been migrated.
	glVersion, err := source.GetVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach GitLab at %s: %w", cfg.GitLab.URL, err)
	}
	logger.Info(fmt.Sprintf("Connected to GitLab %s (version %s)", cfg.GitLab.URL, glVersion))

	fgVersion, err := target.GetVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach Forgejo at %s: %w", cfg.Forgejo.URL, err)
	}
	logger.Info(fmt.Sprintf("Connected to Forgejo %s (version %s)", cfg.Forgejo.URL, fgVersion))

	store, err := report.Open(cfg.Report, logger)
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer func() { _ = store.Close() }()
	if store != nil {
		logger.Info(fmt.Sprintf("Recording run report %s to %s", store.RunID(), cfg.Report.Type))
	}

	opts := migration.Options{
		GitLabToken:       cfg.GitLab.Token,
		GitLabURL:         cfg.GitLab.URL,
		MigrateAttempts:   cfg.Migration.MigrateAttempts,
		MinAccessLevel:    cfg.Migration.MinAccessLevel,
		PlaceholderDomain: cfg.Migration.PlaceholderDomain,
		ImporterUsername:  cfg.Migration.ImporterUsername,
		EmailCacheSize:    cfg.Migration.EmailCacheSize,
		Notify:            flagNotify,
		Logger:            logger,
	}
	if store != nil {
		opts.Reporter = store
	}

	engine := migration.New(source, target, opts)
	res := engine.Run(ctx, sel)

	if res.WarningCount() > 0 {
		logger.Info(fmt.Sprintf("Migration finished with %d warnings", res.WarningCount()))
	}
	if !res.OK() {
		logger.Error(fmt.Sprintf("Migration finished with %d errors:", res.ErrorCount()))
		for _, tag := range res.Failed() {
			logger.Error(fmt.Sprintf("  - %s", tag))
		}
		return fmt.Errorf("%d entities failed to migrate", res.ErrorCount())
	}

	logger.Info("Migration finished without errors")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
