// -- cmd/run.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/internal/browser"
	"github.com/xkilldash9x/metaxg-cli/internal/config"
	"github.com/xkilldash9x/metaxg-cli/internal/notification"
	"github.com/xkilldash9x/metaxg-cli/internal/observability"
	"github.com/xkilldash9x/metaxg-cli/internal/orchestrator"
	"github.com/xkilldash9x/metaxg-cli/internal/output"
	"github.com/xkilldash9x/metaxg-cli/internal/portal"
	"github.com/xkilldash9x/metaxg-cli/internal/reporting"
	"github.com/xkilldash9x/metaxg-cli/internal/sharepoint"
	"github.com/xkilldash9x/metaxg-cli/internal/store"
)

// newRunCmd creates and configures the `run` command, the full registration
// workflow: fetch new hires, resolve photos, log in, register and verify each
// person, then write the manifest, reports and summary email.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Registers the pending new hires in the MetaX portal",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags that override config file / env values.
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from Execute (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			cfg.Run.InputFile, _ = cmd.Flags().GetString("input")
			if cfg.Run.InputFile != "" && !filepath.IsAbs(cfg.Run.InputFile) && cfg.Input.QueueDir != "" {
				cfg.Run.InputFile = filepath.Join(cfg.Input.QueueDir, cfg.Run.InputFile)
			}
			cfg.Run.DryRun, _ = cmd.Flags().GetBool("dry-run")
			cfg.Run.NoEmail, _ = cmd.Flags().GetBool("no-email")
			cfg.Run.RetroactiveDays, _ = cmd.Flags().GetInt("retroactive-days")
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.RequireCredentials(); err != nil {
				return err
			}

			executionID := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
			startedAt := time.Now()
			logger.Info("Starting registration run",
				zap.String("execution_id", executionID),
				zap.Bool("dry_run", cfg.Run.DryRun),
				zap.String("input_file", cfg.Run.InputFile),
				zap.Int("retroactive_days", cfg.Run.RetroactiveDays),
			)

			components, err := initializeRunComponents(ctx, cfg, executionID, startedAt, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize run components: %w", err)
			}
			defer components.Shutdown()

			if err := components.Orchestrator.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Run aborted gracefully", zap.String("execution_id", executionID))
					return fmt.Errorf("run aborted by user signal")
				}
				logger.Error("Run failed", zap.Error(err), zap.String("execution_id", executionID))
				return err
			}

			logger.Info("Run completed", zap.String("execution_id", executionID))
			return nil
		},
	}

	runCmd.Flags().String("input", "", "Name-list file overriding the admission-date query.")
	runCmd.Flags().Bool("dry-run", false, "Fetch and report only; never touch the portal forms.")
	runCmd.Flags().Bool("no-email", false, "Skip the end-of-run summary email.")
	runCmd.Flags().Bool("headless", false, "Run Chrome headless. The CAPTCHA step needs a visible window.")
	runCmd.Flags().IntP("retroactive-days", "r", 0, "Also include admissions up to N days back.")

	return runCmd
}

// runComponents holds initialized services for one run.
type runComponents struct {
	Session      *browser.Session
	DBPool       *pgxpool.Pool
	Orchestrator *orchestrator.Orchestrator
}

// Shutdown closes the browser and the database pool.
func (rc *runComponents) Shutdown() {
	if rc.Session != nil {
		rc.Session.Close()
	}
	if rc.DBPool != nil {
		rc.DBPool.Close()
	}
}

// initializeRunComponents handles dependency injection for the workflow.
func initializeRunComponents(ctx context.Context, cfg *config.Config, executionID string, startedAt time.Time, logger *zap.Logger) (*runComponents, error) {
	components := &runComponents{}

	// 1. Database and employee store.
	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	components.DBPool = dbPool

	employeeStore, err := store.New(ctx, dbPool, cfg.Database, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize employee store: %w", err)
	}

	// 2. Artifact sink and reporting.
	manager := output.NewManager(executionID, cfg.Output, startedAt, logger)
	reporter := reporting.New(manager, logger)

	// 3. Photos, local-first with the SharePoint library as fallback.
	var library sharepoint.Library
	if cfg.SharePoint.SiteURL != "" {
		library = sharepoint.NewClient(cfg.SharePoint, logger)
	} else {
		logger.Info("SharePoint not configured, using local photos only")
	}
	fetcher := sharepoint.NewFetcher(library, cfg.SharePoint, []string{cfg.Photos.Dir}, logger)

	// 4. Browser session and portal client.
	session, err := browser.NewSession(ctx, cfg.Browser, logger)
	if err != nil {
		return components, fmt.Errorf("failed to start browser: %w", err)
	}
	components.Session = session

	client := portal.NewClient(session, cfg.Portal, manager, logger)

	// 5. Notification.
	sender := notification.NewSender(cfg.Email, logger)

	// 6. Orchestrator.
	components.Orchestrator = orchestrator.New(orchestrator.Deps{
		Config: cfg,
		Phases: orchestrator.Phases{
			Bootstrapper: client,
			Scanner:      client,
			Filler:       client,
			Verifier:     client,
			Navigator:    client,
		},
		Source:   employeeStore,
		Photos:   fetcher,
		Sink:     manager,
		Reporter: reporter,
		Email:    sender,
		Logger:   logger,
	}, executionID, startedAt)

	return components, nil
}
