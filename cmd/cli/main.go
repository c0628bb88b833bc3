package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fieldcrew/shiftlog/cmd/cli/commands"
	"github.com/fieldcrew/shiftlog/internal/config"
	"github.com/fieldcrew/shiftlog/pkg/activeguard"
	"github.com/fieldcrew/shiftlog/pkg/clients/sheetsclient"
	"github.com/fieldcrew/shiftlog/pkg/core/sessions"
	"github.com/fieldcrew/shiftlog/pkg/db"
	"github.com/fieldcrew/shiftlog/pkg/evidence"
	"github.com/fieldcrew/shiftlog/pkg/identity"
	"github.com/fieldcrew/shiftlog/pkg/postgres"
	"github.com/fieldcrew/shiftlog/pkg/sqlite"
	"github.com/fieldcrew/shiftlog/pkg/utils"
	"github.com/fieldcrew/shiftlog/pkg/utils/logging"
)

var (
	env      string
	workerID string
	app      = &commands.AppContext{}
	closers  []func() error
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	app.Ctx = ctx

	rootCmd := &cobra.Command{
		Use:   "shiftlog",
		Short: "Shiftlog - field staff check-in and attendance",
		Long:  `A CLI tool for starting, pausing and ending shifts on site, and for reporting worked hours.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
		SilenceUsage: true,
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVar(&workerID, "as", "", "Act as this worker id instead of the configured workerID")

	rootCmd.AddCommand(commands.CheckInCmd(app))
	rootCmd.AddCommand(commands.CheckOutCmd(app))
	rootCmd.AddCommand(commands.PauseCmd(app))
	rootCmd.AddCommand(commands.ChecklistCmd(app))
	rootCmd.AddCommand(commands.NotesCmd(app))
	rootCmd.AddCommand(commands.StatusCmd(app))
	rootCmd.AddCommand(commands.ReportCmd(app))
	rootCmd.AddCommand(commands.RecordsCmd(app))
	rootCmd.AddCommand(commands.ExportCmd(app))
	rootCmd.AddCommand(commands.PublishCmd(app))
	rootCmd.AddCommand(commands.SitesCmd(app))
	rootCmd.AddCommand(commands.ListWorkersCmd(app))
	rootCmd.AddCommand(commands.ImportWorkersCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		shutdown()
		os.Exit(1)
	}
}

// initApp sets up logger, config, store, guard, evidence storage and the session manager
func initApp() error {
	var err error
	app.Out = os.Stdout
	app.Now = time.Now

	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if workerID != "" {
		app.Cfg.WorkerID = workerID
	}
	app.Logger.Debug("Configuration loaded successfully", zap.String("store", app.Cfg.Store))

	app.Location, err = app.Cfg.Location()
	if err != nil {
		return err
	}

	app.Database, err = openStore(app.Ctx, app.Cfg, app.Logger)
	if err != nil {
		return err
	}
	closers = append(closers, app.Database.Close)

	guard, err := openGuard(app.Ctx, app.Cfg, app.Logger)
	if err != nil {
		return err
	}

	// Google services share one OAuth token, fetched only when something needs it
	var evidenceStore evidence.Store
	if app.Cfg.UsesGoogle() {
		app.Logger.Info("Loading OAuth client configuration")
		oauthCfg, err := config.LoadOAuthClientWithEnv(env)
		if err != nil {
			return fmt.Errorf("failed to load OAuth client config: %w", err)
		}

		httpClient, err := utils.HTTPClient(app.Ctx, oauthCfg, env, app.Logger)
		if err != nil {
			return fmt.Errorf("failed to authorize Google client: %w", err)
		}

		if app.Cfg.Evidence.Backend == config.EvidenceDrive {
			app.Logger.Info("Initializing Drive evidence store", zap.String("folder_id", app.Cfg.Evidence.DriveFolderID))
			evidenceStore, err = evidence.NewDriveStore(app.Ctx, httpClient, app.Cfg.Evidence.DriveFolderID)
			if err != nil {
				return fmt.Errorf("failed to create drive evidence store: %w", err)
			}
		}

		if app.Cfg.Report.SheetID != "" || app.Cfg.Roster != nil {
			app.Logger.Info("Initializing sheets client")
			app.SheetsClient, err = sheetsclient.NewClient(app.Ctx, httpClient)
			if err != nil {
				return fmt.Errorf("failed to create sheets client: %w", err)
			}
			if app.Cfg.Roster != nil {
				app.RosterSheet = app.SheetsClient
			}
		}
	}

	if app.Cfg.Evidence.Backend == config.EvidenceDir {
		evidenceStore, err = evidence.NewDirStore(app.Cfg.Evidence.Dir)
		if err != nil {
			return fmt.Errorf("failed to create evidence directory: %w", err)
		}
	}

	app.Identity = identity.NewContext(identity.StoreProvider{Store: app.Database, WorkerID: app.Cfg.WorkerID})
	w, err := app.Identity.Refresh(app.Ctx)
	if err != nil {
		return err
	}
	app.Logger.Info("Acting as worker", zap.String("worker_id", w.ID), zap.String("role", string(w.Role)))

	app.Manager = sessions.NewManager(app.Database, evidenceStore, guard, app.Now, app.Logger, sessions.Policy{
		RequireEndEvidence: app.Cfg.RequireEndEvidence,
		Location:           app.Location,
	})

	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.Database, error) {
	workers := workerRows(cfg.Workers)

	switch cfg.Store {
	case config.StorePostgres:
		logger.Info("Connecting to database")
		pg, err := postgres.NewDB(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pg.RunMigrations(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		if err := pg.UpsertWorkers(ctx, workers); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil

	case config.StoreSQLite:
		logger.Info("Opening database", zap.String("path", cfg.SQLitePath))
		lite, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := lite.UpsertWorkers(ctx, workers); err != nil {
			lite.Close()
			return nil, err
		}
		return lite, nil

	default:
		logger.Warn("Using in-memory store, shifts are lost on exit")
		return db.NewMemStore(workers...), nil
	}
}

func openGuard(ctx context.Context, cfg *config.Config, logger *zap.Logger) (activeguard.Guard, error) {
	if cfg.Redis == nil {
		return activeguard.NewLocal(), nil
	}

	logger.Info("Connecting to redis", zap.String("addr", cfg.Redis.Addr))
	client, err := activeguard.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	closers = append(closers, client.Close)
	return activeguard.NewRedis(client, cfg.Redis.Prefix, activeguard.DefaultTTL), nil
}

func workerRows(workers []config.WorkerConfig) []db.WorkerRow {
	rows := make([]db.WorkerRow, len(workers))
	for i, w := range workers {
		rows[i] = db.WorkerRow{ID: w.ID, Name: w.Name, Role: w.Role, Email: w.Email, Phone: w.Phone}
	}
	return rows
}

func shutdown() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil && app.Logger != nil {
			app.Logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	closers = nil
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
