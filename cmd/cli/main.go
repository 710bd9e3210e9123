package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/waterwatch/lifedrop/cmd/cli/commands"
	"github.com/waterwatch/lifedrop/internal/config"
	"github.com/waterwatch/lifedrop/pkg/clients/geoclient"
	"github.com/waterwatch/lifedrop/pkg/clients/gmailclient"
	"github.com/waterwatch/lifedrop/pkg/clients/llmclient"
	"github.com/waterwatch/lifedrop/pkg/clients/overpass"
	"github.com/waterwatch/lifedrop/pkg/clients/sheetsclient"
	"github.com/waterwatch/lifedrop/pkg/db"
	"github.com/waterwatch/lifedrop/pkg/postgres"
	"github.com/waterwatch/lifedrop/pkg/sheetssql"
	"github.com/waterwatch/lifedrop/pkg/utils"
	"github.com/waterwatch/lifedrop/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	app     = &commands.AppContext{}
	cleanup []func()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "waterwatch",
		Short: "WaterWatch CLI - community resource alerts and water quality reports",
		Long: `A CLI for posting short-lived community resource alerts (water stations, meals, showers, clinics)
and for collecting and analysing water quality reports.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (selects waterwatch_config.<env>.yaml and .env.<env>)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")

	rootCmd.AddCommand(commands.CreateAlertCmd(app))
	rootCmd.AddCommand(commands.ListAlertsCmd(app))
	rootCmd.AddCommand(commands.VoteCmd(app))
	rootCmd.AddCommand(commands.CommentCmd(app))
	rootCmd.AddCommand(commands.ExportAlertsCmd(app))
	rootCmd.AddCommand(commands.PurgeAlertsCmd(app))
	rootCmd.AddCommand(commands.GeocodeCmd(app))
	rootCmd.AddCommand(commands.SubmitReportCmd(app))
	rootCmd.AddCommand(commands.ListReportsCmd(app))
	rootCmd.AddCommand(commands.ExportReportsCmd(app))
	rootCmd.AddCommand(commands.ImportReportsCmd(app))
	rootCmd.AddCommand(commands.TrendsCmd(app))
	rootCmd.AddCommand(commands.AnalyzeZipCmd(app))
	rootCmd.AddCommand(commands.WaterSourcesCmd(app))
	rootCmd.AddCommand(commands.WaterTipCmd(app))
	rootCmd.AddCommand(commands.AskTipCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, secrets, collaborators and the database
func initApp() error {
	var err error
	app.Ctx = context.Background()
	app.Now = time.Now

	logger, closeLog, err := logging.InitLogger(logging.Options{Env: env, Verbose: verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	cleanup = append(cleanup, func() { _ = closeLog() })

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully", zap.String("backend", app.Cfg.Backend))

	app.Secrets, err = config.LoadSecrets(config.EnvFileName(env))
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	if app.Secrets.OpenAIAPIKey != "" {
		app.Generator = llmclient.NewClient(app.Secrets.OpenAIAPIKey, app.Cfg.OpenAIBaseURL, app.Cfg.OpenAIModel)
		app.Logger.Debug("Text generation client initialized", zap.String("model", app.Cfg.OpenAIModel))
	} else {
		app.Logger.Warn("OPENAI_API_KEY not set, alert creation and analysis are disabled")
	}

	if err := initGeocoder(); err != nil {
		return err
	}

	cacheTTL := time.Duration(app.Cfg.WaterMap.CacheTTLMinutes) * time.Minute
	app.Water = overpass.NewClient(app.Cfg.WaterMap.OverpassURL, cacheTTL, app.Logger)

	var sheets *sheetsclient.Client
	switch app.Cfg.Backend {
	case config.BackendPostgres:
		if err := initPostgres(); err != nil {
			return err
		}
	default:
		sheets, err = initSheets()
		if err != nil {
			return err
		}
	}

	return initNotifier(sheets)
}

func initGeocoder() error {
	if app.Secrets.MapsAPIKey == "" {
		app.Logger.Debug("MAPS_API_KEY not set, geocoding disabled")
		return nil
	}

	client, err := geoclient.NewClient(app.Secrets.MapsAPIKey, "")
	if err != nil {
		return fmt.Errorf("failed to create geocoding client: %w", err)
	}
	app.Geocoder = client

	if app.Cfg.Redis == nil {
		return nil
	}

	app.Logger.Info("Connecting to geocode cache", zap.String("addr", app.Cfg.Redis.Addr))
	redisClient, err := geoclient.NewRedisClient(app.Ctx, app.Cfg.Redis.Addr, app.Secrets.RedisPassword, app.Cfg.Redis.DB)
	if err != nil {
		app.Logger.Warn("Geocode cache unavailable, continuing without it", zap.Error(err))
		return nil
	}
	cleanup = append(cleanup, func() { _ = redisClient.Close() })

	ttl := time.Duration(app.Cfg.Redis.CacheTTLHours) * time.Hour
	app.Geocoder = geoclient.NewCachedGeocoder(client, geoclient.NewRedisCache(redisClient, ttl), app.Logger)
	return nil
}

func initPostgres() error {
	dsn, err := app.Secrets.RequireDatabaseURL()
	if err != nil {
		return err
	}

	app.Logger.Info("Connecting to postgres")
	pg, err := postgres.NewDB(app.Ctx, dsn, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	cleanup = append(cleanup, pg.Close)

	applied, err := pg.RunMigrations(app.Ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) > 0 {
		app.Logger.Info("Database schema updated", zap.Strings("migrations", applied))
	}

	app.Database = pg
	app.Logger.Info("Database initialized successfully")
	return nil
}

func initSheets() (*sheetsclient.Client, error) {
	app.Logger.Info("Loading OAuth client configuration")
	oauthCfg, err := config.LoadOAuthClientWithEnv(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	app.Logger.Info("Initializing sheets client")
	sheets, err := sheetsclient.NewClient(app.Ctx, oauthCfg, env)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	schema, err := db.Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	app.Logger.Debug("Database schema created", zap.Int("tables", len(schema.Tables)))

	app.Logger.Info("Connecting to database", zap.String("spreadsheet_id", app.Cfg.DatabaseSheetID))
	ssqlDB, err := sheetssql.NewDB(sheets, app.Cfg.DatabaseSheetID, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.Database = db.NewDB(ssqlDB)
	app.Logger.Info("Database initialized successfully")
	return sheets, nil
}

// initNotifier reuses the sheets OAuth token when there is one, otherwise runs the OAuth flow itself
func initNotifier(sheets *sheetsclient.Client) error {
	if len(app.Cfg.Notifications.Recipients) == 0 {
		return nil
	}

	oauthCfg, err := config.LoadOAuthClientWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	tok, err := notifierToken(sheets, oauthCfg)
	if err != nil {
		return err
	}

	app.Logger.Info("Initializing gmail client")
	gmail, err := gmailclient.NewClient(app.Ctx, oauthCfg, tok)
	if err != nil {
		return fmt.Errorf("failed to create gmail client: %w", err)
	}

	app.Notifier = gmailclient.NewReportNotifier(gmail, app.Cfg.Notifications.Recipients, app.Cfg.Notifications.Subject)
	app.Logger.Debug("Report notifications enabled", zap.Int("recipients", len(app.Cfg.Notifications.Recipients)))
	return nil
}

func shutdown() {
	if app.Logger != nil {
		app.Logger.Debug("Shutting down")
	}
	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
	cleanup = nil
}

func notifierToken(sheets *sheetsclient.Client, oauthCfg *config.OAuthClientConfig) (*oauth2.Token, error) {
	if sheets != nil {
		return sheets.Token(), nil
	}

	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}
	token, err := utils.GetTokenWithFlow(app.Ctx, oauthConfig, env)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth token: %w", err)
	}
	return token, nil
}
