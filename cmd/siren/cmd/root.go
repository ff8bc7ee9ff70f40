package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/solatis/siren/internal/catalog"
	"github.com/solatis/siren/internal/core/api"
	"github.com/solatis/siren/internal/core/config"
	"github.com/solatis/siren/internal/core/db"
	"github.com/solatis/siren/internal/siren"
)

// Version is the CLI release.
const Version = "0.1.0"

var (
	configFile string
	logLevel   string
	logFormat  string

	// v collects flag bindings; config.LoadConfigWith layers env, file
	// and defaults beneath them.
	v = viper.New()

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:     "siren",
	Short:   "Siren hypermedia catalog service",
	Long:    `siren serves a course catalog as Siren hypermedia documents over HTTP and gRPC.`,
	Version: Version,

	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path")
	flags.String("db-url", "", "database connection URL (sqlite://path or postgres://...)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "json", "log format (json, text)")
	_ = v.BindPFlag("database.url", flags.Lookup("db-url"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds a zap logger writing to stderr.
func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "text":
		cfg = zap.NewDevelopmentConfig()
		cfg.Development = false
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf("invalid --log-format %q (use json or text)", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func loadConfig() (*config.ServiceConfig, error) {
	cfg, err := config.LoadConfigWith(v, configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openDatabase opens the configured database and loads its named queries.
// The caller closes the returned handle.
func openDatabase(cfg *config.ServiceConfig) (*sqlx.DB, *db.Queries, error) {
	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}

// requireMigrated refuses to run against an outdated schema.
func requireMigrated(database *sqlx.DB) error {
	pending, err := db.Pending(database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	if len(pending) > 0 {
		return fmt.Errorf("%d migration(s) not applied (%s) - run 'siren migrate' first", len(pending), pending[0])
	}
	return nil
}

// newService wires store, resolver and service from cfg.
func newService(cfg *config.ServiceConfig, database *sqlx.DB, queries *db.Queries) (*api.Service, error) {
	opts := []siren.Option{siren.WithMaxDepth(cfg.Siren.MaxDepth)}
	if cfg.Siren.InheritClassSuppression {
		opts = append(opts, siren.WithInheritedClassSuppression())
	}
	resolver, err := catalog.NewResolver(logger.Named("siren"), opts...)
	if err != nil {
		return nil, err
	}
	store := catalog.NewStore(queries, logger.Named("catalog"))
	return api.NewService(store, resolver, logger, api.WithHealthCheck(database.PingContext))
}
