package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/credlink/tokenvault/config"
	"github.com/credlink/tokenvault/domain"
	"github.com/credlink/tokenvault/internal/federation"
	"github.com/credlink/tokenvault/log"
	"github.com/credlink/tokenvault/mongodb"
	"github.com/credlink/tokenvault/services"
)

var (
	cfgFile   string
	verbose   bool
	appLogger log.Logger
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vaultctl",
	Short: "vaultctl is a CLI tool to operate the token vault",
	Long:  `A command-line interface for inspecting and refreshing federated token records stored by tokenvault.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		appLogger = log.NewZerologAdapter(level, true)

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			appLogger.Error(cmd.Context(), "Failed to load configuration", err)
			return err
		}
		appConfig = cfg
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is looked up in /etc/tokenvault and $HOME/.tokenvault)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newEngine connects to the store and wires a lifecycle engine for
// one-shot command use. Callers must invoke the returned cleanup.
func newEngine(ctx context.Context) (*services.TokenLifecycleService, func(), error) {
	if err := mongodb.InitMongoDB(ctx, appConfig.MongoURI, appConfig.MongoDBName); err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	db := mongodb.GetDB()

	tokenRepo, err := mongodb.NewTokenRepositoryMongo(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	legacyRepo := mongodb.NewLegacyIdentityRepositoryMongo(db)

	registry := federation.NewRegistry(appConfig)
	engine := services.NewTokenLifecycleService(tokenRepo, legacyRepo, registry, appConfig, appLogger)

	cleanup := func() {
		registry.Stop()
		mongodb.CloseMongoDB(ctx)
	}
	return engine, cleanup, nil
}

func printRecord(record *domain.TokenRecord) {
	status := "active"
	if record.Failed {
		status = "failed"
	}
	fmt.Printf("%s\t%s\t%s\texpires %s\t%s\n",
		record.UserKey, record.ProviderType, record.ProviderID,
		record.ExpiresAt.Format("2006-01-02 15:04:05 MST"), status)
}
