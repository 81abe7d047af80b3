package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dfryer1193/goplaces/internal/config"
	"github.com/dfryer1193/goplaces/internal/logging"
	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/dfryer1193/goplaces/places/persistence"
	"github.com/dfryer1193/goplaces/shared/db"
	"github.com/dfryer1193/goplaces/shared/db/postgres"
	"github.com/dfryer1193/goplaces/shared/db/sqlite"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "goplaces",
	Short: "Catalog of travel places and their images",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside local development.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads configuration and installs the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore connects the configured record store and applies pending migrations.
func openStore(cfg config.DatabaseConfig) (db.Database, domain.PlaceRepository, error) {
	var database db.Database
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		database = postgres.NewPostgresDB(postgres.NewPostgresConfig(cfg.URL))
	default:
		database = sqlite.NewSQLiteDB(sqlite.NewSQLiteConfig(cfg.SQLitePath))
	}

	if err := database.Connect(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}
	log.Info().Str("driver", cfg.Driver).Msg("Connected to database")

	if strings.ToLower(cfg.Driver) == config.DriverPostgres {
		return database, persistence.NewPostgresPlaceRepository(database.DB()), nil
	}
	return database, persistence.NewSQLitePlaceRepository(database.DB()), nil
}
