package main

import (
	"github.com/dfryer1193/goplaces/shared/db"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, _, err := openStore(cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close()

		version, err := db.CurrentVersion(database.DB())
		if err != nil {
			return err
		}
		log.Info().Int("version", version).Msg("Schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
