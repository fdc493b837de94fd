package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"live-trivia-service/internal/config"
	"live-trivia-service/internal/infra/memory"
	"live-trivia-service/internal/infra/postgres"
)

// NewSeedCmd loads question banks from a YAML file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert question banks from a YAML file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			configureLogging(cfg.Log)
			if file == "" {
				file = cfg.Bank.File
			}
			if file == "" {
				return fmt.Errorf("no bank file given")
			}

			banks, err := memory.ReadBankFile(file)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			db, err := openBunDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.NewBankWriter(db).Upsert(cmd.Context(), banks...); err != nil {
				return err
			}
			log.Info().Int("banks", len(banks)).Str("file", file).Msg("question banks seeded")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML bank file (defaults to bank.file from config)")
	return cmd
}
