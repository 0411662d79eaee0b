package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/runtime"
	"github.com/mohammad-safakhou/sitechat/internal/store"
)

func migrateCMD() *cobra.Command {
	var migDir string
	var migDirDefault = "file://migrations"
	var direction string
	var steps int

	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			dsn, err := runtime.BuildPostgresDSN(cfg)
			if err != nil {
				return err
			}
			if migDir == "" {
				migDir = migDirDefault
			}
			if err := store.Migrate(migDir, dsn, direction, steps); err != nil {
				return err
			}
			log.Printf("migrations %s applied from %s", direction, migDir)
			return nil
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", migDirDefault, "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return migrate
}
