package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/queue/streams"
	"github.com/mohammad-safakhou/sitechat/internal/runtime"
	"github.com/mohammad-safakhou/sitechat/internal/worker"
)

func workerCMD() *cobra.Command {
	var name string
	var cmd = &cobra.Command{
		Use:   "worker",
		Short: "Consume scrape jobs and ingest sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx, cancel := signalContext()
			defer cancel()

			deps, err := runtime.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			stream, group := cfg.Queue.Stream, cfg.Queue.Group
			if err := streams.EnsureGroup(ctx, deps.Redis, stream, group); err != nil {
				return fmt.Errorf("ensure group: %w", err)
			}
			if name == "" {
				host, _ := os.Hostname()
				name = fmt.Sprintf("worker-%s-%s", host, uuid.NewString()[:8])
			}
			logger := log.New(os.Stdout, "[WORKER] ", log.LstdFlags)
			consumer := streams.NewConsumer(deps.Redis, deps.Registry, group, name, logger)
			processor := worker.NewProcessor(logger, deps.Store, deps.Ingest, consumer, stream, cfg.Queue.Block, cfg.Queue.Count)

			logger.Printf("consuming %s as %s/%s", stream, group, name)
			return processor.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "consumer name (default worker-<host>-<id>)")
	return cmd
}
