package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/runtime"
	srv "github.com/mohammad-safakhou/sitechat/internal/server"
)

func serveCMD() *cobra.Command {
	var port string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if port != "" {
				cfg.Server.Port = port
			}
			ctx, cancel := signalContext()
			defer cancel()

			deps, err := runtime.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer deps.Close()
			return srv.Run(ctx, deps)
		},
	}
	serve.Flags().StringVar(&port, "port", "", "listen port (overrides server.port)")
	return serve
}
