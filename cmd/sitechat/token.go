package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/runtime"
)

func tokenCMD() *cobra.Command {
	var subject string
	var ttl time.Duration
	var cmd = &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token signed with server.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			secret := strings.TrimSpace(cfg.Server.JWTSecret)
			if secret == "" {
				return errors.New("server.jwt_secret is not set")
			}
			tok, err := runtime.SignJWT(subject, []byte(secret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
