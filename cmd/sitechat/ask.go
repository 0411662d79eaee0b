package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/chat"
	"github.com/mohammad-safakhou/sitechat/internal/runtime"
)

func askCMD() *cobra.Command {
	var sessionID string
	var siteID int64
	var noContext bool
	var cmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Run one chat turn against a crawled site",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return chat.ErrEmptyMessage
			}
			cfg := config.LoadConfig(cfgPath)
			ctx, cancel := signalContext()
			defer cancel()

			deps, err := runtime.Build(ctx, cfg, runtime.WithoutQueue())
			if err != nil {
				return err
			}
			defer deps.Close()

			out := cmd.OutOrStdout()
			if noContext {
				fmt.Fprintln(out, deps.Generator.GenerateSimple(ctx, question))
				return nil
			}
			if sessionID == "" && siteID <= 0 {
				return errors.New("--session or --site is required unless --no-context is set")
			}
			res, err := deps.Chat.Chat(ctx, chat.ChatRequest{SessionID: sessionID, SiteID: siteID, Message: question})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, res.BotResponse)
			if len(res.Sources) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for _, s := range res.Sources {
					fmt.Fprintf(out, "  - %s (%s) %.3f\n", s.Title, s.URL, s.Score)
				}
			}
			fmt.Fprintf(out, "\nsession: %s\n", res.SessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "existing chat session id")
	cmd.Flags().Int64Var(&siteID, "site", 0, "site id; opens a new session")
	cmd.Flags().BoolVar(&noContext, "no-context", false, "ask the model directly without retrieval")
	return cmd
}
