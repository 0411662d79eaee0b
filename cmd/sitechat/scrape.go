package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/crawler"
	"github.com/mohammad-safakhou/sitechat/internal/helpers"
)

func scrapeCMD() *cobra.Command {
	var maxPages int
	var cmd = &cobra.Command{
		Use:   "scrape <url>",
		Short: "Crawl a site or sitemap and print the pages as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !helpers.IsHTTPURL(args[0]) {
				return fmt.Errorf("%q is not an absolute http(s) url", args[0])
			}
			cfg := config.LoadConfig(cfgPath)
			ctx, cancel := signalContext()
			defer cancel()

			c := crawler.New(cfg.Crawl, cfg.Limits)
			pages, err := c.ResolveAndScrape(ctx, args[0], maxPages)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pages)
		},
	}
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page budget (0 uses crawl.max_pages)")
	return cmd
}
