package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sentiboard/internal/crawler"
	"sentiboard/internal/models"
)

var (
	crawlReq  models.CrawlRequest
	crawlView viewFlags
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Trigger a crawl on the backend, then load and print its exports",
	Example: `  sentiboard crawl --account 침착맨 --start 2024-03-01 --end 2024-03-07 --platform youtube
  sentiboard crawl --account natgeo --start 2024-01-01 --end 2024-01-31 --platform instagram --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, a *app) error {
			client, err := a.backend()
			if err != nil {
				return err
			}
			s, err := a.session(client)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.Search(ctx, crawlReq)
			if resp == nil {
				var ve *crawler.ValidationError
				if errors.As(err, &ve) {
					return fmt.Errorf("search form: %w", err)
				}
				return fmt.Errorf("crawl request failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "crawled %s comments for %s on %s\n\n",
				humanize.Comma(int64(resp.CommentsCount)), crawlReq.Account, crawlReq.Platform)
			if err != nil {
				if allFailed(s, resp.Files) {
					return err
				}
				a.log.Warnf("some sources failed: %v", err)
			}
			return present(ctx, cmd.OutOrStdout(), s, crawlView, a)
		})
	},
}

func init() {
	f := crawlCmd.Flags()
	f.StringVar(&crawlReq.Account, "account", "", "account or channel to crawl")
	f.StringVar(&crawlReq.StartDate, "start", "", "first day, YYYY-MM-DD")
	f.StringVar(&crawlReq.EndDate, "end", "", "last day, YYYY-MM-DD")
	f.StringVar((*string)(&crawlReq.Platform), "platform", "", "youtube, instagram or facebook")
	crawlView.register(crawlCmd)
}
