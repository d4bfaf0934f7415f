package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sentiboard/internal/config"
	"sentiboard/internal/crawler"
	"sentiboard/internal/dashboard"
	"sentiboard/internal/ioformats"
	"sentiboard/internal/metrics"
	"sentiboard/internal/ranking"
	"sentiboard/pkg/logger"
)

var (
	configPath  string
	logLevel    string
	dumpMetrics bool
)

var rootCmd = &cobra.Command{
	Use:           "sentiboard",
	Short:         "Sentiment dashboard for crawled social media comments",
	Long:          `Loads the comments, ratio and count CSV exports of a crawl/analysis run and prints the dashboard views.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&dumpMetrics, "metrics", false, "print ingestion metrics to stderr on exit")

	rootCmd.AddCommand(reportCmd, crawlCmd, feedbackCmd)
}

// app carries what every command needs.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
}

// run loads configuration and logging, then calls fn with a context that
// is cancelled on SIGINT or SIGTERM.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log, closer, err := logger.Init(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}
	if dumpMetrics {
		defer func() {
			if err := a.metrics.Dump(os.Stderr); err != nil {
				log.Errorf("dump metrics: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}

func (a *app) fetcher() *crawler.HTTPClient {
	f := a.cfg.Fetch
	return crawler.NewHTTPClient(f.Timeout, f.DialTimeout, f.SizeCap)
}

func (a *app) backend() (*crawler.Client, error) {
	b := a.cfg.Backend
	return crawler.NewClient(crawler.ClientOptions{
		BaseURL:       b.URL,
		Timeout:       b.Timeout,
		DialTimeout:   a.cfg.Fetch.DialTimeout,
		RatePerSecond: b.QPS,
		Burst:         b.Burst,
		Retries:       b.Retries,
		Backoff:       b.Backoff,
	}, a.log)
}

// session builds a dashboard session; cr may be nil.
func (a *app) session(cr dashboard.Crawler) (*dashboard.Session, error) {
	label, err := a.cfg.CloudLabel()
	if err != nil {
		return nil, err
	}
	d := a.cfg.Dashboard
	opts := dashboard.Options{
		Parse: ioformats.Options{
			Encoding:    a.cfg.CSV.Encoding,
			StripMarkup: a.cfg.CSV.StripMarkup,
		},
		Policy:   a.cfg.UnknownPolicy(),
		PageSize: d.PageSize,
		Ranking: ranking.Options{
			TopK:          d.TopK,
			PerOccurrence: d.PerOccurrence,
			MaxWeight:     d.MaxWeight,
		},
		CloudLabel:   label,
		FetchTimeout: a.cfg.Fetch.Timeout,
		Resolver: crawler.Resolver{
			Base:       a.cfg.Backend.DataBase,
			TrimPrefix: a.cfg.Backend.TrimPrefix,
		},
	}
	return dashboard.New(a.fetcher(), cr, opts, a.log, a.metrics), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
