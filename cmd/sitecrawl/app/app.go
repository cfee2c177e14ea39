package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"sitecrawl/crawler"
	"sitecrawl/internal/config"
	"sitecrawl/internal/limiter"
	"sitecrawl/internal/logging"
	"sitecrawl/internal/server"
)

// Run executes the CLI. The crawl and search commands write the JSON report to stdout;
// logs go to stderr.
func Run(args []string, stdout, stderr io.Writer, client *http.Client, clock limiter.Timer) error {
	app := cli.NewApp()
	app.Name = "sitecrawl"
	app.Usage = "breadth-first website crawler with term search"
	app.UsageText = "sitecrawl command [command options] <url> [term]"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Commands = []cli.Command{
		{
			Name:      "crawl",
			Usage:     "crawl a site and print the page report",
			ArgsUsage: "<url>",
			Flags:     crawlFlags(),
			Action: func(c *cli.Context) error {
				rootURL := c.Args().First()
				if rootURL == "" {
					return cli.ShowCommandHelp(c, "crawl")
				}

				return runReport(c, stdout, stderr, func(ctx context.Context, opts crawler.Options) (any, error) {
					return crawler.Crawl(ctx, opts)
				}, rootURL, client, clock)
			},
		},
		{
			Name:      "search",
			Usage:     "crawl a site and report pages whose title or description match a term",
			ArgsUsage: "<url> <term>",
			Flags:     crawlFlags(),
			Action: func(c *cli.Context) error {
				rootURL := c.Args().Get(0)
				term := c.Args().Get(1)
				if rootURL == "" {
					return cli.ShowCommandHelp(c, "search")
				}

				return runReport(c, stdout, stderr, func(ctx context.Context, opts crawler.Options) (any, error) {
					return crawler.Search(ctx, opts, term)
				}, rootURL, client, clock)
			},
		},
		{
			Name:  "serve",
			Usage: "serve the crawl API over HTTP (configured from the environment)",
			Action: func(*cli.Context) error {
				return serve(stderr, client)
			},
		},
	}

	err := app.Run(args)
	if err != nil {
		return err
	}

	return nil
}

func crawlFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:   "depth",
			Usage:  "maximum link depth from the seed page",
			Value:  2,
			EnvVar: "SITECRAWL_DEPTH",
		},
		cli.IntFlag{
			Name:   "pages",
			Usage:  "maximum number of crawled pages",
			Value:  50,
			EnvVar: "SITECRAWL_PAGES",
		},
		cli.IntFlag{
			Name:   "retries",
			Usage:  "number of retries for failed requests",
			Value:  1,
			EnvVar: "SITECRAWL_RETRIES",
		},
		cli.DurationFlag{
			Name:   "delay",
			Usage:  "pause between pages (example: 200ms, 1s); negative disables it",
			Value:  crawler.DefaultDelay,
			EnvVar: "SITECRAWL_DELAY",
		},
		cli.DurationFlag{
			Name:   "timeout",
			Usage:  "per-request timeout",
			Value:  crawler.DefaultTimeout,
			EnvVar: "SITECRAWL_TIMEOUT",
		},
		cli.Float64Flag{
			Name:   "rps",
			Usage:  "limit HTTP requests per second",
			EnvVar: "SITECRAWL_RPS",
		},
		cli.StringFlag{
			Name:   "user-agent",
			Usage:  "custom user agent (default rotates browser user agents)",
			EnvVar: "SITECRAWL_USER_AGENT",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "log level for stderr output",
			Value:  "error",
			EnvVar: "SITECRAWL_LOG_LEVEL",
		},
		cli.BoolTFlag{
			Name:   "indent",
			Usage:  "indent the JSON report",
			EnvVar: "SITECRAWL_INDENT",
		},
	}
}

type reportFunc func(ctx context.Context, opts crawler.Options) (any, error)

func runReport(
	c *cli.Context,
	stdout, stderr io.Writer,
	run reportFunc,
	rootURL string,
	client *http.Client,
	clock limiter.Timer,
) error {
	logger, err := logging.New(stderr, c.String("log-level"), true)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	options := optionsFromCLI(c, rootURL, client, clock)
	options.Logger = logger

	report, err := run(context.Background(), options)
	if err != nil {
		return err
	}

	_, err = stdout.Write(crawler.MarshalReport(report, c.BoolT("indent")))
	if err != nil {
		return err
	}

	return nil
}

func optionsFromCLI(
	c *cli.Context,
	rootURL string,
	client *http.Client,
	clock limiter.Timer,
) crawler.Options {
	return crawler.Options{
		URL:        rootURL,
		MaxDepth:   c.Int("depth"),
		MaxPages:   c.Int("pages"),
		Timeout:    c.Duration("timeout"),
		Delay:      c.Duration("delay"),
		RPS:        c.Float64("rps"),
		Retries:    c.Int("retries"),
		UserAgent:  c.String("user-agent"),
		HTTPClient: client,
		Clock:      clock,
	}
}

func serve(stderr io.Writer, client *http.Client) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load error: %w", err)
	}

	logger, err := logging.New(stderr, cfg.LogLevel, cfg.ServerMode == "debug")
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	delay := cfg.CrawlDelay
	if delay == 0 {
		delay = -1
	}

	srv := server.New(server.Options{
		Base: crawler.Options{
			Delay:         delay,
			Timeout:       cfg.RequestTimeout,
			RobotsTimeout: cfg.RobotsTimeout,
			Retries:       cfg.CrawlRetries,
			UserAgent:     cfg.UserAgent,
			HTTPClient:    client,
		},
		Logger:              logger,
		MaxConcurrentCrawls: int64(cfg.MaxConcurrentCrawls),
		Mode:                cfg.ServerMode,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, cfg.Addr()); err != nil {
		logger.Error("server stopped", zap.Error(err))

		return err
	}

	return nil
}
