package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/regholl2023/minitrade/internal/config"
	"github.com/regholl2023/minitrade/internal/export"
	"github.com/regholl2023/minitrade/internal/logging"
	"github.com/regholl2023/minitrade/internal/notifier"
	"github.com/regholl2023/minitrade/internal/quotesource"
)

const dateLayout = "2006-01-02"

type app struct {
	cfgPath  string
	logLevel string
	source   string
	proxy    string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "minitrade",
		Short:        "Fetch daily bars, intraday bars and spot prices from quote sources",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", config.DefaultPath(), "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to scheduler.log_level")
	root.PersistentFlags().StringVar(&a.source, "source", "", "quote source name; defaults to watch.source")
	root.PersistentFlags().StringVar(&a.proxy, "proxy", "", "http proxy for upstream requests")

	root.AddCommand(a.configCmd(), a.dailyCmd(), a.minuteCmd(), a.spotCmd(), a.serveCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadOrDefault(a.cfgPath)
	level := a.logLevel
	if level == "" {
		level = cfg.Scheduler.LogLevel
	}
	logging.Setup(level, cmd.ErrOrStderr())
	if err != nil {
		var le *config.LoadError
		if errors.As(err, &le) && errors.Is(err, os.ErrNotExist) {
			log.WithField("path", le.Path).Debug("no config file, using defaults")
		} else {
			log.WithError(err).Warn("using default configuration")
		}
	}
	cfg.ApplyEnv()
	if a.proxy != "" {
		cfg.Sources.Yahoo.Proxy = a.proxy
	}
	if a.source == "" {
		a.source = cfg.Watch.Source
	}
	a.cfg = cfg
	return nil
}

func (a *app) quoteSource() (*quotesource.Source, error) {
	return quotesource.Get(a.source, a.cfg)
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage the configuration file"}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ExpandPath(a.cfgPath)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func (a *app) dailyCmd() *cobra.Command {
	var (
		start, end string
		noAlign    bool
		normalize  bool
		csv        bool
	)
	cmd := &cobra.Command{
		Use:   "daily TICKERS",
		Short: "Print daily bars for one or more comma-separated tickers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tickers, err := quotesource.ParseTickers(args[0])
			if err != nil {
				return err
			}
			s, e, err := parseRange(start, end)
			if err != nil {
				return err
			}
			src, err := a.quoteSource()
			if err != nil {
				return err
			}
			f, err := src.DailyBar(cmd.Context(), tickers, s, e,
				quotesource.WithAlign(!noAlign), quotesource.WithNormalize(normalize))
			if err != nil {
				return err
			}
			if csv {
				return export.WriteFrameCSV(cmd.OutOrStdout(), f)
			}
			export.WriteFrameTable(cmd.OutOrStdout(), f)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first date, YYYY-MM-DD (default 2020-01-01)")
	cmd.Flags().StringVar(&end, "end", "", "last date inclusive, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&noAlign, "no-align", false, "keep each ticker's own date range")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "rescale so every ticker starts at 1")
	cmd.Flags().BoolVar(&csv, "csv", false, "write CSV instead of a table")
	return cmd
}

func (a *app) minuteCmd() *cobra.Command {
	var (
		start, end string
		interval   int
		csv        bool
	)
	cmd := &cobra.Command{
		Use:   "minute TICKER",
		Short: "Print intraday bars for one ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, e, err := parseRange(start, end)
			if err != nil {
				return err
			}
			src, err := a.quoteSource()
			if err != nil {
				return err
			}
			f, err := src.MinuteBar(cmd.Context(), args[0], s, e, interval)
			if err != nil {
				return err
			}
			if csv {
				return export.WriteFrameCSV(cmd.OutOrStdout(), f)
			}
			export.WriteFrameTable(cmd.OutOrStdout(), f)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first date, YYYY-MM-DD (default: longest trailing window)")
	cmd.Flags().StringVar(&end, "end", "", "last date inclusive, YYYY-MM-DD")
	cmd.Flags().IntVar(&interval, "interval", 1, "bar size in minutes: 1, 2, 5, 15, 30 or 60")
	cmd.Flags().BoolVar(&csv, "csv", false, "write CSV instead of a table")
	return cmd
}

func (a *app) spotCmd() *cobra.Command {
	var mail bool
	cmd := &cobra.Command{
		Use:   "spot TICKERS",
		Short: "Print last prices for comma-separated tickers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tickers, err := quotesource.ParseTickers(args[0])
			if err != nil {
				return err
			}
			src, err := a.quoteSource()
			if err != nil {
				return err
			}
			spot, err := src.Spot(cmd.Context(), tickers.Symbols())
			if err != nil {
				return err
			}
			export.WriteSpotTable(cmd.OutOrStdout(), spot)
			if mail {
				subject, body := notifier.FormatSpotReport(src.Name(), spot)
				return notifier.SendWithRetry(cmd.Context(), notifier.New(a.cfg.Providers.Mailjet), subject, body, 3)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&mail, "mail", false, "also mail the prices through mailjet")
	return cmd
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	var s, e time.Time
	var err error
	if start != "" {
		if s, err = time.Parse(dateLayout, start); err != nil {
			return s, e, fmt.Errorf("invalid --start %q: %w", start, err)
		}
	}
	if end != "" {
		if e, err = time.Parse(dateLayout, end); err != nil {
			return s, e, fmt.Errorf("invalid --end %q: %w", end, err)
		}
	}
	return s, e, nil
}
