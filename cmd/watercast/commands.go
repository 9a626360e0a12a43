package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/aouyang1/go-watercast"
	"github.com/aouyang1/go-watercast/config"
	"github.com/aouyang1/go-watercast/metrics"
	"github.com/aouyang1/go-watercast/models"
	"github.com/aouyang1/go-watercast/server"
	"github.com/aouyang1/go-watercast/stats"
	"github.com/aouyang1/go-watercast/timedataset"
	"github.com/goccy/go-json"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

const (
	profileCPU = "cpu"
	profileMem = "mem"
)

var ErrUnknownProfile = errors.New("unknown profile mode")

// flags shared by every subcommand
type globalFlags struct {
	configPath  string
	modelPath   string
	historyPath string
	profileMode string
	profileDir  string
	asJSON      bool
}

// app is the state resolved before a subcommand runs
type app struct {
	flags   globalFlags
	out     io.Writer
	cfg     *config.Config
	planner *watercast.Planner
	stop    interface{ Stop() }
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:   "watercast",
		Short: "Forecast tanker water demand and plan pre-booking",
		Long: `Forecasts daily tanker litres with a rolling base plus residual model and
projects the forecast into tanker counts, market prices and pre-booking savings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.stop != nil {
				a.stop.Stop()
			}
		},
	}
	rootCmd.SetOut(out)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "json config file")
	pf.StringVar(&a.flags.modelPath, "model", "", "model artifact, overrides the config")
	pf.StringVar(&a.flags.historyPath, "history", "", "history csv, overrides the config")
	pf.StringVar(&a.flags.profileMode, "profile", "", "write a cpu or mem profile")
	pf.StringVar(&a.flags.profileDir, "profile-dir", ".", "directory of the written profile")
	pf.BoolVar(&a.flags.asJSON, "json", false, "write json instead of tables")

	rootCmd.AddCommand(
		a.forecastCmd(),
		a.budgetCmd(),
		a.backtestCmd(),
		a.sourcesCmd(),
		a.plotCmd(),
		a.serveCmd(),
		a.configCmd(),
	)
	return rootCmd
}

// setup loads the config, installs the logger and starts profiling. The planner is
// created lazily since the config command needs no model.
func (a *app) setup() error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	if a.flags.modelPath != "" {
		cfg.ModelPath = a.flags.modelPath
	}
	if a.flags.historyPath != "" {
		cfg.HistoryPath = a.flags.historyPath
	}
	if err := cfg.Log.SetDefaultLogger(os.Stderr); err != nil {
		return err
	}
	a.cfg = cfg

	switch a.flags.profileMode {
	case "":
	case profileCPU:
		a.stop = profile.Start(profile.CPUProfile, profile.ProfilePath(a.flags.profileDir), profile.Quiet)
	case profileMem:
		a.stop = profile.Start(profile.MemProfile, profile.ProfilePath(a.flags.profileDir), profile.Quiet)
	default:
		return fmt.Errorf("%q, %w", a.flags.profileMode, ErrUnknownProfile)
	}
	return nil
}

func (a *app) loadPlanner() (*watercast.Planner, error) {
	if a.planner != nil {
		return a.planner, nil
	}
	loader, err := models.NewLoader(a.cfg.ModelCacheSize)
	if err != nil {
		return nil, err
	}
	p, err := watercast.NewFromConfig(a.cfg, loader)
	if err != nil {
		return nil, fmt.Errorf("unable to create planner, %w", err)
	}
	a.planner = p
	return p, nil
}

func (a *app) load() (*watercast.Planner, *timedataset.History, error) {
	p, err := a.loadPlanner()
	if err != nil {
		return nil, nil, err
	}
	h, err := watercast.ReadHistory(a.cfg.HistoryPath)
	if err != nil {
		return nil, nil, err
	}
	return p, h, nil
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) forecastCmd() *cobra.Command {
	var horizon int
	var all bool
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast daily tanker litres",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, h, err := a.load()
			if err != nil {
				return err
			}
			if !all {
				res, err := p.Forecast(cmd.Context(), h, horizon)
				if err != nil {
					return err
				}
				if a.flags.asJSON {
					return a.writeJSON(res)
				}
				return res.TablePrint(a.out, "", "  ")
			}

			results, err := p.Forecasts(cmd.Context(), h)
			if err != nil {
				return err
			}
			if a.flags.asJSON {
				return a.writeJSON(results)
			}
			horizons := make([]int, 0, len(results))
			for n := range results {
				horizons = append(horizons, n)
			}
			slices.Sort(horizons)
			for _, n := range horizons {
				if err := results[n].TablePrint(a.out, "", "  "); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&horizon, "horizon", "n", 7, "number of days to forecast")
	cmd.Flags().BoolVar(&all, "all", false, "forecast every configured horizon")
	return cmd
}

func (a *app) budgetCmd() *cobra.Command {
	var horizon int
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Forecast and price tanker purchases",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, h, err := a.load()
			if err != nil {
				return err
			}
			r, err := p.Budget(cmd.Context(), h, horizon)
			if err != nil {
				return err
			}
			if a.flags.asJSON {
				return a.writeJSON(r)
			}
			return r.TablePrint(a.out, "", "  ")
		},
	}
	cmd.Flags().IntVarP(&horizon, "horizon", "n", 7, "number of days to forecast")
	return cmd
}

func (a *app) backtestCmd() *cobra.Command {
	var horizon int
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Score a forecast of the most recent days of history",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, h, err := a.load()
			if err != nil {
				return err
			}
			bt, err := p.Backtest(cmd.Context(), h, horizon)
			if err != nil {
				return err
			}
			if a.flags.asJSON {
				return a.writeJSON(bt)
			}
			return bt.TablePrint(a.out, "", "  ")
		},
	}
	cmd.Flags().IntVarP(&horizon, "horizon", "n", 7, "number of held out days")
	return cmd
}

func (a *app) sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Summarize the share of water from each source",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, h, err := a.load()
			if err != nil {
				return err
			}
			splits, err := p.SourceSplits(h)
			if err != nil {
				return err
			}
			if a.flags.asJSON {
				return a.writeJSON(splits)
			}
			return stats.TablePrintSplits(a.out, "", "  ", splits, h.LastDate())
		},
	}
}

func (a *app) plotCmd() *cobra.Command {
	var horizon int
	var outPath string
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render the forecast and its cost as an html page",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, h, err := a.load()
			if err != nil {
				return err
			}
			r, err := p.Budget(cmd.Context(), h, horizon)
			if err != nil {
				return err
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("unable to create plot file, %w", err)
			}
			defer f.Close()
			if err := watercast.PlotReport(f, h, r); err != nil {
				return fmt.Errorf("unable to render plot, %w", err)
			}
			fmt.Fprintf(a.out, "wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().IntVarP(&horizon, "horizon", "n", 30, "number of days to forecast")
	cmd.Flags().StringVarP(&outPath, "out", "o", "forecast.html", "output html file")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve forecasts and budgets over http",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadPlanner()
			if err != nil {
				return err
			}
			m := metrics.New(nil)
			p.WithMetrics(m)

			// a missing default history only requires requests to carry their own
			h, err := watercast.ReadHistory(a.cfg.HistoryPath)
			if err != nil {
				cmd.PrintErrf("serving without a default history, %v\n", err)
				h = nil
			}

			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			srv := server.New(p, h, cfg, nil).WithMetrics(m)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return server.ListenAndServe(ctx, srv, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Save(a.out)
		},
	}
}
