package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/geotrack/internal/adapters/console"
	"github.com/bft-labs/geotrack/internal/adapters/fs"
	"github.com/bft-labs/geotrack/internal/adapters/source"
	"github.com/bft-labs/geotrack/internal/app"
	"github.com/bft-labs/geotrack/internal/cliconfig"
	"github.com/bft-labs/geotrack/pkg/geotrack"
	"github.com/bft-labs/geotrack/pkg/log"
)

const helpDescription = `
Track your location from the terminal, and keep tracking across restarts.

Highlights:
  - Toggle tracking on and off; the choice survives a restart.
  - While in the background a persistent indicator shows the latest fix.
  - Simulated random walk or replay of a recorded YAML track.
  - Configure via file, env (GEOTRACK_*), or flags.
`

var longHelp = "geotrack\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  geotrack --permission prompt
  geotrack --source replay --track ~/tracks/commute.yaml --interval 500ms
  geotrack status
  geotrack stop
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	// loadConfig applies file, then env, then validates. Flags set on the
	// command line win over both.
	loadConfig := func(cmd *cobra.Command) error {
		cfgFile := cfgPath
		if cfgFile == "" {
			cfgFile = cliconfig.DefaultConfigPath()
		}

		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		if cfgFile != "" && cliconfig.FileExists(cfgFile) {
			fc, err := cliconfig.LoadFileConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
				return err
			}
		}

		// Apply environment variables (GEOTRACK_*)
		if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
			return err
		}

		return cfg.Validate()
	}

	root := &cobra.Command{
		Use:     "geotrack",
		Short:   "Track your location from the terminal",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			log.Info().Interface("config", cfg).Msg("configuration")

			logger, err := cliconfig.NewLogger(cfg)
			if err != nil {
				return err
			}
			return run(cfg, logger)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print whether tracking is switched on",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			on, err := fs.NewFlagStore(cfg.StateDir).ReadFlag(cmd.Context(), app.TrackingFlagKey)
			if err != nil {
				return err
			}
			if on {
				fmt.Fprintln(cmd.OutOrStdout(), "tracking: on")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "tracking: off")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Switch tracking off, including in a running session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			store := fs.NewFlagStore(cfg.StateDir)
			if err := store.WriteFlag(cmd.Context(), app.TrackingFlagKey, false); err != nil {
				return err
			}
			log.Info().Str("path", store.Path()).Msg("tracking switched off")
			return nil
		},
	}
	root.AddCommand(statusCmd, stopCmd)

	// Flags
	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.geotrack/config.toml)")
	pf.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory holding preferences.json (default: $HOME/.geotrack)")

	f := root.Flags()
	f.StringVar(&cfg.Source, "source", cfg.Source, "location source: simulated or replay")
	f.StringVar(&cfg.TrackFile, "track", cfg.TrackFile, "YAML track file for the replay source")
	f.Float64Var(&cfg.OriginLat, "origin-lat", cfg.OriginLat, "starting latitude of the simulated walk")
	f.Float64Var(&cfg.OriginLon, "origin-lon", cfg.OriginLon, "starting longitude of the simulated walk")
	f.Float64Var(&cfg.Step, "step", cfg.Step, "maximum degrees moved per simulated fix")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for the simulated walk (0 picks one)")

	f.DurationVar(&cfg.Interval, "interval", cfg.Interval, "requested interval between fixes")
	f.DurationVar(&cfg.MinInterval, "min-interval", cfg.MinInterval, "fastest accepted interval between fixes")
	f.DurationVar(&cfg.MaxBatchDelay, "max-batch-delay", cfg.MaxBatchDelay, "maximum delay before batched fixes are delivered")
	f.StringVar(&cfg.Accuracy, "accuracy", cfg.Accuracy, "requested accuracy: high, balanced, low or passive")

	f.StringVar(&cfg.Permission, "permission", cfg.Permission, "location permission: granted, denied or prompt")
	f.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "wait for the first fix before suspending (0 disables)")
	f.DurationVar(&cfg.RetryInitial, "retry-initial", cfg.RetryInitial, "initial retry delay after a provider failure")
	f.DurationVar(&cfg.RetryMax, "retry-max", cfg.RetryMax, "maximum retry delay after a provider failure")
	f.IntVar(&cfg.MaxLogLines, "max-log-lines", cfg.MaxLogLines, "number of log lines kept by the session")

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")
	if err := f.MarkHidden("max-batch-delay"); err != nil {
		log.Info().Err(err).Msg("failed to hide max-batch-delay flag")
	}

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("geotrack")
		os.Exit(1)
	}
}

// run starts an interactive session and blocks until the user quits, the
// input ends, or a signal arrives.
func run(cfg cliconfig.Config, logger *log.ZerologAdapter) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	term := console.NewTerminal(os.Stdin, os.Stdout)

	gate, err := console.NewPermissionGate(console.PermissionMode(cfg.Permission), term)
	if err != nil {
		return err
	}

	req, err := cfg.LocationRequest()
	if err != nil {
		return err
	}

	simCfg := source.SimulatorConfig{
		Latitude:  cfg.OriginLat,
		Longitude: cfg.OriginLon,
		Step:      cfg.Step,
		Seed:      cfg.Seed,
	}

	var src geotrack.LocationSource
	switch cfg.Source {
	case cliconfig.SourceReplay:
		track, err := source.LoadTrack(cfg.TrackFile)
		if err != nil {
			return fmt.Errorf("load track: %w", err)
		}
		src = source.NewReplay(track, gate, logger.With("replay"))
	default:
		src = source.NewSimulator(simCfg, gate, logger.With("simulator"))
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = -1
	}

	t, err := geotrack.New(geotrack.Config{
		StateDir:       cfg.StateDir,
		Request:        req,
		RequestTimeout: requestTimeout,
		RetryInitial:   cfg.RetryInitial,
		RetryMax:       cfg.RetryMax,
		MaxLogLines:    cfg.MaxLogLines,
		Simulator:      simCfg,
	},
		geotrack.WithLogger(logger),
		geotrack.WithLocationSource(src),
		geotrack.WithPermissionGate(gate),
		geotrack.WithPresenter(console.NewPresenter(term)),
	)
	if err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}

	if err := t.Start(ctx); err != nil {
		return fmt.Errorf("start tracker: %w", err)
	}

	sess := newShell(t, term, gate, src)
	loopErr := sess.loop(ctx)
	if errors.Is(loopErr, context.Canceled) {
		logger.Info("received signal, stopping...")
		loopErr = nil
	}

	// Graceful shutdown; the tracking intent stays persisted.
	if err := t.Stop(); err != nil {
		return fmt.Errorf("stop tracker: %w", err)
	}
	return loopErr
}
