package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"belssb/internal/browser"
	"belssb/internal/config"
	"belssb/internal/readings"
)

// Exit codes, part of the CLI contract for cron wrappers.
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

var (
	configPath string
	flagCfg    config.Config
	headed     bool
	noWarnDate bool
	debug      bool

	logger *zap.Logger
)

// usageError marks bad or missing input, reported with exit code 2 instead
// of the generic runtime code.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

var rootCmd = &cobra.Command{
	Use:   "belssb",
	Short: "Submit electricity meter readings to BELSSB (belssb.ru)",
	Long: `belssb fills and submits the meter-reading form at
https://www.belssb.ru/individuals/pokaz/ by driving a headless Chrome.

Inputs are merged per field from CLI flags, the YAML config file, and
BELSSB_* environment variables, in that priority order. Readings submitted
after the 25th only count for the next billing period.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if debug {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logger.With(zap.String("run_id", uuid.NewString()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runSubmit,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "config.yaml", "path to YAML config file")
	pf.StringVarP(&flagCfg.Account, "account", "a", "", "account / contract number")
	pf.StringVarP(&flagCfg.Tariff, "tariff", "t", "", "tariff type: single, two-zone, three-zone")
	pf.StringVarP(&flagCfg.Day, "day", "d", "", "general/day/semi-peak reading")
	pf.StringVarP(&flagCfg.Night, "night", "n", "", "night reading (two-zone and three-zone)")
	pf.StringVarP(&flagCfg.Peak, "peak", "p", "", "peak reading (three-zone only)")
	pf.StringVarP(&flagCfg.Email, "email", "e", "", "contact email")
	pf.StringVar(&flagCfg.Phone, "phone", "", "contact phone (e.g. 9123456789)")
	pf.BoolVar(&headed, "headed", false, "run the browser with a visible window (use if a captcha appears)")
	pf.BoolVar(&noWarnDate, "no-warn-date", false, "do not warn when run after the 25th of the month")
	pf.BoolVar(&debug, "debug", false, "log frame URLs and form-field discovery")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(discoverCmd)
}

// resolveInputs merges the sources and validates everything that does not
// need a browser. Returns the resolved config and parsed tariff.
func resolveInputs() (config.Config, readings.Tariff, error) {
	fileCfg, err := config.LoadFile(configPath)
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.Resolve(flagCfg, fileCfg, config.FromEnv())
	if err != nil {
		return config.Config{}, "", err
	}

	if cfg.Account == "" {
		return cfg, "", usageErrorf("account number is required (--account or config.account)")
	}
	tariff, err := readings.ParseTariff(cfg.Tariff)
	if err != nil {
		return cfg, "", &usageError{err: err}
	}
	set := readings.Set{Day: cfg.Day, Night: cfg.Night, Peak: cfg.Peak}
	if err := readings.Validate(tariff, set); err != nil {
		return cfg, "", &usageError{err: err}
	}
	return cfg, tariff, nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, tariff, err := resolveInputs()
	if err != nil {
		return err
	}
	logger.Debug("inputs resolved",
		zap.String("tariff", string(tariff)),
		zap.Bool("headed", headed))

	if !noWarnDate && readings.AfterCutoff(time.Now()) {
		fmt.Fprintln(os.Stderr, "Warning: Readings submitted after the 25th are not accepted for the current billing period (only for the next).")
	}

	form := browser.FormData{
		Account: cfg.Account,
		Day:     readings.Normalize(cfg.Day),
		Night:   readings.Normalize(cfg.Night),
		Peak:    readings.Normalize(cfg.Peak),
		Email:   cfg.Email,
		Phone:   readings.NormalizePhone(cfg.Phone),
	}

	bcfg := browser.DefaultConfig()
	bcfg.Headless = !headed

	ctx := cmd.Context()
	session, err := browser.NewSession(ctx, bcfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("browser close failed", zap.Error(err))
		}
	}()

	if err := session.Open(ctx); err != nil {
		return fmt.Errorf("timeout while loading the form, try --headed or run again: %w", err)
	}
	message, err := session.Submit(ctx, form)
	if err != nil {
		return err
	}

	fmt.Println(message)
	return nil
}

// checkCmd resolves and validates inputs without opening a browser, for
// verifying cron configs.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate inputs without submitting",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, tariff, err := resolveInputs()
		if err != nil {
			return err
		}
		fmt.Printf("Inputs valid: account=%s tariff=%s\n", cfg.Account, tariff)
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var uerr *usageError
		if errors.As(err, &uerr) {
			os.Exit(exitUsage)
		}
		os.Exit(exitRuntime)
	}
}
