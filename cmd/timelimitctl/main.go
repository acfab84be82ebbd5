package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	timelimit "github.com/developingchet/session-timelimit"
	"github.com/developingchet/session-timelimit/audit"
	"github.com/developingchet/session-timelimit/internal/config"
	"github.com/developingchet/session-timelimit/internal/logger"
	"github.com/developingchet/session-timelimit/internal/metrics"
	"github.com/developingchet/session-timelimit/internal/statefile"
	"github.com/developingchet/session-timelimit/timespan"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errDenied marks a denied admission check so main can exit 1 rather than 2.
var errDenied = errors.New("denied")

// Seams for tests.
var (
	loadConfig      = config.Load
	registerMetrics = metrics.Register
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errDenied) {
			os.Exit(1)
		}
		log.Error().Err(err).Msg("fatal")
		os.Exit(2)
	}
}

// newRootCmd builds and returns the root cobra command. Extracted from main so
// that tests can invoke it directly without spawning a subprocess.
func newRootCmd() *cobra.Command {
	var limitsPath, statePath string

	rootCmd := &cobra.Command{
		Use:   "timelimitctl",
		Short: "Inspect and exercise per-user daily login-time budgets",
		Long: `timelimitctl runs the same admission logic the session stack uses and
inspects the limits table and the accounting state file.

Exit codes for "check": 0 allowed (or no limit configured), 1 denied,
2 operational error.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&limitsPath, "config", "",
		"limits table path (default from TIMELIMIT_LIMITS_PATH or "+config.DefaultLimitsPath+")")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "",
		"state file path (default from TIMELIMIT_STATE_PATH or "+config.DefaultStatePath+")")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "check <user>",
		Short: "Run the admission check for a user and report the decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], limitsPath, statePath)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "used <user>",
		Short: "Print the time a user has consumed today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsed(cmd, args[0], statePath)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print every record in the state file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, statePath)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "timelimitctl %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	return rootCmd
}

// loadSettings resolves configuration and applies command-line overrides,
// which win over both the environment and any config file.
func loadSettings(limitsPath, statePath string) (*config.Settings, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if limitsPath != "" {
		cfg.LimitsPath = limitsPath
	}
	if statePath != "" {
		cfg.StatePath = statePath
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// buildSink assembles the audit pipeline: always the structured log, plus
// the systemd journal when enabled and available.
func buildSink(cfg *config.Settings) audit.Sink {
	if !cfg.JournalAudit {
		return audit.NewLogSink()
	}
	return audit.NewMultiSink(audit.NewLogSink(), audit.NewJournalSink("timelimitctl"))
}

func runCheck(cmd *cobra.Command, user, limitsPath, statePath string) error {
	cfg, err := loadSettings(limitsPath, statePath)
	if err != nil {
		return err
	}
	registerMetrics()

	m := timelimit.New(timelimit.WithAuditSink(buildSink(cfg)))
	host := &timelimit.MemHost{}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d, err := m.CheckAccount(ctx, host, user,
		[]string{"path=" + cfg.LimitsPath, "statepath=" + cfg.StatePath})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch d.Outcome {
	case timelimit.OutcomeAllow:
		fmt.Fprintf(out, "allow: %s remaining of %s (used %s)\n",
			timespan.Format(d.Remaining, timespan.PerSec),
			timespan.Format(d.Limit, timespan.PerSec),
			timespan.Format(d.Used, timespan.PerSec))
	case timelimit.OutcomeDeny:
		fmt.Fprintf(out, "deny: %s\n", d.Reason)
		return errDenied
	default:
		fmt.Fprintf(out, "ignore: no limit configured for %s\n", user)
	}
	return nil
}

func runUsed(cmd *cobra.Command, user, statePath string) error {
	cfg, err := loadSettings("", statePath)
	if err != nil {
		return err
	}

	sf, err := statefile.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer sf.Close()

	used, err := sf.UsedTime(user)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", timespan.Format(used, timespan.PerSec))
	return nil
}

func runDump(cmd *cobra.Command, statePath string) error {
	cfg, err := loadSettings("", statePath)
	if err != nil {
		return err
	}

	sf, err := statefile.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer sf.Close()

	entries, err := sf.Entries()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "%s\t%s\t%s\n",
			e.Name,
			time.Unix(e.Day, 0).UTC().Format("2006-01-02"),
			timespan.Format(e.Used, timespan.PerSec))
	}
	return nil
}
