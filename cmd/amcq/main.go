// Package main provides the CLI entrypoint for amcq.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/amcq/internal/config"
	"github.com/verte-zerg/amcq/internal/logging"
	"github.com/verte-zerg/amcq/internal/problem"
	"github.com/verte-zerg/amcq/internal/proxy"
	"github.com/verte-zerg/amcq/internal/quiz"
	"github.com/verte-zerg/amcq/internal/store"
	"github.com/verte-zerg/amcq/internal/tui"
)

const (
	defaultLogLevel       = "info"
	defaultTimeoutSeconds = 15
)

var (
	practiceTest        string
	practiceSkipSolved  bool
	practiceProxyURL    string
	practiceTimeout     int
	practiceMaxAttempts int
	logLevel            string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "amcq",
		Short:         "AMC and AIME practice in the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceTest, "test", "", "start a timed test (AMC8, AMC10, AMC12, AIME)")
	rootCmd.Flags().BoolVar(&practiceSkipSolved, "skip-solved", false, "do not draw problems already answered correctly")
	rootCmd.Flags().StringVar(&practiceProxyURL, "proxy-url", proxy.DefaultBaseURL, "content proxy base URL")
	rootCmd.Flags().IntVar(&practiceTimeout, "timeout", defaultTimeoutSeconds, "request timeout in seconds")
	rootCmd.Flags().IntVar(&practiceMaxAttempts, "max-attempts", problem.DefaultMaxAttempts, "draws tried before giving up on a problem")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newResetCmd())

	return rootCmd
}

// loadFileConfig reads .env, the TOML file and environment overrides.
func loadFileConfig() (config.FileConfig, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		logErrf("%v\n", err)
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return config.ApplyEnv(fileCfg), nil
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "proxy-url", &practiceProxyURL, fileCfg.Proxy.BaseURL)
	applyIntConfig(cmd, "timeout", &practiceTimeout, fileCfg.Proxy.TimeoutSeconds)
	applyIntConfig(cmd, "max-attempts", &practiceMaxAttempts, fileCfg.Proxy.MaxAttempts)
	applyBoolConfig(cmd, "skip-solved", &practiceSkipSolved, fileCfg.Practice.SkipSolved)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)

	if err := validatePracticeFlags(); err != nil {
		return err
	}

	logger, closeLog := openLogger(logLevel)
	defer closeLog()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := proxy.New(practiceProxyURL, time.Duration(practiceTimeout)*time.Second, logger)
	selector := problem.New(client, problem.WithMaxAttempts(practiceMaxAttempts), problem.WithLogger(logger))
	ctrl, err := quiz.New(ctx, st, quiz.Options{Logger: logger, SkipSolved: practiceSkipSolved})
	if err != nil {
		return fmt.Errorf("failed to load quiz state: %w", err)
	}

	logger.Info("starting practice", "proxy", practiceProxyURL, "skip_solved", practiceSkipSolved)
	m := tui.NewModel(ctx, ctrl, selector, tui.Options{StartTest: practiceTest})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func validatePracticeFlags() error {
	if practiceTimeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	if practiceMaxAttempts <= 0 {
		return fmt.Errorf("--max-attempts must be > 0")
	}
	if strings.TrimSpace(practiceProxyURL) == "" {
		return fmt.Errorf("--proxy-url must not be empty")
	}
	return nil
}

// openLogger logs to the data directory file because the TUI owns the
// terminal. It falls back to a discard logger when the file cannot be opened.
func openLogger(level string) (*slog.Logger, func()) {
	f, err := logging.OpenFile(config.DefaultLogPath())
	if err != nil {
		logErrf("logging disabled: %v\n", err)
		return logging.Discard(), func() {}
	}
	return logging.New(level, f), func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# amcq configuration
# Uncomment a value to enable it. Environment variables (%s, %s,
# %s, %s) override the file; CLI flags override both.

[proxy]
# base-url = %q
# timeout-seconds = %d    # Request timeout
# max-attempts = %d       # Draws tried before giving up on a problem

[practice]
# skip-solved = false     # Do not draw problems already answered correctly

[log]
# level = %q           # debug, info, warn or error
`,
		config.EnvProxyURL,
		config.EnvLogLevel,
		config.EnvAttempts,
		config.EnvDBPath,
		proxy.DefaultBaseURL,
		defaultTimeoutSeconds,
		problem.DefaultMaxAttempts,
		defaultLogLevel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
