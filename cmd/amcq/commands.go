package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/amcq/internal/model"
	"github.com/verte-zerg/amcq/internal/stats"
	"github.com/verte-zerg/amcq/internal/statsui"
)

const (
	defaultHistoryWindow = 5
	defaultTopMissed     = 5
	historyPlotHeight    = 8
)

var (
	settingsLevels     []string
	settingsYearMin    int
	settingsYearMax    int
	settingsProblemMin int
	settingsProblemMax int
	settingsAIMEMin    int
	settingsAIMEMax    int
	settingsTimer      int

	progressYear  int
	progressLevel string

	historyLevel  string
	historyLast   int
	historyWindow int

	resetStreak   bool
	resetProgress bool
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change quiz settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingsCmd,
	}
	cmd.Flags().StringSliceVar(&settingsLevels, "levels", nil, "enabled levels, comma separated (AMC8,AMC10,AMC12,AIME)")
	cmd.Flags().IntVar(&settingsYearMin, "year-min", 0, "earliest year to draw from")
	cmd.Flags().IntVar(&settingsYearMax, "year-max", 0, "latest year to draw from")
	cmd.Flags().IntVar(&settingsProblemMin, "problem-min", 0, "lowest AMC problem number")
	cmd.Flags().IntVar(&settingsProblemMax, "problem-max", 0, "highest AMC problem number")
	cmd.Flags().IntVar(&settingsAIMEMin, "aime-min", 0, "lowest AIME problem number")
	cmd.Flags().IntVar(&settingsAIMEMax, "aime-max", 0, "highest AIME problem number")
	cmd.Flags().IntVar(&settingsTimer, "timer", 0, "practice timer in minutes (0 disables)")
	return cmd
}

func runSettingsCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	current, err := st.LoadSettings(ctx)
	if err != nil {
		logErrf("stored settings are unreadable, using defaults: %v\n", err)
	}
	updated, changed, err := applySettingsFlags(cmd, current)
	if err != nil {
		return err
	}
	if changed {
		if current, err = st.SaveSettings(ctx, updated); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}
	return writeSettings(cmd.OutOrStdout(), current)
}

// applySettingsFlags overlays the flags that were set onto s.
func applySettingsFlags(cmd *cobra.Command, s model.Settings) (model.Settings, bool, error) {
	changed := false
	if cmd.Flags().Changed("levels") {
		levels := make([]model.Level, 0, len(settingsLevels))
		for _, raw := range settingsLevels {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			level, err := model.ParseLevel(raw)
			if err != nil {
				return s, false, fmt.Errorf("invalid --levels value: %w", err)
			}
			levels = append(levels, level)
		}
		s.Levels = levels
		changed = true
	}
	ints := []struct {
		name   string
		value  int
		target *int
	}{
		{"year-min", settingsYearMin, &s.YearMin},
		{"year-max", settingsYearMax, &s.YearMax},
		{"problem-min", settingsProblemMin, &s.ProblemMin},
		{"problem-max", settingsProblemMax, &s.ProblemMax},
		{"aime-min", settingsAIMEMin, &s.AIMEProblemMin},
		{"aime-max", settingsAIMEMax, &s.AIMEProblemMax},
		{"timer", settingsTimer, &s.TimerMinutes},
	}
	for _, f := range ints {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		if f.value < 0 {
			return s, false, fmt.Errorf("--%s must be >= 0", f.name)
		}
		*f.target = f.value
		changed = true
	}
	return s.Normalize(), changed, nil
}

func writeSettings(w io.Writer, s model.Settings) error {
	levels := make([]string, 0, len(s.Levels))
	for _, l := range s.Levels {
		levels = append(levels, string(l))
	}
	levelText := strings.Join(levels, ", ")
	if levelText == "" {
		levelText = "none"
	}
	timer := "off"
	if s.TimerMinutes > 0 {
		timer = fmt.Sprintf("%d min", s.TimerMinutes)
	}
	lines := []string{
		fmt.Sprintf("Levels:        %s", levelText),
		fmt.Sprintf("Years:         %d-%d", s.YearMin, s.YearMax),
		fmt.Sprintf("AMC problems:  %d-%d", s.ProblemMin, s.ProblemMax),
		fmt.Sprintf("AIME problems: %d-%d", s.AIMEProblemMin, s.AIMEProblemMax),
		fmt.Sprintf("Timer:         %s", timer),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show solved and missed problems",
		Args:  cobra.NoArgs,
		RunE:  runProgressCmd,
	}
	cmd.Flags().IntVar(&progressYear, "year", 0, "limit to one year")
	cmd.Flags().StringVar(&progressLevel, "level", "", "limit to one level")
	return cmd
}

func runProgressCmd(cmd *cobra.Command, _ []string) error {
	level, err := parseOptionalLevel(progressLevel)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	report, err := stats.BuildProgressReport(context.Background(), st, model.ProgressFilter{Year: progressYear, Level: level})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(report.Entries) == 0 {
		_, err := fmt.Fprintln(out, "No progress recorded.")
		return err
	}
	if err := stats.RenderTopMissed(out, report.Matrix, defaultTopMissed); err != nil {
		return fmt.Errorf("failed to render progress: %w", err)
	}
	if err := stats.RenderMatrix(out, report.Matrix, stats.TerminalWidth(), stats.UseColor(out)); err != nil {
		return fmt.Errorf("failed to render progress: %w", err)
	}
	if err := stats.RenderLevelTable(out, report.Levels); err != nil {
		return fmt.Errorf("failed to render levels: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished tests",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyLevel, "level", "", "limit to one test type")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N tests")
	cmd.Flags().IntVar(&historyWindow, "window", defaultHistoryWindow, "moving average window")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	level, err := parseOptionalLevel(historyLevel)
	if err != nil {
		return err
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if historyWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	report, err := stats.BuildHistoryReport(context.Background(), st, model.TestFilter{Level: level, Last: historyLast}, historyWindow)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report.Tests); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}
	if len(report.Tests) == 0 {
		return nil
	}
	if err := stats.RenderTestTable(out, report.Tests); err != nil {
		return fmt.Errorf("failed to render tests: %w", err)
	}
	series := []stats.Series{
		{Name: "score %", Values: report.Percents},
		{Name: fmt.Sprintf("avg of %d", historyWindow), Values: report.Average},
	}
	width := stats.PlotWidthFor(stats.TerminalWidth())
	if err := stats.PlotPercents(out, "Test scores", series, width, historyPlotHeight, stats.UseColor(out)); err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Browse progress and test history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&progressYear, "year", 0, "limit progress to one year")
	cmd.Flags().StringVar(&historyLevel, "level", "", "limit to one level")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N tests")
	cmd.Flags().IntVar(&historyWindow, "window", defaultHistoryWindow, "moving average window")
	return cmd
}

func runStatsCmd(_ *cobra.Command, _ []string) error {
	level, err := parseOptionalLevel(historyLevel)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	m := statsui.NewModel(st, statsui.Filter{
		Year:   progressYear,
		Level:  level,
		Last:   historyLast,
		Window: historyWindow,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset streak and/or progress",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVar(&resetStreak, "streak", false, "reset the practice streak")
	cmd.Flags().BoolVar(&resetProgress, "progress", false, "forget solved and missed problems")
	return cmd
}

func runResetCmd(_ *cobra.Command, _ []string) error {
	if !resetStreak && !resetProgress {
		return fmt.Errorf("nothing to reset (use --streak and/or --progress)")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	if resetStreak {
		if err := st.SetStreak(ctx, 0); err != nil {
			return fmt.Errorf("failed to reset streak: %w", err)
		}
		logErrln("Streak reset.")
	}
	if resetProgress {
		if err := st.ResetProgress(ctx); err != nil {
			return fmt.Errorf("failed to reset progress: %w", err)
		}
		logErrln("Progress reset.")
	}
	return nil
}

func parseOptionalLevel(raw string) (model.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	level, err := model.ParseLevel(raw)
	if err != nil {
		return "", fmt.Errorf("invalid --level value: %w", err)
	}
	return level, nil
}
