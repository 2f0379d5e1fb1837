// Package main provides the CLI entrypoint for studyfocus.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/studyfocus/internal/config"
	"github.com/verte-zerg/studyfocus/internal/export"
	"github.com/verte-zerg/studyfocus/internal/feedback"
	"github.com/verte-zerg/studyfocus/internal/logging"
	"github.com/verte-zerg/studyfocus/internal/model"
	"github.com/verte-zerg/studyfocus/internal/recommend"
	"github.com/verte-zerg/studyfocus/internal/reminder"
	"github.com/verte-zerg/studyfocus/internal/stats"
	"github.com/verte-zerg/studyfocus/internal/statsui"
	"github.com/verte-zerg/studyfocus/internal/store"
	"github.com/verte-zerg/studyfocus/internal/timer"
	"github.com/verte-zerg/studyfocus/internal/tui"
)

const (
	maxDurationSeconds = 4 * 3600
	maxDays            = 3650
	commandTimeout     = 10 * time.Second
)

var (
	timerDuration    int
	timerEnvironment []string
	timerNote        string
	timerVisibility  bool
	timerInteraction bool

	statsDays  int
	statsPlain bool

	feedbackDays int

	recommendHour int

	exportFormat string
	exportDays   int
	exportOutput string

	remindSchedule string
	remindDays     int

	clearYes bool

	logLevel string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "studyfocus",
		Short:         "Focus-aware study timer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTimerCmd,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logging.DefaultLevel, "log level (trace, debug, info, warn, error)")

	rootCmd.Flags().IntVar(&timerDuration, "duration", timer.DefaultDuration, "session length in seconds")
	rootCmd.Flags().StringSliceVar(&timerEnvironment, "env", nil, "environment tags recorded with the session (e.g. noisy)")
	rootCmd.Flags().StringVar(&timerNote, "note", "", "free-form note recorded with the session")
	rootCmd.Flags().BoolVar(&timerVisibility, "visibility", true, "use terminal focus reporting as a focus signal")
	rootCmd.Flags().BoolVar(&timerInteraction, "interaction", true, "use key and mouse activity as a focus signal")

	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newFeedbackCmd())
	rootCmd.AddCommand(newRecommendCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newRemindCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newClearCmd())

	return rootCmd
}

func loadFileConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	if _, err := logging.ParseLevel(logLevel); err != nil {
		return config.FileConfig{}, fmt.Errorf("--log-level: %w", err)
	}
	return fileCfg, nil
}

// stderrLogger is used by commands that do not take over the screen.
func stderrLogger() hclog.Logger {
	logger, err := logging.New(os.Stderr, logLevel)
	if err != nil {
		return hclog.NewNullLogger()
	}
	return logger
}

// openStore opens the SQLite primary and the flat fallback. Either one
// alone is enough to run.
func openStore(logger hclog.Logger) (*store.Chain, error) {
	var primary, fallback store.SessionStore
	db, dbErr := store.Open(config.DefaultDBPath())
	if dbErr != nil {
		logger.Warn("sqlite store unavailable, using fallback only", "path", config.DefaultDBPath(), "error", dbErr)
	} else {
		primary = db
	}
	flat, flatErr := store.OpenFlat(config.DefaultFallbackDir(), logger)
	if flatErr != nil {
		logger.Warn("fallback store unavailable", "path", config.DefaultFallbackDir(), "error", flatErr)
	} else {
		fallback = flat
	}
	if primary == nil && fallback == nil {
		return nil, fmt.Errorf("failed to open store: %w", errors.Join(dbErr, flatErr))
	}
	return store.NewChain(primary, fallback, logger), nil
}

func closeStore(st *store.Chain, logger hclog.Logger) {
	if cerr := st.Close(); cerr != nil {
		logger.Error("failed to close store", "error", cerr)
	}
}

func runTimerCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "duration", &timerDuration, fileCfg.Timer.Duration)
	applyStringSliceConfig(cmd, "env", &timerEnvironment, fileCfg.Timer.Environment)
	applyBoolConfig(cmd, "visibility", &timerVisibility, fileCfg.Focus.Visibility)
	applyBoolConfig(cmd, "interaction", &timerInteraction, fileCfg.Focus.Interaction)

	cfg := model.Config{
		DurationSeconds: timerDuration,
		Visibility:      timerVisibility,
		Interaction:     timerInteraction,
		Environment:     timerEnvironment,
		Notes:           strings.TrimSpace(timerNote),
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger, closer, err := logging.Open(config.DefaultLogPath(), logLevel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			_ = cerr
		}
	}()

	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	logger.Info("starting timer", "duration", cfg.DurationSeconds, "visibility", cfg.Visibility, "interaction", cfg.Interaction)
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.Visibility {
		opts = append(opts, tea.WithReportFocus())
	}
	if cfg.Interaction {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	program := tea.NewProgram(tui.NewModel(cfg, st, logger), opts...)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show study stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().IntVar(&statsDays, "days", stats.DefaultDays, "window length in days")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a plain-text report instead of the interactive view")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "days", &statsDays, fileCfg.Stats.Days)
	if err := validateDays(statsDays); err != nil {
		return err
	}
	cfg := model.StatsConfig{Days: statsDays}

	if statsPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return printStats(cmd.Context(), cmd.OutOrStdout(), cfg)
	}

	logger, closer, err := logging.Open(config.DefaultLogPath(), logLevel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			_ = cerr
		}
	}()

	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	program := tea.NewProgram(statsui.NewModel(st, cfg, logger), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func printStats(ctx context.Context, w io.Writer, cfg model.StatsConfig) error {
	logger := stderrLogger()
	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return err
	}
	if err := stats.RenderSummary(w, report.Summary, report.Days); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if report.Summary.TotalSessions == 0 {
		return nil
	}
	if err := stats.RenderTrend(w, report.Records, report.Now, report.Days, stats.TerminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Show study feedback",
		Args:  cobra.NoArgs,
		RunE:  runFeedbackCmd,
	}
	cmd.Flags().IntVar(&feedbackDays, "days", stats.DefaultDays, "window length in days")
	return cmd
}

func runFeedbackCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "days", &feedbackDays, fileCfg.Stats.Days)
	if err := validateDays(feedbackDays); err != nil {
		return err
	}

	logger := stderrLogger()
	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()
	items := feedback.Load(ctx, st, model.StatsConfig{Days: feedbackDays}, logger)
	out := cmd.OutOrStdout()
	for _, item := range items {
		if _, err := fmt.Fprintf(out, "[%s] %s\n", item.Type, item.Message); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if item.Actionable && item.Action != "" {
			if _, err := fmt.Fprintf(out, "  -> %s\n", item.Action); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}
	return nil
}

func newRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend a session length from history",
		Args:  cobra.NoArgs,
		RunE:  runRecommendCmd,
	}
	cmd.Flags().IntVar(&recommendHour, "hour", -1, "hour of day to recommend for (default: now)")
	return cmd
}

func runRecommendCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	defaultSeconds := timer.DefaultDuration
	if fileCfg.Timer.Duration != nil {
		defaultSeconds = *fileCfg.Timer.Duration
	}
	hour := recommendHour
	if !cmd.Flags().Changed("hour") {
		hour = time.Now().Hour()
	}
	if hour < 0 || hour > 23 {
		return fmt.Errorf("--hour must be between 0 and 23")
	}

	logger := stderrLogger()
	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()
	history, err := st.AllSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	seconds := recommend.Duration(history, hour)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Recommended for %02d:00: %s (default %s)\n",
		hour, stats.FormatDuration(float64(seconds)), stats.FormatDuration(float64(defaultSeconds)))
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export session history as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", export.FormatJSON, "output format (json, yaml)")
	cmd.Flags().IntVar(&exportDays, "days", stats.DefaultDays, "window length in days")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	if err := validateDays(exportDays); err != nil {
		return err
	}

	logger := stderrLogger()
	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()
	report, err := stats.BuildReport(ctx, st, model.StatsConfig{Days: exportDays})
	if err != nil {
		return err
	}
	doc := export.FromReport(report)

	if exportOutput == "" {
		return export.Write(cmd.OutOrStdout(), format, doc)
	}
	file, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := export.Write(file, format, doc); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	logger.Info("exported sessions", "path", exportOutput, "sessions", len(doc.Sessions))
	return nil
}

func newRemindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Print study reminders on a schedule",
		Args:  cobra.NoArgs,
		RunE:  runRemindCmd,
	}
	cmd.Flags().StringVar(&remindSchedule, "schedule", "", "cron schedule with seconds (default: best study time)")
	cmd.Flags().IntVar(&remindDays, "days", stats.DefaultDays, "history window used to find the best study time")
	return cmd
}

func runRemindCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "schedule", &remindSchedule, fileCfg.Reminder.Schedule)
	applyIntConfig(cmd, "days", &remindDays, fileCfg.Stats.Days)
	if err := validateDays(remindDays); err != nil {
		return err
	}

	logger := stderrLogger()
	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	planCtx, cancel := withTimeout(ctx)
	expr, message, err := reminder.Plan(planCtx, st, time.Now(), remindDays, strings.TrimSpace(remindSchedule))
	cancel()
	if errors.Is(err, reminder.ErrNoBestTime) {
		return fmt.Errorf("%w: record some sessions or pass --schedule", err)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	svc := reminder.New(logger, func(r reminder.Reminder) {
		if _, err := fmt.Fprintf(out, "%s  %s\n", r.FiredAt.Format("15:04"), r.Message); err != nil {
			logger.Warn("failed to print reminder", "error", err)
		}
	})
	if err := svc.Add(expr, message); err != nil {
		return err
	}
	logger.Info("reminders scheduled", "schedule", expr)
	for _, next := range svc.Next() {
		if !next.IsZero() {
			if _, err := fmt.Fprintf(out, "Next reminder: %s\n", next.Format("2006-01-02 15:04")); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}
	return svc.Run(ctx)
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
	if err := config.EnsureConfig(path); err != nil {
		return err
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

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all sessions and cached stats",
		Args:  cobra.NoArgs,
		RunE:  runClearCmd,
	}
	cmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion")
	return cmd
}

func runClearCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	if !clearYes {
		return fmt.Errorf("refusing to delete history without --yes")
	}
	logger := stderrLogger()
	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()
	if err := st.Clear(ctx); err != nil {
		return err
	}
	logger.Info("history cleared")
	return nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, commandTimeout)
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

func applyStringSliceConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]string(nil), value...)
}

func validateConfig(cfg model.Config) error {
	if cfg.DurationSeconds <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	if cfg.DurationSeconds > maxDurationSeconds {
		return fmt.Errorf("--duration must be at most %d", maxDurationSeconds)
	}
	return nil
}

func validateDays(days int) error {
	if days <= 0 || days > maxDays {
		return fmt.Errorf("--days must be between 1 and %d", maxDays)
	}
	return nil
}
