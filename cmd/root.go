package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abhisek/studiz/internal/config"
)

var (
	cfg    config.Config
	logger *zap.Logger

	flagBaseURL string
	flagStudent string
	flagSubject string
	flagDB      string
	flagLogFile string
	flagTimeout time.Duration
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "studiz",
	Short: "Terminal study companion for the OpenStax knowledge-graph tutor",
	Long: "Studiz is a terminal client for the knowledge-graph tutor backend.\n" +
		"It streams answers token by token, quizzes you at your level, and keeps\n" +
		"a per-concept mastery profile in sync with the server.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: could not read .env:", err)
		}

		cfg = config.ConfigFromEnv()
		if flagBaseURL != "" {
			cfg.BaseURL = flagBaseURL
		}
		if flagStudent != "" {
			cfg.StudentID = flagStudent
		}
		if flagSubject != "" {
			cfg.Subject = flagSubject
		}
		if flagDB != "" {
			cfg.DBPath = flagDB
		}
		if flagLogFile != "" {
			cfg.LogFile = flagLogFile
		}
		if flagTimeout > 0 {
			cfg.Timeout = flagTimeout
		}
		if flagVerbose {
			cfg.LogLevel = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		var err error
		logger, err = newLogger(cfg)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds a file-backed zap logger. The TUI owns the terminal,
// so logs never go to stdout or stderr; without a log file the logger
// is a no-op.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.LogFile == "" {
		return zap.NewNop(), nil
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{cfg.LogFile}
	zc.ErrorOutputPaths = []string{cfg.LogFile}
	return zc.Build()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBaseURL, "base-url", "", "Backend base URL (overrides STUDIZ_BASE_URL)")
	pf.StringVar(&flagStudent, "student", "", "Student ID for mastery tracking (overrides STUDIZ_STUDENT_ID)")
	pf.StringVar(&flagSubject, "subject", "", "Subject to study, e.g. biology (overrides STUDIZ_SUBJECT)")
	pf.StringVar(&flagDB, "db", "", "Path to the SQLite cache (overrides STUDIZ_DB_PATH)")
	pf.StringVar(&flagLogFile, "log-file", "", "Write logs to this file (overrides STUDIZ_LOG_FILE)")
	pf.DurationVar(&flagTimeout, "timeout", 0, "HTTP request timeout (overrides STUDIZ_TIMEOUT)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(subjectsCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(versionCmd)
}
