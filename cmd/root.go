package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abhisek/campus/internal/config"
	"github.com/abhisek/campus/internal/enrollment"
	"github.com/abhisek/campus/internal/logger"
	"github.com/abhisek/campus/internal/store"
)

var rootCmd = &cobra.Command{
	Use:          "campus",
	Short:        "Course progress and quizzes in the terminal",
	Long:         "Campus tracks progress through formations, blocks, chapters and lessons, scores quizzes, and relays questions to a study assistant.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides CAMPUS_DB env var)")
	rootCmd.PersistentFlags().String("user", "", "Learner ID (overrides CAMPUS_USER env var)")
	rootCmd.PersistentFlags().String("env-file", "", "Load variables from this file (default .env if present)")
	rootCmd.Flags().Bool("skip-welcome", false, "Open the home screen directly")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(formationsCmd)
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// env is what most commands need: settings, a logger and an open store.
type env struct {
	cfg    config.Config
	dbPath string
	log    *logger.Logger
	st     *store.Store
	writer *enrollment.Writer
	reader *enrollment.Reader
}

func (e *env) Close() {
	e.log.Sync()
	e.st.Close()
}

// loadConfig reads the env file and CAMPUS_* variables, then applies flag
// overrides. Flags win over the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadEnvFile(envFile, envFile != ""); err != nil {
		return config.Config{}, err
	}
	cfg := config.FromEnv()
	if u, _ := cmd.Flags().GetString("user"); u != "" {
		cfg.UserID = u
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// resolveDBPath returns the database path from --db or CAMPUS_DB, then the
// default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// openEnv loads settings and opens the store. logFile, when set, sends logs
// to a file next to the database instead of stderr.
func openEnv(cmd *cobra.Command, logFile string) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}

	opts := logger.Options{Level: cfg.LogLevel}
	if logFile != "" {
		opts.OutputPaths = []string{filepath.Join(filepath.Dir(dbPath), logFile)}
	}
	log, err := logger.New(cfg.LogMode, opts)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Debug("store opened", "path", dbPath, "user", cfg.UserID)

	return &env{
		cfg:    cfg,
		dbPath: dbPath,
		log:    log,
		st:     st,
		writer: enrollment.NewWriter(st, st.SnapshotRepo(), log),
		reader: enrollment.NewReader(st),
	}, nil
}
