package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jacokyle01/blindbase/src/config"
	"github.com/jacokyle01/blindbase/src/lichess"
	"github.com/jacokyle01/blindbase/src/render"
	"github.com/jacokyle01/blindbase/src/rules"
	"github.com/jacokyle01/blindbase/src/session"
	"github.com/jacokyle01/blindbase/src/storage"
	"github.com/jacokyle01/blindbase/src/worker"
)

var (
	verbose      bool
	settingsPath string

	settings *config.Settings
	logger   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "blindbase [pgn_file] [engine_path]",
	Short: "Blindfold chess trainer and PGN browser",
	Long: `blindbase browses and edits the games of a PGN file as text, runs a UCI
engine on any position, and follows Lichess broadcasts live.

Both arguments are optional. pgn_file defaults to default_pgn_filename in
pgn_file_directory; engine_path defaults to the engine_path setting.`,
	Args: cobra.MaximumNArgs(2),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.Load(settingsPath)
		if err != nil {
			return err
		}

		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stderr"}
		if settings.LogFile != "" {
			cfg.OutputPaths = []string{settings.LogFile}
		} else if cmd == cmd.Root() {
			// stderr shares the terminal with the interactive screens
			cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
		}
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runInteractive,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "config", config.DefaultPath, "settings file")
	rootCmd.AddCommand(analyzeCmd, pgnCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// resolvePGNPath keeps absolute paths and places relative ones under the
// configured directory.
func resolvePGNPath(arg string) string {
	if arg == "" {
		return settings.PGNPath()
	}
	if filepath.IsAbs(arg) {
		return arg
	}
	return filepath.Join(settings.PGNFileDirectory, arg)
}

func enginePath(args []string, i int) string {
	if len(args) > i && args[i] != "" {
		return args[i]
	}
	return settings.EnginePath
}

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	var pgnArg string
	if len(args) > 0 {
		pgnArg = args[0]
	}
	std := rules.Standard{}

	store, err := storage.Open(resolvePGNPath(pgnArg), std, logger)
	if err != nil {
		return err
	}
	out := render.New(os.Stdout)
	for _, skipped := range store.Skipped() {
		out.Error(skipped)
	}
	logger.Info("games loaded", zap.String("path", store.Path()), zap.Int("games", store.Len()),
		zap.Int("skipped", len(store.Skipped())))

	engine := worker.NewClient(enginePath(args, 1), logger)
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("engine shutdown", zap.Error(err))
		}
	}()

	app := session.New(session.Deps{
		Logger:       logger,
		Settings:     settings,
		SettingsPath: settingsPath,
		Store:        store,
		Analyzer:     engine,
		Lichess: lichess.NewClient(settings.LichessBaseURL, settings.ExplorerBaseURL,
			settings.GetRequestTimeout(), std, logger),
		Rules: std,
		Out:   out,
		In:    os.Stdin,
	})
	return app.Run(ctx)
}
