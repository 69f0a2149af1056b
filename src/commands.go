package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jacokyle01/blindbase/src/analysis"
	"github.com/jacokyle01/blindbase/src/movetree"
	"github.com/jacokyle01/blindbase/src/render"
	"github.com/jacokyle01/blindbase/src/rules"
	"github.com/jacokyle01/blindbase/src/worker"
)

var (
	analyzeDepth  int
	analyzeTime   time.Duration
	analyzeLines  int
	analyzeEngine string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [fen]",
	Short: "Print live engine analysis of one position",
	Long: `Runs the engine on fen, or on the starting position when fen is omitted,
and prints the analysis block as it deepens. Stops at --depth, after --time,
or on interrupt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var pgnCmd = &cobra.Command{
	Use:   "pgn [file]",
	Short: "Check a PGN file and print it normalized",
	Args:  cobra.ExactArgs(1),
	RunE:  runPGN,
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeDepth, "depth", 20, "stop once this depth is shown (0 for no limit)")
	analyzeCmd.Flags().DurationVar(&analyzeTime, "time", 0, "stop after this long (0 for no limit)")
	analyzeCmd.Flags().IntVar(&analyzeLines, "lines", 0, "number of lines (default engine_lines_count)")
	analyzeCmd.Flags().StringVar(&analyzeEngine, "engine", "", "engine binary (default engine_path)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	fen := ""
	if len(args) > 0 {
		fen = args[0]
	}
	std := rules.Standard{}
	pos, err := std.Start(fen)
	if err != nil {
		return err
	}
	lines := analyzeLines
	if lines <= 0 {
		lines = settings.EngineLinesCount
	}

	engine := worker.NewClient(enginePath([]string{analyzeEngine}, 0), logger)
	defer engine.Close()

	sess, err := analysis.Start(ctx, logger, engine, std, pos, lines,
		analysis.Options{JoinTimeout: settings.GetAnalysisJoinTimeout()})
	if err != nil {
		return err
	}
	defer func() {
		if !sess.Stop(0) {
			logger.Warn("analysis still running after stop", zap.String("session", sess.ID))
		}
	}()

	var deadline <-chan time.Time
	if analyzeTime > 0 {
		timer := time.NewTimer(analyzeTime)
		defer timer.Stop()
		deadline = timer.C
	}

	out := render.New(os.Stdout)
	height := render.AnalysisHeight(lines, 0)
	drawn := 0
	for {
		select {
		case snap, ok := <-sess.Snapshots():
			if !ok {
				return nil
			}
			out.Block(out.Analysis(snap, lines, 0), drawn)
			drawn = height
			if snap.Err != "" {
				return fmt.Errorf("analysis stopped: %s", snap.Err)
			}
			if analyzeDepth > 0 && snap.Depth >= analyzeDepth {
				return nil
			}
		case <-deadline:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func runPGN(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	games, errs := movetree.ParseAll(rules.Standard{}, f)
	out := render.New(os.Stdout)
	for _, e := range errs {
		out.Error(e)
	}
	out.Info(fmt.Sprintf("%d games read, %d skipped", len(games), len(errs)))
	for _, g := range games {
		out.Println(g.Serialize())
	}
	return nil
}
