package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jacokyle01/blindbase/src/analysis"
	"github.com/jacokyle01/blindbase/src/livemerge"
	"github.com/jacokyle01/blindbase/src/movetree"
	"github.com/jacokyle01/blindbase/src/render"
)

const commandHelp = "Cmds: <mv>|# (e4,Nf3,1), [Ent](main), b(back), a(nalyze), r(ead), p(gn), d # (del var #), m(enu,save), q(menu,no save)"

// follow is the live state of a broadcast game.
type follow struct {
	round string
	game  string
	id    livemerge.GameID
	queue *Queue[string]
}

// GameView is the command loop of one game. It is the only mutator of
// tree; background tasks reach it through the follow queue.
type GameView struct {
	app    *App
	tree   *movetree.Tree
	index  int // position in the store, -1 for broadcasts
	follow *follow
}

// Run loops until the user leaves the game.
func (v *GameView) Run(ctx context.Context) error {
	if v.follow == nil {
		return v.loop(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return v.app.Lichess.Follow(gctx, v.follow.round, v.follow.game, v.follow.queue.Put)
	})
	err := v.loop(ctx)
	cancel()
	if werr := joinWithin(g, v.app.Settings.GetAnalysisJoinTimeout()); werr != nil {
		v.app.Logger.Warn("broadcast follower", zap.Error(werr))
	}
	return err
}

func (v *GameView) title() string {
	prefix := "Broadcast Game"
	if v.follow == nil {
		prefix = fmt.Sprintf("Game %d", v.index+1)
	}
	return fmt.Sprintf("%s: %s vs %s", prefix, orNA(v.tree.Header("White")), orNA(v.tree.Header("Black")))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func (v *GameView) loop(ctx context.Context) error {
	status := ""
	for {
		if s := v.applyUpdates(); s != "" && status == "" {
			status = s
		}
		v.draw(ctx, status)
		status = ""

		line, err := v.readCommand(ctx)
		if err != nil {
			return err
		}
		if line == nil {
			continue // live update arrived, redraw
		}
		var done bool
		status, done, err = v.handle(ctx, *line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// readCommand waits for a command. In broadcast mode a live update also
// ends the wait, reported as a nil line.
func (v *GameView) readCommand(ctx context.Context) (*string, error) {
	v.app.Out.Println(commandHelp)
	v.app.Out.Prompt("Command: ")
	var ready <-chan struct{}
	if v.follow != nil {
		ready = v.follow.queue.Ready()
	}
	select {
	case line, ok := <-v.app.in.Lines():
		if !ok {
			return nil, io.EOF
		}
		return &line, nil
	case <-ready:
		v.app.Out.Println()
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// applyUpdates merges every queued live update in receipt order.
func (v *GameView) applyUpdates() string {
	if v.follow == nil {
		return ""
	}
	status := ""
	for _, blob := range v.follow.queue.Drain() {
		merged, res, err := livemerge.Apply(v.app.Rules, v.tree, blob, v.follow.id)
		if err != nil {
			v.app.Logger.Debug("live update rejected", zap.Error(err))
			if errors.Is(err, livemerge.ErrMismatch) {
				status = "Live update ignored: " + err.Error()
			}
			continue
		}
		v.tree = merged
		status = ""
		if res.FellBack {
			status = "Live update: jumped to the latest move."
		}
	}
	return status
}

func (v *GameView) draw(ctx context.Context, status string) {
	out := v.app.Out
	out.Println()
	lines := out.Game(render.GameView{
		Title:     v.title(),
		Tree:      v.tree,
		ShowBoard: v.app.Settings.ShowChessboard,
		Broadcast: v.follow != nil,
		Status:    status,
	})
	for _, l := range lines {
		out.Println(l)
	}
	if over, _ := v.tree.Terminal(); !over {
		v.drawExplorer(ctx)
	}
}

func (v *GameView) drawExplorer(ctx context.Context) {
	n := v.app.Settings.LichessMovesCount
	if n == 0 || v.app.Lichess == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, v.app.Settings.GetRequestTimeout())
	defer cancel()
	op, err := v.app.Lichess.Masters(ctx, v.tree.Position().String())
	if err != nil {
		v.app.Logger.Debug("explorer request failed", zap.Error(err))
		v.app.Out.Println("Lichess Masters: " + err.Error())
		return
	}
	for _, l := range v.app.Out.Opening(op, n) {
		v.app.Out.Println(l)
	}
}

// handle runs one command and returns the status line to show next.
func (v *GameView) handle(ctx context.Context, line string) (status string, done bool, err error) {
	cmd := strings.TrimSpace(line)
	lower := strings.ToLower(cmd)
	switch {
	case lower == "m":
		return v.saveAndLeave()
	case lower == "q":
		if v.follow == nil && v.tree.Dirty() {
			ok, err := v.app.confirm(ctx, "Unsaved changes. Quit anyway?")
			if err != nil || !ok {
				return "", false, err
			}
		}
		return "", true, nil
	case lower == "b":
		if !v.tree.GoBack() {
			return "Already at starting position.", false, nil
		}
		return "", false, nil
	case lower == "r":
		for _, l := range v.app.Out.BoardReading(v.tree.Position()) {
			v.app.Out.Println(l)
		}
		v.app.Out.Rule()
		return "", false, v.app.pause(ctx, "Press Enter to continue...")
	case lower == "p":
		v.app.Out.Title(fmt.Sprintf("--- PGN for %s ---", strings.SplitN(v.title(), ":", 2)[0]))
		v.app.Out.Printf("%s", v.tree.Serialize())
		v.app.Out.Rule()
		return "", false, v.app.pause(ctx, "Press Enter to return to game...")
	case lower == "a":
		return v.analyze(ctx)
	case strings.HasPrefix(lower, "d "):
		n, convErr := strconv.Atoi(strings.TrimSpace(cmd[2:]))
		if convErr != nil {
			return "Invalid delete variation command. Use 'd <number>'.", false, nil
		}
		pos := v.tree.Position()
		m, err := v.tree.DeleteBranch(n)
		if err != nil {
			return err.Error(), false, nil
		}
		return fmt.Sprintf("Variation %d (%s) deleted.", n, v.app.Rules.Notate(pos, m)), false, nil
	}

	pos := v.tree.Position()
	m, err := v.tree.Play(cmd)
	switch {
	case errors.Is(err, movetree.ErrNoMoveAvailable):
		return "No main line move available or already at end.", false, nil
	case errors.Is(err, movetree.ErrInvalidBranch):
		return err.Error(), false, nil
	case err != nil:
		return "Invalid move or command.", false, nil
	}
	return "Move made: " + v.app.Rules.Notate(pos, m), false, nil
}

func (v *GameView) saveAndLeave() (string, bool, error) {
	if v.follow != nil {
		v.app.Out.Info("Broadcast game, no save needed.")
		return "", true, nil
	}
	if !v.tree.Dirty() {
		v.app.Out.Info("No changes to save.")
		return "", true, nil
	}
	if err := v.app.Store.Replace(v.index, v.tree); err != nil {
		return "", false, err
	}
	if err := v.app.Store.Save(); err != nil {
		v.app.Out.Error(err)
		return "Error saving PGN file.", false, nil
	}
	v.app.Out.Info("Changes saved to PGN file.")
	return "", true, nil
}

// analyze runs engine analysis of the current position until Enter.
func (v *GameView) analyze(ctx context.Context) (string, bool, error) {
	app := v.app
	if app.Analyzer == nil {
		return "No engine configured.", false, nil
	}
	lines, padding := app.Settings.EngineLinesCount, app.Settings.AnalysisBlockPadding
	sess, err := analysis.Start(ctx, app.Logger, app.Analyzer, app.Rules, v.tree.Position(), lines,
		analysis.Options{JoinTimeout: app.Settings.GetAnalysisJoinTimeout()})
	switch {
	case errors.Is(err, analysis.ErrGameOver):
		return "Cannot analyze finished game position.", false, nil
	case err != nil:
		app.Logger.Warn("analysis failed to start", zap.Error(err))
		return "Analysis unavailable: " + err.Error(), false, nil
	}

	app.Out.Println("Starting engine analysis... press Enter to stop.")
	height := render.AnalysisHeight(lines, padding)
	snapshots := sess.Snapshots()
	// Start has already published the placeholder snapshot.
	app.Out.Block(app.Out.Analysis(<-snapshots, lines, padding), 0)
	drawn := height
	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			app.Out.Block(app.Out.Analysis(snap, lines, padding), drawn)
			drawn = height
		case _, ok := <-app.in.Lines():
			if !sess.Stop(0) {
				app.Logger.Warn("analysis still running after stop", zap.String("session", sess.ID))
			}
			if !ok {
				return "", false, io.EOF
			}
			return "Analysis stopped.", false, nil
		case <-ctx.Done():
			sess.Stop(0)
			return "", false, ctx.Err()
		}
	}
}
