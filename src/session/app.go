package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jacokyle01/blindbase/src/analysis"
	"github.com/jacokyle01/blindbase/src/config"
	"github.com/jacokyle01/blindbase/src/lichess"
	"github.com/jacokyle01/blindbase/src/render"
	"github.com/jacokyle01/blindbase/src/rules"
	"github.com/jacokyle01/blindbase/src/storage"
)

// Deps are the collaborators of an App. Analyzer and Lichess may be nil,
// which disables analysis and the online features.
type Deps struct {
	Logger       *zap.Logger
	Settings     *config.Settings
	SettingsPath string
	Store        *storage.Store
	Analyzer     analysis.Analyzer
	Lichess      *lichess.Client
	Rules        rules.Rules
	Out          *render.Renderer
	In           io.Reader
}

// App is the interactive program.
type App struct {
	Deps
	in      *Input
	notices *Queue[string]
	page    int
}

// New wires an App.
func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Rules == nil {
		d.Rules = rules.Standard{}
	}
	if d.Settings == nil {
		d.Settings = config.Default()
	}
	return &App{
		Deps:    d,
		in:      NewInput(d.In),
		notices: NewQueue[string](8, d.Logger),
	}
}

// Run shows the game list until the user quits or input ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Store.Watch(gctx, 250*time.Millisecond, func() {
			a.notices.Put("Games file changed on disk. Use 'r' to reload.")
		})
	})

	err := a.menu(ctx)
	cancel()
	if werr := joinWithin(g, a.Settings.GetAnalysisJoinTimeout()); werr != nil {
		a.Logger.Warn("background task", zap.Error(werr))
	}
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// joinWithin waits for g, giving up after timeout.
func joinWithin(g *errgroup.Group, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-time.After(timeout):
		return fmt.Errorf("background tasks did not stop within %s", timeout)
	}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

// ask prints a prompt and returns the trimmed answer.
func (a *App) ask(ctx context.Context, prompt string) (string, error) {
	a.Out.Prompt(prompt)
	line, err := a.in.ReadLine(ctx)
	if err != nil {
		a.Out.Println()
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// pause waits for Enter.
func (a *App) pause(ctx context.Context, prompt string) error {
	_, err := a.ask(ctx, prompt)
	return err
}

func (a *App) confirm(ctx context.Context, prompt string) (bool, error) {
	answer, err := a.ask(ctx, prompt+" (y/N): ")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y"), nil
}
