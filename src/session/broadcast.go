package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jacokyle01/blindbase/src/livemerge"
	"github.com/jacokyle01/blindbase/src/models"
)

var errNoLichess = errors.New("lichess access is not configured")

// pick shows numbered entries and returns the chosen 0-based index, or -1
// when the user goes back.
func (a *App) pick(ctx context.Context, title string, entries []string) (int, error) {
	status := ""
	for {
		a.Out.Println()
		a.Out.Title(title)
		if len(entries) == 0 {
			a.Out.Println("  None")
		}
		for i, e := range entries {
			a.Out.Printf("%3d. %s\n", i+1, e)
		}
		a.Out.Println("Commands: <number> (select), 'b' (back)")
		if status != "" {
			a.Out.Info(status)
		}
		choice, err := a.ask(ctx, "Select option: ")
		if err != nil {
			return -1, err
		}
		if strings.EqualFold(choice, "b") {
			return -1, nil
		}
		n, err := strconv.Atoi(choice)
		if err != nil || n < 1 || n > len(entries) {
			status = "Invalid option."
			continue
		}
		return n - 1, nil
	}
}

func (a *App) broadcastMenu(ctx context.Context) error {
	if a.Lichess == nil {
		return errNoLichess
	}
	broadcasts, err := a.Lichess.Broadcasts(ctx)
	if err != nil {
		return err
	}
	names := make([]string, len(broadcasts))
	for i, b := range broadcasts {
		names[i] = b.Name
	}
	for {
		i, err := a.pick(ctx, "--- BROADCASTS ---", names)
		if err != nil || i < 0 {
			return err
		}
		if err := a.roundMenu(ctx, broadcasts[i]); err != nil {
			return err
		}
	}
}

func (a *App) roundMenu(ctx context.Context, b models.Broadcast) error {
	names := make([]string, len(b.Rounds))
	for i, r := range b.Rounds {
		names[i] = r.Name
	}
	for {
		i, err := a.pick(ctx, "--- ROUNDS: "+b.Name+" ---", names)
		if err != nil || i < 0 {
			return err
		}
		if err := a.roundGamesMenu(ctx, b.Rounds[i]); err != nil {
			return err
		}
	}
}

func (a *App) roundGamesMenu(ctx context.Context, r models.Round) error {
	games, err := a.Lichess.RoundGames(ctx, r.ID)
	if err != nil {
		return err
	}
	titles := make([]string, len(games))
	for i, g := range games {
		titles[i] = g.Title()
	}
	for {
		i, err := a.pick(ctx, "--- GAMES: "+r.Name+" ---", titles)
		if err != nil || i < 0 {
			return err
		}
		g := games[i]
		if g.ID == "" {
			a.Out.Error(fmt.Errorf("game %q has no lichess id to follow", g.Title()))
			continue
		}
		v := &GameView{
			app:   a,
			tree:  g.Tree.Clone(),
			index: -1,
			follow: &follow{
				round: r.ID,
				game:  g.ID,
				id:    livemerge.IDOf(g.Tree),
				queue: NewQueue[string](16, a.Logger),
			},
		}
		if err := v.Run(ctx); err != nil {
			return err
		}
	}
}
