package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jacokyle01/blindbase/src/config"
	"github.com/jacokyle01/blindbase/src/storage"
)

func (a *App) menu(ctx context.Context) error {
	status := ""
	for {
		for _, n := range a.notices.Drain() {
			status = n
		}
		a.drawMenu(status)
		status = ""

		choice, err := a.ask(ctx, "Command: ")
		if err != nil {
			return err
		}
		fields := strings.Fields(strings.ToLower(choice))
		action := ""
		if len(fields) > 0 {
			action = fields[0]
		}

		switch {
		case action == "q":
			return nil
		case action == "n":
			status, err = a.newGame(ctx)
		case action == "s":
			err = a.settingsMenu(ctx)
		case action == "r":
			if err = a.Store.Load(); err == nil {
				status = "PGN file reloaded."
			}
		case action == "b":
			err = a.broadcastMenu(ctx)
		case action == "p":
			a.page--
		case action == "f":
			a.page++
		case action == "d" && len(fields) == 2:
			status, err = a.deleteGame(ctx, fields[1])
		case action != "":
			n, convErr := strconv.Atoi(action)
			if convErr != nil || a.Store.Select(n-1) != nil {
				status = "Invalid option."
				continue
			}
			err = a.viewStoredGame(ctx, n-1)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || isEOF(err) {
				return err
			}
			a.Logger.Warn("menu command failed", zap.String("command", choice), zap.Error(err))
			status = "Error: " + err.Error()
		}
	}
}

func (a *App) drawMenu(status string) {
	perPage := a.Settings.GamesPerPage
	start, end, pages := a.Store.Page(a.page, perPage)
	if a.page < 0 {
		a.page = 0
	}
	if a.page >= pages {
		a.page = pages - 1
	}

	a.Out.Println()
	a.Out.Title("--- GAME SELECTION MENU ---")
	total := a.Store.Len()
	if total == 0 {
		a.Out.Println("No games loaded.")
		a.Out.Println("Current selection: N/A")
		a.Out.Rule()
		a.Out.Println("Commands: 'n' (new game), 'r' (reload PGN), 's' (settings), 'b' (broadcasts), 'q' (quit)")
	} else {
		a.Out.Printf("Total games: %d. Displaying %d-%d (Page %d of %d)\n", total, start+1, end, a.page+1, pages)
		a.Out.Printf("Current selection: %d\n", a.Store.Current()+1)
		a.Out.Rule()
		for i := start; i < end; i++ {
			g, _ := a.Store.Game(i)
			a.Out.Println(a.Out.GameLine(i, g, i == a.Store.Current()))
		}
		cmds := []string{"<num> (view)", "'n'(new)", "'s'(set)", "'r'(reload)", "'b'(broadcasts)"}
		if a.page > 0 {
			cmds = append(cmds, "'p'(prev page)")
		}
		if a.page < pages-1 {
			cmds = append(cmds, "'f'(next page)")
		}
		cmds = append(cmds, "'d <num>'(del)", "'q'(quit)")
		a.Out.Println("Cmds: " + strings.Join(cmds, ", "))
	}
	if status != "" {
		a.Out.Info(status)
	}
}

func (a *App) newGame(ctx context.Context) (string, error) {
	a.Out.Title("--- Add New Game ---")
	var g storage.NewGame
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"White player name (default: Unknown): ", &g.White},
		{"Black player name (default: Unknown): ", &g.Black},
		{"White ELO (optional): ", &g.WhiteElo},
		{"Black ELO (optional): ", &g.BlackElo},
		{"Result (1-0, 0-1, 1/2-1/2, * default): ", &g.Result},
		{"Event (optional): ", &g.Event},
		{"Site (optional): ", &g.Site},
		{"Date (YYYY.MM.DD, Enter for today): ", &g.Date},
		{"Round (optional): ", &g.Round},
	}
	for _, f := range fields {
		v, err := a.ask(ctx, f.prompt)
		if err != nil {
			return "", err
		}
		*f.dst = v
	}
	if _, err := a.Store.Add(g); err != nil {
		return "", err
	}
	if err := a.Store.Save(); err != nil {
		return "", err
	}
	return fmt.Sprintf("New game added and PGN saved. Total games: %d", a.Store.Len()), nil
}

func (a *App) deleteGame(ctx context.Context, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return "Use 'd <num>'.", nil
	}
	g, err := a.Store.Game(n - 1)
	if err != nil {
		return "", err
	}
	ok, err := a.confirm(ctx, fmt.Sprintf("Delete game %d (%s vs %s)?", n, g.Header("White"), g.Header("Black")))
	if err != nil || !ok {
		return "", err
	}
	if err := a.Store.Delete(n - 1); err != nil {
		return "", err
	}
	if err := a.Store.Save(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Game %d deleted.", n), nil
}

func (a *App) viewStoredGame(ctx context.Context, i int) error {
	g, err := a.Store.Game(i)
	if err != nil {
		return err
	}
	if err := g.StartErr(); err != nil {
		a.Out.Error(fmt.Errorf("ignoring FEN header: %w", err))
	}
	v := &GameView{app: a, tree: g.Clone(), index: i}
	return v.Run(ctx)
}

func (a *App) settingsMenu(ctx context.Context) error {
	status := ""
	for {
		a.Out.Println()
		a.Out.Title("--- SETTINGS ---")
		for i, k := range config.Keys() {
			v, _ := a.Settings.Get(k)
			a.Out.Printf("%d. %s: %s\n", i+1, k, v)
		}
		a.Out.Println("Cmds: <num> <value> (change), 'b' (back)")
		if status != "" {
			a.Out.Info(status)
		}
		line, err := a.ask(ctx, "Command: ")
		if err != nil {
			return err
		}
		if strings.EqualFold(line, "b") || line == "" {
			return nil
		}
		num, value, _ := strings.Cut(line, " ")
		n, err := strconv.Atoi(num)
		if err != nil || n < 1 || n > len(config.Keys()) {
			status = "Invalid option."
			continue
		}
		key := config.Keys()[n-1]
		if err := a.Settings.Set(key, value); err != nil {
			status = err.Error()
			continue
		}
		if a.SettingsPath != "" {
			if err := a.Settings.Save(a.SettingsPath); err != nil {
				return err
			}
		}
		v, _ := a.Settings.Get(key)
		status = fmt.Sprintf("%s set to %s", key, v)
	}
}
