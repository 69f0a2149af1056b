// Package storage keeps the user's games in a single PGN file.
package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jacokyle01/blindbase/src/movetree"
	"github.com/jacokyle01/blindbase/src/rules"
)

// BackupSuffix is appended to the games file for the copy taken before
// every save.
const BackupSuffix = ".backup"

var (
	ErrNoGame        = errors.New("no such game")
	ErrInvalidResult = errors.New("result must be one of 1-0, 0-1, 1/2-1/2, *")
	ErrInvalidElo    = errors.New("rating must be a number")
)

// Store holds the games of one PGN file in file order.
type Store struct {
	path   string
	rules  rules.Rules
	logger *zap.Logger
	now    func() time.Time

	games   []*movetree.Tree
	current int
	skipped []error

	lastSave atomic.Int64 // unix nanos, read by the watcher
}

// Open loads path, creating it and its directory when missing.
func Open(path string, r rules.Rules, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, rules: r, logger: logger.With(zap.String("file", path)), now: time.Now}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating directory %s", dir)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.logger.Info("games file not found, creating it")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return nil, errors.Wrapf(err, "creating %s", path)
		}
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory games with the file contents. Malformed
// records are skipped and reported by Skipped.
func (s *Store) Load() error {
	f, err := os.Open(s.path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", s.path)
	}
	defer f.Close()

	games, errs := movetree.ParseAll(s.rules, f)
	for _, err := range errs {
		s.logger.Warn("skipping malformed game", zap.Error(err))
	}
	s.games, s.skipped = games, errs
	s.clampCurrent()
	s.logger.Info("games loaded", zap.Int("games", len(games)), zap.Int("skipped", len(errs)))
	return nil
}

// Path returns the games file.
func (s *Store) Path() string { return s.path }

// Len returns the number of games.
func (s *Store) Len() int { return len(s.games) }

// Skipped returns the record errors of the last Load.
func (s *Store) Skipped() []error { return s.skipped }

// Current returns the index of the selected game.
func (s *Store) Current() int { return s.current }

// Select makes game i current.
func (s *Store) Select(i int) error {
	if i < 0 || i >= len(s.games) {
		return errors.Wrapf(ErrNoGame, "game %d", i+1)
	}
	s.current = i
	return nil
}

// Game returns game i.
func (s *Store) Game(i int) (*movetree.Tree, error) {
	if i < 0 || i >= len(s.games) {
		return nil, errors.Wrapf(ErrNoGame, "game %d", i+1)
	}
	return s.games[i], nil
}

// Replace stores t as game i, as after editing a copy.
func (s *Store) Replace(i int, t *movetree.Tree) error {
	if i < 0 || i >= len(s.games) {
		return errors.Wrapf(ErrNoGame, "game %d", i+1)
	}
	s.games[i] = t
	return nil
}

// Dirty reports whether any game has unsaved changes.
func (s *Store) Dirty() bool {
	for _, g := range s.games {
		if g.Dirty() {
			return true
		}
	}
	return false
}

// Save copies the current file to the backup and writes every game.
func (s *Store) Save() error {
	if err := copyFile(s.path, s.path+BackupSuffix); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return errors.Wrap(err, "writing backup")
	}

	var buf bytes.Buffer
	for i, g := range s.games {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if _, err := g.WriteTo(&buf); err != nil {
			return errors.Wrapf(err, "serializing game %d", i+1)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", tmp)
	}
	s.lastSave.Store(s.now().UnixNano())
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(err, "replacing %s", s.path)
	}
	for _, g := range s.games {
		g.MarkSaved()
	}
	s.logger.Info("games saved", zap.Int("games", len(s.games)))
	return nil
}

// NewGame describes the headers of a game entered by hand. Empty optional
// fields are left out of the record.
type NewGame struct {
	White, Black       string
	WhiteElo, BlackElo string
	Result             string
	Event, Site, Round string
	Date               string // YYYY.MM.DD, today when empty
}

// Add validates g, appends it and makes it current.
func (s *Store) Add(g NewGame) (int, error) {
	result := strings.TrimSpace(g.Result)
	switch result {
	case "":
		result = "*"
	case "1-0", "0-1", "1/2-1/2", "*":
	default:
		return 0, errors.Wrapf(ErrInvalidResult, "got %q", result)
	}
	for _, elo := range []string{g.WhiteElo, g.BlackElo} {
		if elo != "" && !digits(elo) {
			return 0, errors.Wrapf(ErrInvalidElo, "got %q", elo)
		}
	}

	date := strings.TrimSpace(g.Date)
	if date == "" {
		date = s.now().Format("2006.01.02")
	}
	h := movetree.Headers{
		{Key: "Event", Value: orDefault(g.Event, "?")},
		{Key: "Site", Value: orDefault(g.Site, "?")},
		{Key: "Date", Value: date},
		{Key: "Round", Value: orDefault(g.Round, "?")},
		{Key: "White", Value: orDefault(g.White, "Unknown")},
		{Key: "Black", Value: orDefault(g.Black, "Unknown")},
		{Key: "Result", Value: result},
	}
	if g.WhiteElo != "" {
		h.Set("WhiteElo", g.WhiteElo)
	}
	if g.BlackElo != "" {
		h.Set("BlackElo", g.BlackElo)
	}

	t := movetree.New(s.rules, h)
	s.games = append(s.games, t)
	s.current = len(s.games) - 1
	s.logger.Info("game added", zap.Int("games", len(s.games)))
	return s.current, nil
}

// Delete removes game i. The current index keeps pointing at the same game
// when possible.
func (s *Store) Delete(i int) error {
	if i < 0 || i >= len(s.games) {
		return errors.Wrapf(ErrNoGame, "game %d", i+1)
	}
	s.games = append(s.games[:i], s.games[i+1:]...)
	if s.current > i {
		s.current--
	}
	s.clampCurrent()
	return nil
}

// Page returns the half-open range of game indices on page (0-based) and
// the number of pages. An empty store has one empty page.
func (s *Store) Page(page, perPage int) (start, end, pages int) {
	if perPage < 1 {
		perPage = 1
	}
	pages = (len(s.games) + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}
	start = page * perPage
	end = start + perPage
	if end > len(s.games) {
		end = len(s.games)
	}
	return start, end, pages
}

func (s *Store) clampCurrent() {
	switch {
	case len(s.games) == 0:
		s.current = 0
	case s.current >= len(s.games):
		s.current = len(s.games) - 1
	case s.current < 0:
		s.current = 0
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying to %s", dst)
	}
	return out.Close()
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
