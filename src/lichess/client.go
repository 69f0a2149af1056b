// Package lichess talks to the lichess broadcast and opening explorer APIs.
package lichess

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jacokyle01/blindbase/src/models"
	"github.com/jacokyle01/blindbase/src/movetree"
	"github.com/jacokyle01/blindbase/src/rules"
)

const (
	DefaultBaseURL     = "https://lichess.org"
	DefaultExplorerURL = "https://explorer.lichess.ovh"
)

var siteGameID = regexp.MustCompile(`https://lichess\.org/(\w+)`)

// Client is a small lichess API client. Request-scoped calls use the
// configured timeout; streams are bounded only by their context.
type Client struct {
	baseURL     string
	explorerURL string
	http        *http.Client
	stream      *http.Client
	rules       rules.Rules
	logger      *zap.Logger
	openings    *openingCache

	retryDelay time.Duration
	idleDelay  time.Duration
}

// NewClient creates a client. Empty URLs select the public endpoints.
func NewClient(baseURL, explorerURL string, timeout time.Duration, r rules.Rules, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if explorerURL == "" {
		explorerURL = DefaultExplorerURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		explorerURL: strings.TrimRight(explorerURL, "/"),
		http:        &http.Client{Timeout: timeout},
		stream:      &http.Client{},
		rules:       r,
		logger:      logger,
		openings:    newOpeningCache(256),
		retryDelay:  5 * time.Second,
		idleDelay:   2 * time.Second,
	}
}

// Game is one game of a broadcast round.
type Game struct {
	ID   string
	Tree *movetree.Tree
}

// Title renders the participants for a menu.
func (g Game) Title() string {
	return fmt.Sprintf("%s vs %s", headerOr(g.Tree, "White"), headerOr(g.Tree, "Black"))
}

func headerOr(t *movetree.Tree, key string) string {
	if v := t.Header(key); v != "" {
		return v
	}
	return "N/A"
}

// GameID extracts the lichess game id from a Site header.
func GameID(site string) (string, bool) {
	m := siteGameID.FindStringSubmatch(site)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (c *Client) get(ctx context.Context, hc *http.Client, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", u)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", u)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("fetching %s: unexpected status %s", u, resp.Status)
	}
	return resp, nil
}

// Broadcasts lists the official broadcasts. Both the legacy
// {"official": [...]} document and the newline-delimited feed are accepted.
func (c *Client) Broadcasts(ctx context.Context) ([]models.Broadcast, error) {
	resp, err := c.get(ctx, c.http, c.baseURL+"/api/broadcast")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading broadcast list")
	}
	return decodeBroadcasts(body)
}

type broadcastEntry struct {
	models.Broadcast
	Tour *struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		StartDate int64  `json:"createdAt"`
	} `json:"tour"`
}

func decodeBroadcasts(body []byte) ([]models.Broadcast, error) {
	var legacy struct {
		Official []models.Broadcast `json:"official"`
	}
	if err := json.Unmarshal(body, &legacy); err == nil && legacy.Official != nil {
		return legacy.Official, nil
	}

	var out []models.Broadcast
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e broadcastEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, errors.Wrap(err, "decoding broadcast list")
		}
		b := e.Broadcast
		if e.Tour != nil {
			b.ID, b.Name, b.StartDate = e.Tour.ID, e.Tour.Name, e.Tour.StartDate
		}
		out = append(out, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading broadcast list")
	}
	return out, nil
}

// RoundGames fetches every game of a round. Records that do not parse are
// logged and left out.
func (c *Client) RoundGames(ctx context.Context, roundID string) ([]Game, error) {
	resp, err := c.get(ctx, c.http, fmt.Sprintf("%s/api/broadcast/round/%s.pgn", c.baseURL, url.PathEscape(roundID)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	trees, errs := movetree.ParseAll(c.rules, resp.Body)
	for _, err := range errs {
		c.logger.Warn("skipping broadcast game", zap.String("round", roundID), zap.Error(err))
	}
	games := make([]Game, 0, len(trees))
	for _, t := range trees {
		id, _ := GameID(t.Header("Site"))
		if id == "" {
			id, _ = GameID(t.Header("GameURL"))
		}
		games = append(games, Game{ID: id, Tree: t})
	}
	return games, nil
}

// Masters queries the masters opening explorer for fen. Answers are cached
// per position for the life of the client.
func (c *Client) Masters(ctx context.Context, fen string) (models.Opening, error) {
	if op, ok := c.openings.get(fen); ok {
		return op, nil
	}
	var op models.Opening
	resp, err := c.get(ctx, c.http, c.explorerURL+"/masters?fen="+url.QueryEscape(fen))
	if err != nil {
		return op, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return op, errors.Wrap(err, "decoding explorer response")
	}
	c.openings.put(fen, op)
	return op, nil
}
