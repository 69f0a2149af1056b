package lichess

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Follow streams a broadcast game and calls emit with every complete PGN
// blob, reconnecting until ctx is done. Blobs are passed on unparsed.
func (c *Client) Follow(ctx context.Context, roundID, gameID string, emit func(string)) error {
	u := fmt.Sprintf("%s/api/broadcast/round/%s/game/%s.pgn/stream",
		c.baseURL, url.PathEscape(roundID), url.PathEscape(gameID))
	logger := c.logger.With(zap.String("round", roundID), zap.String("game", gameID))
	logger.Info("following broadcast game")

	for {
		err := c.streamOnce(ctx, u, emit)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := c.idleDelay
		if err != nil {
			logger.Warn("broadcast stream failed", zap.Error(err))
			delay = c.retryDelay
		} else {
			logger.Debug("broadcast stream ended, reconnecting")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) streamOnce(ctx context.Context, u string, emit func(string)) error {
	resp, err := c.get(ctx, c.stream, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var blob strings.Builder
	flush := func() {
		if blob.Len() > 0 {
			emit(blob.String())
			blob.Reset()
		}
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line != "" {
			blob.WriteString(line)
			blob.WriteByte('\n')
			continue
		}
		// A blank line separates headers from movetext as well as one
		// update from the next.
		if strings.HasPrefix(strings.TrimSpace(lastLine(blob.String())), "[") {
			blob.WriteByte('\n')
			continue
		}
		flush()
	}
	flush()
	return errors.Wrap(scanner.Err(), "reading broadcast stream")
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
