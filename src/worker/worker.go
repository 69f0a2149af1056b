package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jacokyle01/blindbase/src/analysis"
)

// Client owns at most one engine process. The process is started on first
// use and restarted when it has died.
type Client struct {
	enginePath string
	logger     *zap.Logger

	mu     sync.Mutex
	engine *Engine
	start  func(ctx context.Context, path string, logger *zap.Logger) (*Engine, error)
}

var _ analysis.Analyzer = (*Client)(nil)

// NewClient creates a client for the engine binary at enginePath.
func NewClient(enginePath string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		enginePath: enginePath,
		logger:     logger,
		start:      NewEngine,
	}
}

// EnginePath returns the configured engine binary.
func (c *Client) EnginePath() string {
	return c.enginePath
}

// Analyze implements analysis.Analyzer.
func (c *Client) Analyze(ctx context.Context, fen string, lines int) (analysis.Stream, error) {
	e, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return e.Analyze(ctx, fen, lines)
}

func (c *Client) ensure(ctx context.Context) (*Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine != nil && c.engine.Alive() {
		return c.engine, nil
	}
	if c.engine != nil {
		c.logger.Warn("engine died, restarting")
		_ = c.engine.Close()
		c.engine = nil
	}
	e, err := c.start(ctx, c.enginePath, c.logger)
	if err != nil {
		return nil, err
	}
	c.engine = e
	return e, nil
}

// Close shuts the engine down if it was started.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return nil
	}
	err := c.engine.Close()
	c.engine = nil
	return err
}
