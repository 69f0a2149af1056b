package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jacokyle01/blindbase/src/analysis"
	"github.com/jacokyle01/blindbase/src/models"
)

var (
	// ErrBusy is returned when a stream is already open on the engine.
	ErrBusy = errors.New("engine is busy")
	// ErrExited is returned once the engine process has gone away.
	ErrExited = errors.New("engine exited")
)

const (
	handshakeTimeout = 10 * time.Second
	stopTimeout      = 2 * time.Second
)

// Engine wraps a UCI chess engine process.
type Engine struct {
	logger *zap.Logger
	cmd    *exec.Cmd

	mu    sync.Mutex // guards stdin
	stdin *bufio.Writer

	lines  chan string
	exited chan struct{}
	busy   atomic.Bool
}

var _ analysis.Analyzer = (*Engine)(nil)

// NewEngine starts the engine at path and completes the UCI handshake.
func NewEngine(ctx context.Context, path string, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cmd := exec.Command(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open engine stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine %s: %w", path, err)
	}

	e := &Engine{
		logger: logger.With(zap.String("engine", path)),
		cmd:    cmd,
		stdin:  bufio.NewWriter(stdin),
		lines:  make(chan string, 256),
		exited: make(chan struct{}),
	}
	go e.read(stdout)

	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if err := e.handshake(ctx); err != nil {
		e.Close()
		return nil, err
	}
	e.logger.Debug("engine ready")
	return e, nil
}

func (e *Engine) read(stdout io.Reader) {
	defer close(e.exited)
	defer close(e.lines)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		e.lines <- scanner.Text()
	}
}

func (e *Engine) handshake(ctx context.Context) error {
	if err := e.send("uci"); err != nil {
		return err
	}
	if err := e.waitFor(ctx, "uciok"); err != nil {
		return err
	}
	return e.sync(ctx)
}

// sync waits for readyok, dropping anything still queued before it.
func (e *Engine) sync(ctx context.Context) error {
	if err := e.send("isready"); err != nil {
		return err
	}
	return e.waitFor(ctx, "readyok")
}

func (e *Engine) send(cmd string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.stdin.WriteString(cmd + "\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrExited, err)
	}
	if err := e.stdin.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrExited, err)
	}
	return nil
}

func (e *Engine) waitFor(ctx context.Context, prefix string) error {
	for {
		select {
		case line, ok := <-e.lines:
			if !ok {
				return ErrExited
			}
			if strings.HasPrefix(line, prefix) {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", prefix, ctx.Err())
		}
	}
}

// Alive reports whether the process is still running.
func (e *Engine) Alive() bool {
	select {
	case <-e.exited:
		return false
	default:
		return true
	}
}

// Analyze starts an infinite multi-line search of fen. Only one stream may be
// open at a time; the search stops when the stream is closed.
func (e *Engine) Analyze(ctx context.Context, fen string, lines int) (analysis.Stream, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	start := func() error {
		if err := e.send(fmt.Sprintf("setoption name MultiPV value %d", lines)); err != nil {
			return err
		}
		if err := e.sync(ctx); err != nil {
			return err
		}
		if err := e.send("position fen " + fen); err != nil {
			return err
		}
		return e.send("go infinite")
	}
	if err := start(); err != nil {
		e.busy.Store(false)
		return nil, err
	}
	e.logger.Debug("search started", zap.String("fen", fen), zap.Int("lines", lines))
	return &stream{engine: e}, nil
}

// Close asks the engine to quit and reaps the process.
func (e *Engine) Close() error {
	_ = e.send("quit")
	done := make(chan error, 1)
	go func() {
		// Wait must not run before stdout is fully read.
		for range e.lines {
		}
		done <- e.cmd.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(stopTimeout):
		e.logger.Warn("engine ignored quit, killing it")
		_ = e.cmd.Process.Kill()
		return <-done
	}
}

type stream struct {
	engine *Engine
	once   sync.Once
}

func (s *stream) Next(ctx context.Context) (models.Sample, error) {
	for {
		select {
		case line, ok := <-s.engine.lines:
			if !ok {
				return models.Sample{}, fmt.Errorf("%w: %v", analysis.ErrStreamTerminated, ErrExited)
			}
			if strings.HasPrefix(line, "bestmove") {
				return models.Sample{}, fmt.Errorf("%w: search ended (%s)", analysis.ErrStreamTerminated, line)
			}
			if sample, ok := ParseInfo(line); ok {
				return sample, nil
			}
		case <-ctx.Done():
			return models.Sample{}, ctx.Err()
		}
	}
}

// Close stops the search and waits for its bestmove so the next search
// starts from a quiet engine.
func (s *stream) Close() error {
	var err error
	s.once.Do(func() {
		defer s.engine.busy.Store(false)
		if err = s.engine.send("stop"); err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		err = s.engine.waitFor(ctx, "bestmove")
	})
	return err
}

// ParseInfo extracts a sample from a UCI info line. Lines without a depth
// and a score are not samples.
func ParseInfo(line string) (models.Sample, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 || parts[0] != "info" {
		return models.Sample{}, false
	}

	s := models.Sample{Line: 1}
	hasDepth, hasScore := false, false
	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				if n, err := strconv.Atoi(parts[i+1]); err == nil {
					s.Depth, hasDepth = n, true
				}
				i++
			}
		case "multipv":
			if i+1 < len(parts) {
				if n, err := strconv.Atoi(parts[i+1]); err == nil {
					s.Line = n
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				n, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						s.Score, hasScore = models.Centipawns(n), true
					case "mate":
						s.Score, hasScore = models.MateIn(n), true
					}
				}
				i += 2
			}
		case "nodes":
			if i+1 < len(parts) {
				s.Nodes, _ = strconv.ParseInt(parts[i+1], 10, 64)
				i++
			}
		case "nps":
			if i+1 < len(parts) {
				s.NPS, _ = strconv.ParseInt(parts[i+1], 10, 64)
				i++
			}
		case "pv":
			s.PV = append([]string(nil), parts[i+1:]...)
			i = len(parts)
		case "string":
			return models.Sample{}, false
		}
	}
	if !hasDepth || !hasScore {
		return models.Sample{}, false
	}
	return s, true
}
