package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/jacokyle01/blindbase/src/models"
	"github.com/jacokyle01/blindbase/src/rules"
)

var (
	// ErrStreamTerminated marks an analysis stream that ended on its own.
	ErrStreamTerminated = errors.New("analysis stream terminated")
	// ErrGameOver is returned when analysis is requested for a finished position.
	ErrGameOver = errors.New("game is over")
)

// Analyzer opens analysis streams. An implementation may allow only one open
// stream at a time.
type Analyzer interface {
	Analyze(ctx context.Context, fen string, lines int) (Stream, error)
}

// Stream yields samples in engine order, which is not depth order.
type Stream interface {
	Next(ctx context.Context) (models.Sample, error)
	Close() error
}

// DefaultJoinTimeout bounds Stop when Options leaves it unset.
const DefaultJoinTimeout = 3 * time.Second

// Options tune a Session.
type Options struct {
	JoinTimeout time.Duration
	Now         func() time.Time
}

// Session is one running analysis of one position.
type Session struct {
	ID string

	logger    *zap.Logger
	opts      Options
	cancel    context.CancelFunc
	snapshots chan models.Snapshot
	done      chan struct{}
	stopOnce  sync.Once
}

// Start opens a stream for pos and consumes it in a goroutine. The first
// snapshot on Snapshots is the placeholder one.
func Start(ctx context.Context, logger *zap.Logger, a Analyzer, r rules.Rules, pos *chess.Position, lines int, opts Options) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if over, result := r.IsTerminal(pos); over {
		return nil, fmt.Errorf("%w: %s", ErrGameOver, result)
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = DefaultJoinTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(ctx)
	stream, err := a.Analyze(ctx, pos.String(), lines)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &Session{
		ID:        uuid.NewString(),
		opts:      opts,
		cancel:    cancel,
		snapshots: make(chan models.Snapshot, 1),
		done:      make(chan struct{}),
	}
	s.logger = logger.With(zap.String("session", s.ID))
	s.logger.Debug("analysis started", zap.String("fen", pos.String()), zap.Int("lines", lines))

	agg := NewAggregator(r, pos, lines, opts.Now())
	s.publish(agg.Initial())
	go s.run(ctx, stream, agg)
	return s, nil
}

// Snapshots delivers the latest snapshot. Older undelivered snapshots are
// replaced. The channel is closed when the session ends.
func (s *Session) Snapshots() <-chan models.Snapshot {
	return s.snapshots
}

// Done is closed when the consuming goroutine has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stop cancels the session and waits up to timeout for it to finish. It
// reports whether the goroutine returned in time. A zero timeout uses the
// session's join timeout.
func (s *Session) Stop(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = s.opts.JoinTimeout
	}
	s.stopOnce.Do(s.cancel)
	select {
	case <-s.done:
		return true
	case <-time.After(timeout):
		s.logger.Warn("analysis did not stop in time", zap.Duration("timeout", timeout))
		return false
	}
}

func (s *Session) run(ctx context.Context, stream Stream, agg *Aggregator) {
	defer close(s.done)
	defer close(s.snapshots)
	defer func() {
		if err := stream.Close(); err != nil {
			s.logger.Debug("closing analysis stream", zap.Error(err))
		}
	}()

	for {
		sample, err := stream.Next(ctx)
		if ctx.Err() != nil {
			s.logger.Debug("analysis cancelled", zap.Int("depth", agg.Depth()))
			return
		}
		if err != nil {
			if !errors.Is(err, ErrStreamTerminated) {
				err = fmt.Errorf("%w: %v", ErrStreamTerminated, err)
			}
			s.logger.Warn("analysis stream ended", zap.Error(err))
			last := agg.Latest()
			last.Err = err.Error()
			s.publish(last)
			return
		}
		if snap, ok := agg.Add(sample, s.opts.Now()); ok {
			s.publish(snap)
		}
	}
}

// publish never blocks; the run goroutine is the only sender.
func (s *Session) publish(snap models.Snapshot) {
	select {
	case s.snapshots <- snap:
		return
	default:
	}
	select {
	case <-s.snapshots:
	default:
	}
	s.snapshots <- snap
}
