// Package session holds the interactive view state: the game list, the game
// view command loop and the background tasks feeding it.
package session

import (
	"go.uber.org/zap"
)

// Queue hands items from background tasks to the main loop. Put never
// blocks: when the queue is full the oldest item is dropped, since each
// live update carries the full game.
type Queue[T any] struct {
	items  chan T
	ready  chan struct{}
	logger *zap.Logger
}

// NewQueue creates a queue holding up to size items.
func NewQueue[T any](size int, logger *zap.Logger) *Queue[T] {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue[T]{
		items:  make(chan T, size),
		ready:  make(chan struct{}, 1),
		logger: logger,
	}
}

// Put enqueues item.
func (q *Queue[T]) Put(item T) {
	for {
		select {
		case q.items <- item:
			select {
			case q.ready <- struct{}{}:
			default:
			}
			return
		default:
		}
		select {
		case <-q.items:
			q.logger.Debug("update queue full, dropped oldest item")
		default:
		}
	}
}

// Drain returns everything queued right now, oldest first, without waiting.
func (q *Queue[T]) Drain() []T {
	var out []T
	for {
		select {
		case item := <-q.items:
			out = append(out, item)
		default:
			return out
		}
	}
}

// Ready fires after Put. It may fire for items already drained.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.items)
}
