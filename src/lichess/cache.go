package lichess

import (
	"sync"

	"github.com/jacokyle01/blindbase/src/models"
)

// openingCache keeps explorer answers by FEN. When full, the oldest entry
// goes first.
type openingCache struct {
	mu    sync.RWMutex
	size  int
	order []string
	byFEN map[string]models.Opening
}

func newOpeningCache(size int) *openingCache {
	return &openingCache{
		size:  size,
		byFEN: make(map[string]models.Opening, size),
	}
}

func (c *openingCache) get(fen string) (models.Opening, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	op, ok := c.byFEN[fen]
	return op, ok
}

func (c *openingCache) put(fen string, op models.Opening) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byFEN[fen]; !ok {
		if len(c.order) >= c.size {
			delete(c.byFEN, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, fen)
	}
	c.byFEN[fen] = op
}

func (c *openingCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byFEN)
}
