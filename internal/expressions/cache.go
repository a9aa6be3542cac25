package expressions

import (
	"container/list"
	"sync"
)

// DefaultCacheSize bounds how many distinct expressions a checker
// remembers.
const DefaultCacheSize = 4096

// outcomeCache is an LRU of compile outcomes keyed by normalized
// expression. A nil error is a valid outcome.
type outcomeCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
}

type outcome struct {
	expression string
	err        error
}

func newOutcomeCache(capacity int) *outcomeCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &outcomeCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func (c *outcomeCache) get(expression string) (*outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[expression]
	if !ok {
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*outcome), true
}

// put stores err unless another goroutine got there first, and returns the
// outcome that is now cached.
func (c *outcomeCache) put(expression string, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[expression]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*outcome).err
	}
	c.entries[expression] = c.lru.PushFront(&outcome{expression: expression, err: err})
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*outcome).expression)
	}
	return err
}

// check returns the cached outcome for expression or computes it.
// Compilation runs outside the lock.
func (c *outcomeCache) check(expression string, compile func(string) error) error {
	if hit, ok := c.get(expression); ok {
		return hit.err
	}
	return c.put(expression, compile(expression))
}

func (c *outcomeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
