package reactable

import (
	"container/list"
	"sync"
)

// ProgramCache stores compiled expression programs keyed by engine and
// source.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// NewProgramCache returns a concurrency-safe LRU cache holding at most size
// programs. A size below one means unbounded.
func NewProgramCache(size int) ProgramCache {
	return &lruProgramCache{
		size:    size,
		order:   list.New(),
		entries: map[string]*list.Element{},
	}
}

type lruProgramCache struct {
	mu      sync.Mutex
	size    int
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry struct {
	key   string
	value any
}

func (c *lruProgramCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).value, true
}

func (c *lruProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).value = value
		c.order.MoveToFront(elem)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: value})
	if c.size > 0 && c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func cacheKey(engine, expression string) string {
	return engine + "\x00" + expression
}
