package model

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	"github.com/couchcryptid/river-stage-predictor/internal/observability"
)

// CachedModel wraps a Model with an in-memory LRU cache keyed by the exact
// feature row. Only cache misses reach the inner model, in a single call.
type CachedModel struct {
	inner   domain.Model
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedModel creates a cache decorator around a model.
func NewCachedModel(inner domain.Model, maxEntries int, metrics *observability.Metrics) *CachedModel {
	return &CachedModel{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedModel) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	scores := make([]float64, len(rows))
	keys := make([]string, len(rows))

	var missRows [][]float64
	var missIdx []int
	for i, row := range rows {
		keys[i] = rowKey(row)
		if s, ok := c.cache.get(keys[i]); ok {
			scores[i] = s
			c.metrics.ModelCache.WithLabelValues("hit").Inc()
			continue
		}
		c.metrics.ModelCache.WithLabelValues("miss").Inc()
		missRows = append(missRows, row)
		missIdx = append(missIdx, i)
	}

	if len(missRows) == 0 {
		return scores, nil
	}

	fresh, err := c.inner.Predict(ctx, missRows)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missRows) {
		return nil, fmt.Errorf("%w: model returned %d scores for %d uncached rows",
			domain.ErrInferenceFailure, len(fresh), len(missRows))
	}

	for j, i := range missIdx {
		scores[i] = fresh[j]
		c.cache.put(keys[i], fresh[j])
	}
	return scores, nil
}

func rowKey(row []float64) string {
	var b strings.Builder
	for i, x := range row {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
	return b.String()
}

// lruCache is a simple thread-safe LRU cache for scores.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value float64
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
