// SPDX-License-Identifier: EPL-2.0

package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ik5/wavereel/envelope"
	"github.com/ik5/wavereel/fingerprint"
)

// MemoryCache holds encoded entries in process memory.
type MemoryCache struct {
	mtx     sync.RWMutex
	entries map[string][]byte
	schema  uint16
	log     *zap.Logger
}

func NewMemoryCache(schema uint16, log *zap.Logger) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string][]byte),
		schema:  schema,
		log:     nopIfNil(log),
	}
}

func (c *MemoryCache) Lookup(_ context.Context, slot string, fp fingerprint.Fingerprint) (envelope.Envelope, bool) {
	c.mtx.RLock()
	raw, ok := c.entries[slot]
	c.mtx.RUnlock()

	if !ok {
		return envelope.Envelope{}, false
	}

	return decode(c.log, slot, raw, fp, c.schema)
}

func (c *MemoryCache) Store(_ context.Context, slot string, env envelope.Envelope) error {
	raw := envelope.Encode(env, c.schema)

	c.mtx.Lock()
	c.entries[slot] = raw
	c.mtx.Unlock()

	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, slot string) error {
	c.mtx.Lock()
	delete(c.entries, slot)
	c.mtx.Unlock()

	return nil
}

func (c *MemoryCache) Raw(_ context.Context, slot string) ([]byte, bool, error) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	raw, ok := c.entries[slot]
	if !ok {
		return nil, false, nil
	}

	return append([]byte(nil), raw...), true, nil
}

// Len returns the number of stored slots.
func (c *MemoryCache) Len() int {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	return len(c.entries)
}
