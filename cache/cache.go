// SPDX-License-Identifier: EPL-2.0

// Package cache persists waveform envelopes between runs. Entries live in one
// slot per source file; a slot holds at most one envelope.
package cache

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ik5/wavereel/envelope"
	"github.com/ik5/wavereel/fingerprint"
)

// Cache stores one envelope per slot. Implementations are safe for concurrent
// use; concurrent writers to a slot race and the last one wins.
type Cache interface {
	// Lookup returns the envelope stored in slot when it was computed for fp
	// under the cache schema. Absent, stale or unreadable entries are a miss.
	Lookup(ctx context.Context, slot string, fp fingerprint.Fingerprint) (envelope.Envelope, bool)
	// Store replaces whatever slot holds with env.
	Store(ctx context.Context, slot string, env envelope.Envelope) error
	// Invalidate removes slot. Removing an absent slot is not an error.
	Invalidate(ctx context.Context, slot string) error
}

// Inspector exposes the raw bytes of a slot for diagnostics.
type Inspector interface {
	Raw(ctx context.Context, slot string) ([]byte, bool, error)
}

// Provider returns the cache that serves a source file.
type Provider func(sourcePath string) Cache

// Static serves every source from c.
func Static(c Cache) Provider {
	return func(string) Cache { return c }
}

// Entry is the decoded header of a stored slot.
type Entry struct {
	envelope.Header
	Size int
}

// Inspect reads the header of slot from c. It fails with ErrCorrupt when the
// bytes do not frame a valid entry.
func Inspect(ctx context.Context, c Inspector, slot string) (Entry, bool, error) {
	raw, ok, err := c.Raw(ctx, slot)
	if err != nil || !ok {
		return Entry{}, ok, err
	}

	h, err := envelope.DecodeHeader(raw)
	if err != nil {
		return Entry{}, true, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return Entry{Header: h, Size: len(raw)}, true, nil
}

// decode turns stored bytes into an envelope matching fp, logging why an
// entry is rejected.
func decode(log *zap.Logger, slot string, raw []byte, fp fingerprint.Fingerprint, schema uint16) (envelope.Envelope, bool) {
	env, err := envelope.Decode(raw, schema)
	switch {
	case errors.Is(err, envelope.ErrSchemaMismatch):
		log.Debug("cache schema mismatch", zap.String("slot", slot), zap.Error(err))
		return envelope.Envelope{}, false
	case err != nil:
		log.Debug("cache entry corrupt", zap.String("slot", slot), zap.Error(fmt.Errorf("%w: %w", ErrCorrupt, err)))
		return envelope.Envelope{}, false
	}

	if env.Fingerprint != fp {
		log.Debug("cache entry stale",
			zap.String("slot", slot),
			zap.Stringer("stored", env.Fingerprint),
			zap.Stringer("current", fp),
		)
		return envelope.Envelope{}, false
	}

	return env, true
}

func nopIfNil(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
