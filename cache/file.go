// SPDX-License-Identifier: EPL-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ik5/wavereel/envelope"
	"github.com/ik5/wavereel/fingerprint"
)

// DirName is the cache directory created beside source files.
const DirName = ".waveform_cache"

// FileCache keeps one file per slot, <dir>/<slot>_waveform.bin.
type FileCache struct {
	dir    string
	schema uint16
	log    *zap.Logger
}

func NewFileCache(dir string, schema uint16, log *zap.Logger) *FileCache {
	return &FileCache{
		dir:    dir,
		schema: schema,
		log:    nopIfNil(log),
	}
}

// BesideSource places each entry in a DirName directory next to its source.
func BesideSource(schema uint16, log *zap.Logger) Provider {
	return func(sourcePath string) Cache {
		return NewFileCache(filepath.Join(filepath.Dir(sourcePath), DirName), schema, log)
	}
}

func (c *FileCache) Dir() string { return c.dir }

// Path returns the file backing slot.
func (c *FileCache) Path(slot string) string {
	return filepath.Join(c.dir, slot+"_waveform.bin")
}

func (c *FileCache) Lookup(_ context.Context, slot string, fp fingerprint.Fingerprint) (envelope.Envelope, bool) {
	raw, err := os.ReadFile(c.Path(slot))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.log.Debug("cache read failed", zap.String("slot", slot), zap.Error(err))
		}
		return envelope.Envelope{}, false
	}

	return decode(c.log, slot, raw, fp, c.schema)
}

// Store writes to a temporary file in the cache dir and renames it over the
// slot, so readers see either the old entry or the new one.
func (c *FileCache) Store(_ context.Context, slot string, env envelope.Envelope) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, slot+"_*.tmp")
	if err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(envelope.Encode(env, c.schema)); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.Path(slot)); err != nil {
		return fmt.Errorf("commit cache entry: %w", err)
	}

	c.log.Debug("cache stored", zap.String("slot", slot), zap.String("path", c.Path(slot)))

	return nil
}

func (c *FileCache) Invalidate(_ context.Context, slot string) error {
	err := os.Remove(c.Path(slot))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("invalidate %s: %w", slot, err)
	}

	return nil
}

func (c *FileCache) Raw(_ context.Context, slot string) ([]byte, bool, error) {
	raw, err := os.ReadFile(c.Path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", slot, err)
	}

	return raw, true, nil
}
