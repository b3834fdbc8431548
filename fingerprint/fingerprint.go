// SPDX-License-Identifier: EPL-2.0

// Package fingerprint derives cheap, metadata based tokens that tell whether a
// cached analysis still belongs to a narration file.
package fingerprint

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Size is the length of a Fingerprint in bytes.
const Size = 8

// headBytes bounds how much of the file content is mixed in, keeping Of
// independent of the file length.
const headBytes = 64 << 10

// Fingerprint is an opaque token. The zero value never matches a real file.
type Fingerprint [Size]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// Parse reads the hex form produced by String.
func Parse(s string) (Fingerprint, error) {
	var f Fingerprint

	b, err := hex.DecodeString(s)
	if err != nil {
		return f, fmt.Errorf("parse fingerprint: %w", err)
	}
	if len(b) != Size {
		return f, fmt.Errorf("parse fingerprint: want %d bytes, got %d", Size, len(b))
	}
	copy(f[:], b)

	return f, nil
}

// Of hashes the absolute path, size, modification time and the first 64 KiB
// of path together with salt. Moving a file changes its fingerprint. Callers salt with anything that changes the
// analyzed signal for the same file, e.g. processing settings.
func Of(path, salt string) (Fingerprint, error) {
	var f Fingerprint

	fi, err := os.Stat(path)
	if err != nil {
		return f, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
	}
	if fi.IsDir() {
		return f, fmt.Errorf("%w: %s is a directory", ErrSourceUnavailable, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return f, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
	}
	defer file.Close()

	name, err := filepath.Abs(path)
	if err != nil {
		name = filepath.Clean(path)
	}

	h := xxhash.New()

	var meta [16]byte
	binary.LittleEndian.PutUint64(meta[0:8], uint64(fi.Size()))
	binary.LittleEndian.PutUint64(meta[8:16], uint64(fi.ModTime().UnixNano()))

	h.WriteString(name)
	h.Write([]byte{0})
	h.Write(meta[:])
	h.WriteString(salt)
	h.Write([]byte{0})

	if _, err := io.Copy(h, io.LimitReader(file, headBytes)); err != nil {
		return f, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
	}

	binary.BigEndian.PutUint64(f[:], h.Sum64())

	return f, nil
}

// Slot names the cache slot of a source file: its base name without extension.
// Renamed or modified files reuse the slot of their stem, replacing stale entries.
func Slot(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
