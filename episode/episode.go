// SPDX-License-Identifier: EPL-2.0

// Package episode holds per-episode metadata: the stored titles and the
// names derived from a narration file.
package episode

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DefaultTitlesFile is the store name used when none is configured.
const DefaultTitlesFile = "episode_titles.json"

// Titles maps a narration file stem to its episode title. It is safe for
// concurrent use.
type Titles struct {
	path string

	mtx    sync.RWMutex
	titles map[string]string
}

// Load reads the store at path. A missing file yields an empty store.
func Load(path string) (*Titles, error) {
	t := &Titles{path: path, titles: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return t, nil
	}

	if err := json.Unmarshal(data, &t.titles); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	return t, nil
}

func (t *Titles) Path() string { return t.path }

// Get returns the stored title for stem.
func (t *Titles) Get(stem string) (string, bool) {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	v, ok := t.titles[stem]
	return v, ok
}

func (t *Titles) Set(stem, title string) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	t.titles[stem] = title
}

// Stems lists the stored stems in sorted order.
func (t *Titles) Stems() []string {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	out := make([]string, 0, len(t.titles))
	for k := range t.titles {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

// Resolve returns the stored title for stem, or a suggestion derived from it.
func (t *Titles) Resolve(stem string) string {
	if v, ok := t.Get(stem); ok && v != "" {
		return v
	}

	return SuggestTitle(stem)
}

// Save writes the store back to its path, replacing the file atomically.
func (t *Titles) Save() error {
	t.mtx.RLock()
	data, err := json.MarshalIndent(t.titles, "", "  ")
	t.mtx.RUnlock()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	dir := filepath.Dir(t.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(t.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("%w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	if err := os.Rename(tmp.Name(), t.path); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// Stem is the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SuggestTitle derives a title from a file stem: a leading "Episode: " is
// dropped and the first underscore separates number and name.
func SuggestTitle(stem string) string {
	s := stem
	if len(s) >= 9 && strings.EqualFold(s[:9], "episode: ") {
		s = s[9:]
	}

	if head, tail, ok := strings.Cut(s, "_"); ok {
		return strings.TrimSpace(head) + ": " + strings.TrimSpace(tail)
	}

	return s
}

var filenameReplacer = strings.NewReplacer(
	":", " -",
	"<", "",
	">", "",
	`"`, "'",
	"|", "-",
	"?", "",
	"*", "",
	`\`, "-",
	"/", "-",
)

// SanitizeFilename makes stem safe to use as an output name on any common
// filesystem.
func SanitizeFilename(stem string) string {
	return filenameReplacer.Replace(stem)
}

// Outputs are the files produced for one narration.
type Outputs struct {
	Video    string
	Enhanced string
}

// OutputsFor names the outputs for source inside dir.
func OutputsFor(dir, source string) Outputs {
	name := SanitizeFilename(Stem(source))

	return Outputs{
		Video:    filepath.Join(dir, name+".mp4"),
		Enhanced: filepath.Join(dir, name+"_enhanced.wav"),
	}
}
