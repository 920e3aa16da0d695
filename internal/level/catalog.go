package level

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

//go:embed levels.yaml
var defaultFiles embed.FS

type levelFile struct {
	Levels []Level `yaml:"levels"`
}

// Catalog holds the embedded levels, optionally overridden from a directory.
type Catalog struct {
	mu     sync.RWMutex
	levels map[string]Level
	order  []string
}

// NewCatalog loads the embedded levels and then applies *.yaml/*.yml files from
// overrideDir (if set). An override replaces an embedded level of the same name;
// the same name in two override files is an error.
func NewCatalog(overrideDir string) (*Catalog, error) {
	c := &Catalog{levels: make(map[string]Level)}
	raw, err := fs.ReadFile(defaultFiles, "levels.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded levels: %w", err)
	}
	if _, err := c.apply(raw, "levels.yaml"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read level dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	seen := make(map[string]string)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		names, err := c.apply(b, name)
		if err != nil {
			return err
		}
		for _, n := range names {
			if prev, ok := seen[n]; ok {
				return fmt.Errorf("duplicate level %q in %s and %s", n, prev, name)
			}
			seen[n] = name
		}
	}
	return nil
}

func (c *Catalog) apply(b []byte, source string) ([]string, error) {
	var f levelFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	names := make([]string, 0, len(f.Levels))
	for _, l := range f.Levels {
		l.Name = strings.TrimSpace(l.Name)
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		names = append(names, l.Name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range f.Levels {
		name := strings.TrimSpace(l.Name)
		l.Name = name
		if _, ok := c.levels[name]; !ok {
			c.order = append(c.order, name)
		}
		c.levels[name] = l
	}
	return names, nil
}

// Get returns a copy of the named level.
func (c *Catalog) Get(name string) (Level, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.levels[strings.TrimSpace(name)]
	if !ok {
		return Level{}, fmt.Errorf("%w: %s", ErrLevelNotFound, name)
	}
	l.ScoreGoals = append([]int(nil), l.ScoreGoals...)
	l.Tokens = append([]string(nil), l.Tokens...)
	l.Layout = append([]string(nil), l.Layout...)
	return l, nil
}

// Names lists levels in load order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}
