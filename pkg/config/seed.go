package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/entityd/pkg/entity"
)

// LoadSeed builds the seed entities from inline entries followed by every
// file matched by the seed patterns (sorted per pattern). IDs must be unique
// across all sources.
func (c *Config) LoadSeed() ([]entity.Entity, error) {
	var (
		seed    []entity.Entity
		sources = make(map[int64]string)
	)

	add := func(e entity.Entity, source string) error {
		if prev, dup := sources[e.ID]; dup {
			return fmt.Errorf("duplicate seed id %d in %s (first in %s)", e.ID, source, prev)
		}
		sources[e.ID] = source
		seed = append(seed, e)
		return nil
	}

	for i, m := range c.Seed.Inline {
		source := fmt.Sprintf("seed.inline[%d]", i)
		e, err := entity.FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		if err := add(e, source); err != nil {
			return nil, err
		}
	}

	files, err := c.SeedFiles()
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		entities, err := LoadSeedFile(path)
		if err != nil {
			return nil, err
		}
		for i, e := range entities {
			if err := add(e, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return nil, err
			}
		}
	}

	return seed, nil
}

// SeedPatterns returns the seed file patterns resolved against BaseDir.
func (c *Config) SeedPatterns() []string {
	patterns := make([]string, len(c.Seed.Files))
	for i, p := range c.Seed.Files {
		patterns[i] = ResolvePath(c.BaseDir, p)
	}
	return patterns
}

// SeedFiles expands the seed patterns. A pattern matching nothing is not an
// error; a file matched by several patterns is returned once.
func (c *Config) SeedFiles() ([]string, error) {
	var (
		files []string
		seen  = make(map[string]bool)
	)
	for _, pattern := range c.SeedPatterns() {
		matches, err := expandGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding glob pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if seen[m] {
				continue
			}
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	return files, nil
}

// LoadSeedFile reads a JSON or YAML seed file holding either a list of
// entities or a single entity.
func LoadSeedFile(path string) ([]entity.Entity, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	data = []byte(ExpandEnvVars(string(data)))

	var raw any
	switch FormatForPath(path) {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", path, ErrInvalidYAML, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", path, ErrInvalidJSON, err)
		}
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil, fmt.Errorf("%s: seed file must contain an object or a list of objects", path)
	}

	entities := make([]entity.Entity, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: expected an object, got %T", path, i, item)
		}
		e, err := entity.FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", path, i, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// expandGlob expands a glob pattern to a list of matching file paths.
// Uses doublestar for ** support, falls back to filepath.Glob for simple patterns.
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return doublestar.FilepathGlob(pattern)
	}
	return filepath.Glob(pattern)
}
