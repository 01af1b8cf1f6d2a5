package stringtemplate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Loader returns template source by name.
type Loader interface {
	Load(name string) (string, error)
}

// MemoryLoader serves templates from a map.
type MemoryLoader map[string]string

func (m MemoryLoader) Load(name string) (string, error) {
	if s, ok := m[name]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// DirLoader serves templates from a directory. Names are slash-separated and
// must stay inside the directory.
type DirLoader string

func (d DirLoader) Load(name string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("%w: %s (outside search root)", ErrTemplateNotFound, name)
	}
	b, err := os.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", err
	}
	return string(b), nil
}

// FSLoader serves templates from an fs.FS, such as an embed.FS.
type FSLoader struct {
	FS fs.FS
}

func (l FSLoader) Load(name string) (string, error) {
	name = path.Clean(name)
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("%w: %s (invalid path)", ErrTemplateNotFound, name)
	}
	b, err := fs.ReadFile(l.FS, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", err
	}
	return string(b), nil
}

// ChainLoader tries each loader in order and returns the first template
// found. Errors other than ErrTemplateNotFound stop the search.
type ChainLoader []Loader

func (c ChainLoader) Load(name string) (string, error) {
	for _, l := range c {
		src, err := l.Load(name)
		if err == nil {
			return src, nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}
