// Package gamedata provides embedded game data and utilities for loading it.
package gamedata

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// dataFS embeds the JSON tables shipped with the game.
//
//go:embed *.json
var dataFS embed.FS

// Load decodes the JSON table name from fsys.
func Load[T any](fsys fs.FS, name string) (T, error) {
	var result T

	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return result, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(content, &result); err != nil {
		return result, fmt.Errorf("parse %s: %w", name, err)
	}
	return result, nil
}

// Overlay serves tables from dir, falling back to the embedded copy for any
// file dir does not provide.
func Overlay(dir string) fs.FS {
	if dir == "" {
		return dataFS
	}
	return overlayFS{top: os.DirFS(dir), base: dataFS}
}

type overlayFS struct {
	top, base fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.top.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return o.base.Open(name)
	}
	return f, err
}
