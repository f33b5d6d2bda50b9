// Package dotdir resolves the .gentax/ directory that holds config.toml,
// the session store file and, by default, the knowledge directory.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the gentax directory.
	dirName = ".gentax"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .gentax/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.gentax/ dir
//  3. Home ~/.gentax/ dir
//  4. If none found, the empty string
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating gentax directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if local := filepath.Join(cwd, dirName); isDir(local) {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// No home directory is not fatal; fall back to defaults.
		return "", nil
	}
	if global := filepath.Join(home, dirName); isDir(global) {
		return global, nil
	}

	return "", nil
}

// Resolve joins name onto the resolved target directory. Absolute names and
// an unresolved target return name unchanged.
func (m *Manager) Resolve(overrideDir, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return name, nil
	}

	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	if target == "" {
		return name, nil
	}

	return filepath.Join(target, name), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
