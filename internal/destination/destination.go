// Package destination resolves the folder a batch is transferred to. The
// transfer is simulated, so the folder is only validated and labelled,
// never written.
package destination

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrCancelled    = errors.New("destination selection cancelled")
	ErrNotDirectory = errors.New("destination is not a directory")
)

type Destination struct {
	Path string `json:"path"`
}

func (d Destination) Chosen() bool {
	return strings.TrimSpace(d.Path) != ""
}

// Label is the folder name shown to the user.
func (d Destination) Label() string {
	if !d.Chosen() {
		return ""
	}
	return filepath.Base(filepath.Clean(d.Path))
}

// Describe is the destination line shown next to the picker.
func (d Destination) Describe() string {
	if !d.Chosen() {
		return "Choose destination folder"
	}
	return fmt.Sprintf("Saving to %q folder", d.Label())
}

// Resolve validates that path names an existing directory. An empty path
// means the user backed out of the picker.
func Resolve(path string) (Destination, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return Destination{}, ErrCancelled
	}
	if strings.HasPrefix(p, "~"+string(filepath.Separator)) || p == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Destination{}, fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return Destination{}, fmt.Errorf("resolve destination %s: %w", p, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		// the path error already names abs
		return Destination{}, fmt.Errorf("destination: %w", err)
	}
	if !info.IsDir() {
		return Destination{}, fmt.Errorf("%s: %w", abs, ErrNotDirectory)
	}
	return Destination{Path: abs}, nil
}

// Choose applies a picker result on top of the current destination. A
// cancelled pick keeps current.
func Choose(current Destination, path string) (Destination, error) {
	next, err := Resolve(path)
	if errors.Is(err, ErrCancelled) {
		return current, nil
	}
	if err != nil {
		return current, err
	}
	return next, nil
}
