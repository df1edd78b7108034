// Package naming computes filenames for duplicated and renamed batch entries.
package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"archive-relay/internal/model"
)

var ErrIndexOutOfRange = errors.New("entry index out of range")

// reCopySuffix matches " (Copy)", " (Copy 2)", "(Copy12)" and so on, so
// duplicating a copy does not nest suffixes.
var reCopySuffix = regexp.MustCompile(`\s?\(Copy\s?\d*\)`)

const copyMarker = " (Copy"

type Options struct {
	// LegacySplit splits at the first period, dropping every extension
	// segment after the first one ("a.tar.gz" -> "a (Copy).tar").
	LegacySplit bool
}

// StripCopySuffix removes every copy marker from name.
func StripCopySuffix(name string) string {
	return reCopySuffix.ReplaceAllString(name, "")
}

// SplitName splits name into stem and extension. The extension has no
// leading period and is empty when name has none.
func (o Options) SplitName(name string) (string, string) {
	var idx int
	if o.LegacySplit {
		idx = strings.IndexByte(name, '.')
		if idx < 0 {
			return name, ""
		}
		stem := name[:idx]
		ext, _, _ := strings.Cut(name[idx+1:], ".")
		return stem, ext
	}
	idx = strings.LastIndexByte(name, '.')
	if idx <= 0 {
		// no period, or a dotfile like ".env"
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// DuplicateName returns the name a copy of source gets given the current
// entries.
func (o Options) DuplicateName(entries []model.Entry, source string) string {
	stem, ext := o.SplitName(StripCopySuffix(source))

	prefix := stem + copyMarker
	copies := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Filename, prefix) {
			copies++
		}
	}

	name := stem + " (Copy)"
	if copies > 0 {
		name = fmt.Sprintf("%s (Copy %d)", stem, copies+1)
	}
	if ext != "" {
		name += "." + ext
	}
	return name
}

// Duplicate clones source under a collision-free name with a fresh ID and
// Processed reset. The caller appends it; entries is not modified.
func (o Options) Duplicate(entries []model.Entry, source model.Entry) model.Entry {
	clone := source
	clone.ID = uuid.NewString()
	clone.Filename = o.DuplicateName(entries, source.Filename)
	clone.Processed = false
	return clone
}

// Rename returns a copy of entries with the filename at index replaced
// verbatim. No collision or extension checks are made.
func Rename(entries []model.Entry, index int, newName string) ([]model.Entry, error) {
	if index < 0 || index >= len(entries) {
		return entries, fmt.Errorf("rename %d of %d: %w", index, len(entries), ErrIndexOutOfRange)
	}
	out := make([]model.Entry, len(entries))
	copy(out, entries)
	out[index].Filename = newName
	return out, nil
}

// Duplicate uses the default options.
func Duplicate(entries []model.Entry, source model.Entry) model.Entry {
	return Options{}.Duplicate(entries, source)
}
