package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/inputtap/tap"
)

// Loader resolves a profile name to a runnable tap.Profile and lists the
// available names. The Player's CallMacro lookups go through
// tap.ProfileResolver instead, which FileLoader also satisfies.
type Loader interface {
	LoadProfile(name string) (tap.Profile, error)
	ListProfiles() ([]string, error)
}

// FileLoader reads YAML profiles from a directory on disk, one file per
// profile named "<profile-name>.yaml" (or ".yml"), the layout the original
// implementation used for its JSON profile store (storage.rs), adapted to
// YAML since that's the DSL's wire format here.
type FileLoader struct {
	Dir string
}

func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{Dir: dir}
}

func (l *FileLoader) path(name string) string {
	return filepath.Join(l.Dir, sanitizeFilename(name)+".yaml")
}

// LoadProfile implements Loader: reads, parses, validates,
// and converts the named profile. A missing file surfaces as a
// KindNotFound *tap.Error so callers can match it with errors.Is.
func (l *FileLoader) LoadProfile(name string) (tap.Profile, error) {
	path := l.path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			altPath := filepath.Join(l.Dir, sanitizeFilename(name)+".yml")
			data, err = os.ReadFile(altPath)
		}
		if err != nil {
			if os.IsNotExist(err) {
				return tap.Profile{}, tap.NewError(tap.KindNotFound, fmt.Sprintf("profile %q not found", name), err)
			}
			return tap.Profile{}, tap.NewError(tap.KindIO, fmt.Sprintf("reading profile %q", name), err)
		}
	}

	dsl, err := ParseProfile(data)
	if err != nil {
		return tap.Profile{}, tap.NewError(tap.KindLoadError, fmt.Sprintf("parsing profile %q", name), err)
	}

	if errs := Validate(dsl); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.String()
		}
		return tap.Profile{}, tap.NewError(tap.KindValidation, strings.Join(msgs, "; "), nil)
	}

	return ToProfile(dsl)
}

// ResolveProfile satisfies tap.ProfileResolver, so a FileLoader can be
// passed directly to tap.Spawn for CallMacro lookups.
func (l *FileLoader) ResolveProfile(name string) (tap.Profile, error) {
	return l.LoadProfile(name)
}

// ListProfiles returns every profile name available in Dir, sorted.
func (l *FileLoader) ListProfiles() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, tap.NewError(tap.KindIO, "listing profiles", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ext))
	}
	sort.Strings(names)
	return names, nil
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch c {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}
