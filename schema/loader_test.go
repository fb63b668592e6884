package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/inputtap/tap"
)

func writeProfile(t *testing.T, dir, filename, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", filename, err)
	}
}

const validProfileYAML = `
name: loader-test
timeline:
  - at_ms: 0
    action:
      click:
        x: 1
        y: 2
`

func TestFileLoaderLoadProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "demo.yaml", validProfileYAML)

	loader := NewFileLoader(dir)
	profile, err := loader.LoadProfile("demo")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if profile.Name != "loader-test" {
		t.Errorf("Name = %q, want loader-test", profile.Name)
	}
}

func TestFileLoaderLoadProfileYmlFallback(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "demo.yml", validProfileYAML)

	loader := NewFileLoader(dir)
	if _, err := loader.LoadProfile("demo"); err != nil {
		t.Fatalf("LoadProfile should fall back to .yml: %v", err)
	}
}

func TestFileLoaderLoadProfileNotFound(t *testing.T) {
	dir := t.TempDir()
	loader := NewFileLoader(dir)

	_, err := loader.LoadProfile("missing")
	if err == nil {
		t.Fatal("expected a not-found error")
	}
	if !errors.Is(err, tap.ErrKind(tap.KindNotFound)) {
		t.Errorf("error = %v, want a KindNotFound *tap.Error", err)
	}
}

func TestFileLoaderLoadProfileValidationError(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "bad.yaml", `
name: ""
timeline: []
`)
	loader := NewFileLoader(dir)
	_, err := loader.LoadProfile("bad")
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !errors.Is(err, tap.ErrKind(tap.KindValidation)) {
		t.Errorf("error = %v, want a KindValidation *tap.Error", err)
	}
}

func TestFileLoaderResolveProfileDelegatesToLoad(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "demo.yaml", validProfileYAML)

	loader := NewFileLoader(dir)
	p1, err1 := loader.LoadProfile("demo")
	p2, err2 := loader.ResolveProfile("demo")
	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v, %v", err1, err2)
	}
	if p1.Name != p2.Name {
		t.Errorf("ResolveProfile diverged from LoadProfile: %q vs %q", p2.Name, p1.Name)
	}
}

func TestFileLoaderListProfiles(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "b.yaml", validProfileYAML)
	writeProfile(t, dir, "a.yml", validProfileYAML)
	writeProfile(t, dir, "ignore.txt", "not a profile")

	loader := NewFileLoader(dir)
	names, err := loader.ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("names = %v, want [a b]", names)
	}
}

func TestFileLoaderListProfilesMissingDirIsEmpty(t *testing.T) {
	loader := NewFileLoader(filepath.Join(t.TempDir(), "does-not-exist"))
	names, err := loader.ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles on a missing dir should not error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("names = %v, want none", names)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"normal-name", "normal-name"},
		{"weird/name:here", "weird_name_here"},
		{`back\slash`, "back_slash"},
		{"quote\"s", "quote_s"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
