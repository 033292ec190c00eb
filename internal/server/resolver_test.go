package server

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestPathResolver(t *testing.T) {
	root := t.TempDir()
	resolver, err := NewPathResolver(root)
	if err != nil {
		t.Fatalf("resolver error: %v", err)
	}

	testCases := []struct {
		name    string
		raw     string
		want    string
		invalid bool
	}{
		{"plain", "a.txt", filepath.Join(root, "a.txt"), false},
		{"nested", "sub/b.json", filepath.Join(root, "sub", "b.json"), false},
		{"escaped", "sub%2Fc", filepath.Join(root, "sub", "c"), false},
		{"dot segments", "./x/./y", filepath.Join(root, "x", "y"), false},
		{"empty is root", "", root, false},
		{"parent", "../etc/passwd", "", true},
		{"encoded parent", "a/%2E%2E/%2E%2E/b", "", true},
		{"bad escape", "%zz", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.Resolve(tc.raw)
			if tc.invalid {
				if !errors.Is(err, ErrInvalidPath) {
					t.Fatalf("expected ErrInvalidPath, got %v (%s)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Resolve(%q) = %s, want %s", tc.raw, got, tc.want)
			}
		})
	}
}

func TestPathResolverRelative(t *testing.T) {
	resolver, err := NewPathResolver("/srv/data")
	if err != nil {
		t.Fatalf("resolver error: %v", err)
	}
	if got := resolver.Relative("/srv/data/sub/a.txt"); got != "sub/a.txt" {
		t.Fatalf("unexpected relative path %s", got)
	}
	if got := resolver.Relative("/elsewhere/a.txt"); got != "/elsewhere/a.txt" {
		t.Fatalf("outside paths should be returned as-is, got %s", got)
	}
}

func TestNewPathResolverRequiresRoot(t *testing.T) {
	if _, err := NewPathResolver(" "); err == nil {
		t.Fatalf("empty root should fail")
	}
}
