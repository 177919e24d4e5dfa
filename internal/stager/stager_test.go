package stager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestStage_NoArtifacts(t *testing.T) {
	s := New(t.TempDir())

	staged, err := s.Stage(context.Background(), "token-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(staged) != 0 {
		t.Errorf("staged = %v, want empty", staged)
	}

	staged, err = s.Stage(context.Background(), "token-2", map[string]any{"runner": "local"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(staged) != 0 {
		t.Errorf("staged = %v, want empty", staged)
	}
}

func TestStage_RequirementsFile(t *testing.T) {
	src := t.TempDir()
	root := t.TempDir()
	reqs := writeTempFile(t, src, "my-reqs.txt", "left-pad==1.0\n")

	s := New(root)
	staged, err := s.Stage(context.Background(), "tok", map[string]any{
		OptRequirementsFile: reqs,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(staged) != 1 || staged[0] != "requirements.txt" {
		t.Fatalf("staged = %v, want [requirements.txt]", staged)
	}

	data, err := os.ReadFile(filepath.Join(root, "tok", "requirements.txt"))
	if err != nil {
		t.Fatalf("staged file missing: %v", err)
	}
	if string(data) != "left-pad==1.0\n" {
		t.Errorf("staged content = %q", data)
	}
}

func TestStage_ExtraPackagesAndSetup(t *testing.T) {
	src := t.TempDir()
	root := t.TempDir()
	pkg1 := writeTempFile(t, src, "pkg1.tar.gz", "p1")
	pkg2 := writeTempFile(t, src, "pkg2.tar.gz", "p2")
	setup := writeTempFile(t, src, "custom_setup.py", "setup()")

	s := New(root)
	staged, err := s.Stage(context.Background(), "tok", map[string]any{
		OptExtraPackages: []any{pkg1, pkg2},
		OptSetupFile:     setup,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"pkg1.tar.gz", "pkg2.tar.gz", "setup.py"}
	if len(staged) != len(want) {
		t.Fatalf("staged = %v, want %v", staged, want)
	}
	for i := range want {
		if staged[i] != want[i] {
			t.Errorf("staged[%d] = %q, want %q", i, staged[i], want[i])
		}
	}
}

func TestStage_MissingArtifact(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.Stage(context.Background(), "tok", map[string]any{
		OptRequirementsFile: "/nonexistent/requirements.txt",
	})
	if !errors.Is(err, ErrMissingArtifact) {
		t.Errorf("err = %v, want ErrMissingArtifact", err)
	}
}

func TestStage_MalformedReferences(t *testing.T) {
	s := New(t.TempDir())

	cases := []map[string]any{
		{OptRequirementsFile: 42},
		{OptRequirementsFile: ""},
		{OptExtraPackages: "not-a-list"},
		{OptExtraPackages: []any{123}},
		{OptSetupFile: true},
	}

	for i, options := range cases {
		if _, err := s.Stage(context.Background(), "tok", options); !errors.Is(err, ErrMalformedReference) {
			t.Errorf("case %d: err = %v, want ErrMalformedReference", i, err)
		}
	}
}
