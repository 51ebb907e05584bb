package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.home.luguber.info/inful/texbuilder/internal/texpath"
)

func TestEphemeralWorkspace(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	if err := m.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}

	path := m.GetPath()
	if !strings.HasPrefix(filepath.Base(path), "texbuilder-") {
		t.Errorf("workspace name = %q, want texbuilder- prefix", filepath.Base(path))
	}
	if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
		t.Fatalf("workspace dir missing: %v", err)
	}

	if err := m.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("workspace not removed: %v", err)
	}
	if m.GetPath() != "" {
		t.Errorf("path after cleanup = %q", m.GetPath())
	}
}

func TestPersistentWorkspace(t *testing.T) {
	base := t.TempDir()
	m := NewPersistentManager(base, "texbuilder-work")

	if err := m.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	want := filepath.Join(base, "texbuilder-work")
	if m.GetPath() != want {
		t.Errorf("path = %q, want %q", m.GetPath(), want)
	}

	marker := filepath.Join(m.GetPath(), "main.aux")
	if err := os.WriteFile(marker, []byte("aux"), 0o600); err != nil {
		t.Fatalf("write marker: %v", err)
	}

	if err := m.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("persistent workspace lost content: %v", err)
	}

	// Create on an existing persistent workspace is a no-op.
	if err := m.Create(); err != nil {
		t.Fatalf("re-create: %v", err)
	}
}

func TestPersistentDefaultSubdir(t *testing.T) {
	base := t.TempDir()
	m := NewPersistentManager(base, "")
	if err := m.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.GetPath() != filepath.Join(base, "working") {
		t.Errorf("path = %q", m.GetPath())
	}
}

func TestStagingFlattensIdentity(t *testing.T) {
	m := NewManager(t.TempDir())
	if err := m.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = m.Cleanup() }()

	dir, err := m.Staging(texpath.Canon("reports/annual/main"))
	if err != nil {
		t.Fatalf("staging: %v", err)
	}
	if filepath.Base(dir) != "reports__annual__main" {
		t.Errorf("staging dir = %q", filepath.Base(dir))
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("staging dir missing: %v", err)
	}

	// Sibling root with plain name stays distinct.
	other, err := m.Staging(texpath.Canon("main"))
	if err != nil {
		t.Fatalf("staging: %v", err)
	}
	if other == dir {
		t.Error("staging dirs collide")
	}
}

func TestCreateSubdirRequiresWorkspace(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.CreateSubdir("x"); err == nil {
		t.Fatal("expected error before Create")
	}
}
