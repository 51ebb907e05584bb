// Package workspace manages staging directories for compiler output.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/texpath"
)

// Manager handles workspace directories (both ephemeral and persistent)
type Manager struct {
	baseDir    string
	workDir    string
	persistent bool // If true, use baseDir/subdir directly without timestamps
}

// NewManager creates a workspace manager with ephemeral timestamped directories
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{
		baseDir:    baseDir,
		persistent: false,
	}
}

// NewPersistentManager creates a workspace manager that uses a persistent
// directory. The workspace directory is fixed (baseDir/subdirName) and not
// cleaned up on Cleanup(), so compiler aux files survive between runs and
// incremental rebuilds stay fast.
func NewPersistentManager(baseDir, subdirName string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if subdirName == "" {
		subdirName = "working"
	}
	return &Manager{
		baseDir:    baseDir,
		workDir:    filepath.Join(baseDir, subdirName),
		persistent: true,
	}
}

// Create creates the workspace directory
// For ephemeral mode: creates a timestamped directory
// For persistent mode: ensures the fixed directory exists
func (m *Manager) Create() error {
	if m.persistent {
		if err := os.MkdirAll(m.workDir, 0o750); err != nil {
			return fmt.Errorf("failed to create persistent workspace directory: %w", err)
		}
		slog.Info("Using persistent workspace", logfields.Path(m.workDir))
		return nil
	}

	timestamp := time.Now().Format("20060102-150405")
	workDir := filepath.Join(m.baseDir, fmt.Sprintf("texbuilder-%s", timestamp))

	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.workDir = workDir
	slog.Info("Created workspace", logfields.Path(workDir))
	return nil
}

// GetPath returns the path to the workspace directory
func (m *Manager) GetPath() string {
	return m.workDir
}

// Cleanup removes the workspace directory
// For persistent mode: does nothing (keeps aux files for incremental builds)
// For ephemeral mode: removes the timestamped directory
func (m *Manager) Cleanup() error {
	if m.workDir == "" {
		return nil
	}

	if m.persistent {
		slog.Debug("Skipping cleanup for persistent workspace", logfields.Path(m.workDir))
		return nil
	}

	if err := os.RemoveAll(m.workDir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}

	slog.Info("Cleaned up workspace", logfields.Path(m.workDir))
	m.workDir = ""
	return nil
}

// Staging returns the staging directory for one root document, creating it
// if needed. Identities map to flat directory names so nested documents
// cannot collide with sibling staging areas.
func (m *Manager) Staging(id texpath.Canon) (string, error) {
	return m.CreateSubdir(strings.ReplaceAll(id.String(), "/", "__"))
}

// CreateSubdir creates a subdirectory within the workspace
func (m *Manager) CreateSubdir(name string) (string, error) {
	if m.workDir == "" {
		return "", fmt.Errorf("workspace not created")
	}

	subdir := filepath.Join(m.workDir, name)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	return subdir, nil
}
