package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Workspace is the ephemeral directory holding one order's downloads and
// render outputs. Exactly one exists per running order; concurrent runs
// never share files.
type Workspace struct {
	Root string
}

func NewWorkspace(baseDir, orderID string) (*Workspace, error) {
	root := filepath.Join(baseDir, orderID)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{Root: root}, nil
}

// Path returns the absolute path of a file inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Root, name)
}

// Remove deletes the workspace and everything in it. Idempotent: safe to
// call on a partially created or already removed workspace. Removal
// failure is logged, never escalated — it cannot fail a run.
func (w *Workspace) Remove() {
	if err := os.RemoveAll(w.Root); err != nil {
		log.Printf("[Pipeline] failed to remove workspace %s: %v", w.Root, err)
	}
}
