// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/boldos/bold/lib/fetch"
	"github.com/boldos/bold/lib/pkgref"
)

const wipSuffix = ".wip"

// Workspace is a directory in which packages are fetched and built.
type Workspace struct {
	Dir string
}

// NewEphemeral creates a uniquely named workspace under parent for a
// single system-managed build. The caller removes it with Remove.
func NewEphemeral(parent string, ref pkgref.Ref) (Workspace, error) {
	dir := filepath.Join(parent, ref.Escaped()+"-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Workspace{}, fmt.Errorf("creating build workspace: %w", err)
	}
	return Workspace{Dir: dir}, nil
}

// Create makes a user-named workspace. It fails if dir already exists.
func Create(dir string) (Workspace, error) {
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return Workspace{}, err
	}
	if err := os.MkdirAll(filepath.Dir(absolute), 0o755); err != nil {
		return Workspace{}, err
	}
	if err := os.Mkdir(absolute, 0o755); err != nil {
		if os.IsExist(err) {
			return Workspace{}, fmt.Errorf("workspace %s already exists: %w", absolute, fs.ErrExist)
		}
		return Workspace{}, err
	}
	return Workspace{Dir: absolute}, nil
}

// Remove deletes the workspace and everything in it.
func (w Workspace) Remove() error {
	return os.RemoveAll(w.Dir)
}

// DestDir is the finished output tree of ref.
func (w Workspace) DestDir(ref pkgref.Ref) string {
	return filepath.Join(w.Dir, "dest", ref.String())
}

// WipDir is the output tree of ref while its phases run.
func (w Workspace) WipDir(ref pkgref.Ref) string {
	return w.DestDir(ref) + wipSuffix
}

// ExternalPath is where the fetcher stages one external of ref.
func (w Workspace) ExternalPath(ref pkgref.Ref, local string) string {
	return filepath.Join(w.Dir, fetch.StagedName(ref, local))
}

// ActivateScript is the hack environment script.
func (w Workspace) ActivateScript() string {
	return filepath.Join(w.Dir, "activate.sh")
}
