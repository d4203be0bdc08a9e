// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch stages a recipe's external resources into a build
// workspace before the unpack phase runs.
//
// Three URI schemes are understood:
//
//   - src://<relpath> copies a file or directory from the distribution
//     source tree.
//   - repo://<relpath> copies from the package repository tree. A
//     leading slash (repo:///a/b) is accepted.
//   - https://... downloads the resource.
//
// Every resource is staged as "<name>@<hash>.<local name>" in the
// workspace, so packages sharing a workspace never collide. A resource
// with any other scheme is reported and skipped; the phase that needs
// it will fail visibly.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/boldos/bold/lib/netutil"
	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/recipe"
)

// UnknownSchemeError reports an external whose URI scheme the fetcher
// does not understand.
type UnknownSchemeError struct {
	Ref   pkgref.Ref
	Local string
	URI   string
}

func (e *UnknownSchemeError) Error() string {
	return fmt.Sprintf("%s: external %q: unknown scheme in %q", e.Ref, e.Local, e.URI)
}

// FetchError reports an external that could not be staged.
type FetchError struct {
	Ref   pkgref.Ref
	Local string
	URI   string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetching external %q from %s: %v", e.Ref, e.Local, e.URI, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Config holds the parameters for a Fetcher.
type Config struct {
	// SourceTree is the root for src:// resources.
	SourceTree string

	// RepositoryTree is the root for repo:// resources.
	RepositoryTree string

	// Client performs https downloads. Nil means http.DefaultClient.
	Client *http.Client

	Logger *slog.Logger
}

// Fetcher stages externals. It is safe for concurrent use as long as
// concurrent calls stage into distinct names.
type Fetcher struct {
	sourceTree     string
	repositoryTree string
	client         *http.Client
	logger         *slog.Logger
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		sourceTree:     cfg.SourceTree,
		repositoryTree: cfg.RepositoryTree,
		client:         client,
		logger:         logger,
	}
}

// StagedName is the workspace entry name of one external.
func StagedName(ref pkgref.Ref, local string) string {
	return ref.String() + "." + local
}

// Staged describes the result of staging one package's externals.
type Staged struct {
	// Paths maps each staged local name to its workspace path.
	Paths map[string]string

	// Skipped lists externals with an unknown scheme.
	Skipped []*UnknownSchemeError
}

// Stage copies or downloads every external of pkg into workspace.
// Entries already present in the workspace are left alone, so staging
// into an existing hack workspace is repeatable. Unknown schemes are
// logged and collected in Skipped; any other failure stops staging
// and is returned as a *FetchError.
func (f *Fetcher) Stage(ctx context.Context, ref pkgref.Ref, externals map[string]string, workspace string) (*Staged, error) {
	staged := &Staged{Paths: make(map[string]string, len(externals))}
	for _, local := range (recipe.Recipe{Externals: externals}).ExternalNames() {
		uri := externals[local]
		destination := filepath.Join(workspace, StagedName(ref, local))

		scheme, rest, _ := strings.Cut(uri, "://")
		var err error
		switch strings.ToLower(scheme) {
		case recipe.SchemeSource:
			err = f.copyLocal(f.sourceTree, rest, destination)
		case recipe.SchemeRepository:
			err = f.copyLocal(f.repositoryTree, rest, destination)
		case recipe.SchemeHTTPS:
			err = f.download(ctx, uri, destination)
		default:
			skipped := &UnknownSchemeError{Ref: ref, Local: local, URI: uri}
			f.logger.Warn("skipping external with unknown scheme",
				"package", ref.String(),
				"external", local,
				"uri", uri,
			)
			staged.Skipped = append(staged.Skipped, skipped)
			continue
		}
		if err != nil {
			return staged, &FetchError{Ref: ref, Local: local, URI: uri, Err: err}
		}
		staged.Paths[local] = destination
	}
	return staged, nil
}

func (f *Fetcher) copyLocal(tree, relative, destination string) error {
	if tree == "" {
		return errors.New("no tree configured for this scheme")
	}
	relative = strings.TrimLeft(relative, "/")
	if !filepath.IsLocal(relative) {
		return fmt.Errorf("path %q escapes its tree", relative)
	}
	if _, err := os.Lstat(destination); err == nil {
		return nil
	}

	source := filepath.Join(tree, relative)
	info, err := os.Stat(source)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyDirectory(source, destination)
	}
	return copyFile(source, destination, info.Mode().Perm())
}

func (f *Fetcher) download(ctx context.Context, uri, destination string) error {
	if _, err := os.Lstat(destination); err == nil {
		return nil
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return err
	}
	response, err := f.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if err := netutil.CheckResponse(response); err != nil {
		return err
	}

	written, err := writeAtomically(destination, 0o644, response.Body)
	if err != nil {
		return err
	}
	f.logger.Debug("downloaded external", "uri", uri, "size", humanize.IBytes(uint64(written)))
	return nil
}

// copyDirectory copies a tree into a temporary sibling and renames it
// into place, so an interrupted copy never leaves a partial entry under
// the final name.
func copyDirectory(source, destination string) error {
	temporary, err := os.MkdirTemp(filepath.Dir(destination), ".staging-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(temporary)

	// CopyFS refuses to overwrite, so copy below the fresh directory.
	tree := filepath.Join(temporary, "tree")
	if err := os.CopyFS(tree, os.DirFS(source)); err != nil {
		return err
	}
	return os.Rename(tree, destination)
}

func copyFile(source, destination string, mode os.FileMode) error {
	input, err := os.Open(source)
	if err != nil {
		return err
	}
	defer input.Close()
	_, err = writeAtomically(destination, mode, input)
	return err
}

// writeAtomically streams reader into a temporary file next to path
// and renames it into place once complete.
func writeAtomically(path string, mode os.FileMode, reader io.Reader) (int64, error) {
	temporary, err := os.CreateTemp(filepath.Dir(path), ".staging-*")
	if err != nil {
		return 0, err
	}
	temporaryPath := temporary.Name()
	success := false
	defer func() {
		if !success {
			temporary.Close()
			os.Remove(temporaryPath)
		}
	}()

	written, err := io.Copy(temporary, reader)
	if err != nil {
		return written, err
	}
	if err := temporary.Chmod(mode); err != nil {
		return written, err
	}
	if err := temporary.Close(); err != nil {
		return written, err
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return written, err
	}
	success = true
	return written, nil
}
