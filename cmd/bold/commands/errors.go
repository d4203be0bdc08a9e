// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"io/fs"

	"github.com/boldos/bold/cmd/bold/cli"
	"github.com/boldos/bold/lib/manager"
	"github.com/boldos/bold/lib/netutil"
	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/resolve"
	"github.com/boldos/bold/lib/snapshot"
)

// categorize attaches a category to errors from the library stack.
func categorize(err error) error {
	if err == nil {
		return nil
	}
	var (
		syntaxErr     *pkgref.SelectorSyntaxError
		resolutionErr *resolve.ResolutionError
		notInstalled  *manager.NotInstalledError
		collisionErr  *snapshot.CollisionError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return cli.Categorize(cli.CategoryValidation, err)
	case errors.Is(err, manager.ErrNotInitialized),
		errors.As(err, &resolutionErr),
		errors.As(err, &notInstalled),
		errors.Is(err, snapshot.ErrNoGeneration),
		errors.Is(err, fs.ErrNotExist):
		return cli.Categorize(cli.CategoryNotFound, err)
	case errors.Is(err, snapshot.ErrStagingExists):
		return cli.Conflict("%w", err).WithHint(
			"Another bold command may be running. If not, remove the snapshot/next directory under the bold root.")
	case errors.As(err, &collisionErr), errors.Is(err, fs.ErrExist):
		return cli.Categorize(cli.CategoryConflict, err)
	case netutil.IsTransient(err):
		return cli.Categorize(cli.CategoryTransient, err)
	default:
		return cli.Categorize(cli.CategoryInternal, err)
	}
}
