// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package bincache materializes packages into the installed-packages
// area, preferring prebuilt artifacts over building from source.
//
// For each exact package the resolver tries, in order, and stops at
// the first success:
//
//  1. <installed>/<name>@<hash> already exists.
//  2. <cache>/<name>@<hash>.tar.zst exists locally.
//  3. Each remote endpoint, in configured order, serves
//     <endpoint>/<name>@<hash>.tar.zst. A failing endpoint is logged
//     and the next one is tried.
//  4. The package is built from source in an ephemeral workspace,
//     which is removed whether or not the build succeeds.
//
// Whichever way the artifact was obtained, it is then unpacked into
// the installed-packages area. A downloaded artifact enters the local
// cache only after it unpacked cleanly, and a cached artifact that
// fails to unpack is removed, so a corrupt body from one source never
// hides the sources after it.
//
// Materialization is safe to run concurrently. Work for one identity
// is deduplicated within the process and serialized across processes
// by a per-identity lock file, so the installed directory and the
// cached artifact are each created exactly once.
package bincache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/boldos/bold/lib/archive"
	"github.com/boldos/bold/lib/build"
	"github.com/boldos/bold/lib/lockfile"
	"github.com/boldos/bold/lib/netutil"
	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/recipe"
)

// Source records where a materialized package came from.
type Source int

const (
	SourceInstalled Source = iota
	SourceLocalCache
	SourceRemote
	SourceBuilt
)

func (s Source) String() string {
	switch s {
	case SourceInstalled:
		return "installed"
	case SourceLocalCache:
		return "local cache"
	case SourceRemote:
		return "remote cache"
	case SourceBuilt:
		return "built"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Packages looks up indexed packages by identity.
type Packages interface {
	Package(ctx context.Context, ref pkgref.Ref) (recipe.Package, error)
}

// Producer builds a package from source in a workspace and packs it
// into an artifact. *build.Orchestrator implements it.
type Producer interface {
	Produce(ctx context.Context, workspace build.Workspace, pkg recipe.Package, artifactPath string) (archive.Info, error)
}

// Config holds the parameters for a Resolver.
type Config struct {
	// InstalledDir holds one unpacked tree per exact identity.
	InstalledDir string

	// CacheDir holds packed artifacts.
	CacheDir string

	// BuildDir is the parent of ephemeral build workspaces.
	BuildDir string

	// Endpoints are remote binary cache base URLs in priority order.
	Endpoints []string

	// Client downloads from endpoints. Nil means http.DefaultClient.
	Client *http.Client

	// Producer builds packages no cache can provide. Nil disables
	// building from source.
	Producer Producer

	// Jobs bounds concurrent materializations. Zero or negative means
	// runtime.NumCPU().
	Jobs int

	Logger *slog.Logger
}

// Result describes one materialized package.
type Result struct {
	Ref    pkgref.Ref
	Source Source

	// Endpoint is the remote cache that served the artifact, for
	// SourceRemote.
	Endpoint string

	// Path is the installed tree.
	Path string
}

// Resolver materializes packages.
type Resolver struct {
	installedDir string
	cacheDir     string
	buildDir     string
	endpoints    []string
	client       *http.Client
	producer     Producer
	jobs         int
	logger       *slog.Logger

	inflight singleflight.Group
}

// New validates the configuration and creates the cache directories.
func New(cfg Config) (*Resolver, error) {
	if cfg.InstalledDir == "" || cfg.CacheDir == "" || cfg.BuildDir == "" {
		return nil, errors.New("bincache: InstalledDir, CacheDir and BuildDir are required")
	}
	for _, dir := range []string{cfg.InstalledDir, cfg.CacheDir, cfg.BuildDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bincache: %w", err)
		}
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		installedDir: cfg.InstalledDir,
		cacheDir:     cfg.CacheDir,
		buildDir:     cfg.BuildDir,
		endpoints:    cfg.Endpoints,
		client:       client,
		producer:     cfg.Producer,
		jobs:         jobs,
		logger:       logger,
	}, nil
}

// InstalledPath is the installed tree of ref.
func (r *Resolver) InstalledPath(ref pkgref.Ref) string {
	return filepath.Join(r.installedDir, ref.String())
}

// ArtifactPath is the local artifact of ref.
func (r *Resolver) ArtifactPath(ref pkgref.Ref) string {
	return filepath.Join(r.cacheDir, archive.FileName(ref))
}

func (r *Resolver) lockPath(ref pkgref.Ref) string {
	return filepath.Join(r.cacheDir, ".locks", ref.String()+".lock")
}

// Materialize makes ref present in the installed-packages area.
func (r *Resolver) Materialize(ctx context.Context, packages Packages, ref pkgref.Ref) (Result, error) {
	value, err, _ := r.inflight.Do(ref.String(), func() (any, error) {
		return r.materialize(ctx, packages, ref)
	})
	if err != nil {
		return Result{}, err
	}
	return value.(Result), nil
}

// MaterializeAll materializes packages level by level: every package
// of one level finishes before the next level starts, and packages
// within a level run concurrently, at most Jobs at a time. Levels are
// ordered so dependencies come first.
func (r *Resolver) MaterializeAll(ctx context.Context, packages Packages, levels [][]pkgref.Ref) ([]Result, error) {
	var results []Result
	for _, level := range levels {
		levelResults := make([]Result, len(level))
		group, groupContext := errgroup.WithContext(ctx)
		group.SetLimit(r.jobs)
		for i, ref := range level {
			group.Go(func() error {
				result, err := r.Materialize(groupContext, packages, ref)
				if err != nil {
					return err
				}
				levelResults[i] = result
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, err
		}
		results = append(results, levelResults...)
	}
	return results, nil
}

func (r *Resolver) materialize(ctx context.Context, packages Packages, ref pkgref.Ref) (Result, error) {
	installed := r.InstalledPath(ref)
	result := Result{Ref: ref, Source: SourceInstalled, Path: installed}
	if exists(installed) {
		return result, nil
	}

	lock, err := lockfile.Acquire(ctx, r.lockPath(ref))
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", ref, err)
	}
	defer lock.Release()

	// Another process may have finished while we waited.
	if exists(installed) {
		return result, nil
	}

	artifact := r.ArtifactPath(ref)
	if exists(artifact) {
		err := archive.Unpack(artifact, installed)
		if err == nil {
			result.Source = SourceLocalCache
			r.logMaterialized(result)
			return result, nil
		}
		r.logger.Warn("discarding unreadable cached artifact",
			"package", ref.String(),
			"path", artifact,
			"error", err,
		)
		if err := os.Remove(artifact); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%s: %w", ref, err)
		}
	}

	if endpoint, ok := r.download(ctx, ref, artifact, installed); ok {
		result.Source = SourceRemote
		result.Endpoint = endpoint
		r.logMaterialized(result)
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if err := r.build(ctx, packages, ref, artifact); err != nil {
		return Result{}, err
	}
	if err := archive.Unpack(artifact, installed); err != nil {
		return Result{}, fmt.Errorf("%s: %w", ref, err)
	}
	result.Source = SourceBuilt
	r.logMaterialized(result)
	return result, nil
}

func (r *Resolver) logMaterialized(result Result) {
	r.logger.Info("package materialized",
		"package", result.Ref.String(),
		"source", result.Source.String(),
	)
}

// download tries every endpoint in order and reports which one served
// the artifact. A response is unpacked into installed before it is
// moved into the local cache, so a body that is not a valid artifact
// is dropped and the next endpoint is tried.
func (r *Resolver) download(ctx context.Context, ref pkgref.Ref, artifact, installed string) (string, bool) {
	for _, endpoint := range r.endpoints {
		url := strings.TrimSuffix(endpoint, "/") + "/" + archive.FileName(ref)
		temporary, size, err := r.downloadOne(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return "", false
			}
			if netutil.IsNotFound(err) {
				r.logger.Debug("binary cache miss", "package", ref.String(), "endpoint", endpoint)
			} else {
				r.logger.Warn("binary cache unavailable",
					"package", ref.String(),
					"endpoint", endpoint,
					"transient", netutil.IsTransient(err),
					"error", err,
				)
			}
			continue
		}

		if err := archive.Unpack(temporary, installed); err != nil {
			os.Remove(temporary)
			r.logger.Warn("binary cache served an invalid artifact",
				"package", ref.String(),
				"endpoint", endpoint,
				"error", err,
			)
			continue
		}
		if err := os.Rename(temporary, artifact); err != nil {
			os.Remove(temporary)
			r.logger.Warn("keeping downloaded artifact", "package", ref.String(), "error", err)
		}
		r.logger.Info("downloaded artifact",
			"package", ref.String(),
			"endpoint", endpoint,
			"size", humanize.IBytes(uint64(size)),
		)
		return endpoint, true
	}
	return "", false
}

// downloadOne writes the response body to a temporary file in the
// cache directory and returns its path. The caller owns the file.
func (r *Resolver) downloadOne(ctx context.Context, url string) (string, int64, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	response, err := r.client.Do(request)
	if err != nil {
		return "", 0, err
	}
	defer response.Body.Close()
	if err := netutil.CheckResponse(response); err != nil {
		return "", 0, err
	}

	temporary, err := os.CreateTemp(r.cacheDir, ".download-*")
	if err != nil {
		return "", 0, err
	}
	temporaryPath := temporary.Name()
	written, err := io.Copy(temporary, response.Body)
	if closeErr := temporary.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(temporaryPath)
		return "", 0, err
	}
	return temporaryPath, written, nil
}

func (r *Resolver) build(ctx context.Context, packages Packages, ref pkgref.Ref, artifact string) (err error) {
	if r.producer == nil {
		return fmt.Errorf("%s: no binary cache has it and building from source is disabled", ref)
	}
	pkg, err := packages.Package(ctx, ref)
	if err != nil {
		return err
	}

	workspace, err := build.NewEphemeral(r.buildDir, ref)
	if err != nil {
		return fmt.Errorf("%s: %w", ref, err)
	}
	defer func() {
		if removeErr := workspace.Remove(); removeErr != nil {
			r.logger.Warn("removing build workspace", "path", workspace.Dir, "error", removeErr)
		}
	}()

	r.logger.Info("building from source", "package", ref.String())
	if _, err := r.producer.Produce(ctx, workspace, pkg, artifact); err != nil {
		return fmt.Errorf("building %s: %w", ref, err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
