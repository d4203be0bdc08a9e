// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/boldos/bold/lib/archive"
	"github.com/boldos/bold/lib/fetch"
	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/recipe"
)

// InstallPhases are the phases a system-managed build runs. dist
// produces distribution media and is only run on request.
var InstallPhases = []recipe.Phase{
	recipe.PhaseUnpack,
	recipe.PhasePatch,
	recipe.PhaseBuild,
	recipe.PhaseCheck,
	recipe.PhaseInstall,
	recipe.PhaseFixup,
	recipe.PhaseInstallCheck,
}

// outputTailLimit bounds the phase output kept for error reports.
const outputTailLimit = 4096

// PhaseError reports a phase that exited non-zero.
type PhaseError struct {
	Ref      pkgref.Ref
	Phase    recipe.Phase
	ExitCode int

	// Output is the tail of the phase's combined stdout and stderr.
	Output string
}

func (e *PhaseError) Error() string {
	message := fmt.Sprintf("%s: phase %s exited with status %d", e.Ref, e.Phase, e.ExitCode)
	if output := strings.TrimSpace(e.Output); output != "" {
		message += "\n" + output
	}
	return message
}

// Config holds the parameters for an Orchestrator.
type Config struct {
	Fetcher *fetch.Fetcher

	// Output receives phase command output as it is produced. Nil
	// discards it; the tail is still kept for PhaseError.
	Output io.Writer

	Logger *slog.Logger
}

// Orchestrator fetches, builds, and packs packages.
type Orchestrator struct {
	fetcher *fetch.Fetcher
	output  io.Writer
	logger  *slog.Logger
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	output := cfg.Output
	if output == nil {
		output = io.Discard
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{fetcher: cfg.Fetcher, output: output, logger: logger}
}

// Fetch stages every external of pkg into the workspace.
func (o *Orchestrator) Fetch(ctx context.Context, workspace Workspace, pkg recipe.Package) (*fetch.Staged, error) {
	if o.fetcher == nil {
		return nil, fmt.Errorf("%s: no fetcher configured", pkg.Ref)
	}
	return o.fetcher.Stage(ctx, pkg.Ref, pkg.Recipe.Externals, workspace.Dir)
}

// Options controls one Build call.
type Options struct {
	// Phases limits which phases may run. Nil means InstallPhases.
	Phases []recipe.Phase

	// Force rebuilds even when a finished output tree exists.
	Force bool
}

// Build runs the phases of pkg and promotes the output tree from its
// wip name to its final name. It returns the final output directory.
//
// An existing finished tree is reused unless Force is set. An existing
// wip tree is always discarded.
func (o *Orchestrator) Build(ctx context.Context, workspace Workspace, pkg recipe.Package, options Options) (string, error) {
	final := workspace.DestDir(pkg.Ref)
	wip := workspace.WipDir(pkg.Ref)

	if _, err := os.Stat(final); err == nil {
		if !options.Force {
			o.logger.Debug("output already built", "package", pkg.Ref.String())
			return final, nil
		}
		if err := os.RemoveAll(final); err != nil {
			return "", fmt.Errorf("%s: removing previous output: %w", pkg.Ref, err)
		}
	}
	if err := os.RemoveAll(wip); err != nil {
		return "", fmt.Errorf("%s: discarding wip output: %w", pkg.Ref, err)
	}
	if err := os.MkdirAll(wip, 0o755); err != nil {
		return "", fmt.Errorf("%s: creating wip output: %w", pkg.Ref, err)
	}

	phases := options.Phases
	if phases == nil {
		phases = InstallPhases
	}
	if err := o.RunPhases(ctx, workspace, pkg, phases, wip); err != nil {
		return "", err
	}

	if err := os.Rename(wip, final); err != nil {
		return "", fmt.Errorf("%s: promoting output: %w", pkg.Ref, err)
	}
	return final, nil
}

// RunPhases runs, in fixed order, each phase of pkg that is both in
// the recipe and in allowed. destDir becomes DESTDIR and must exist.
func (o *Orchestrator) RunPhases(ctx context.Context, workspace Workspace, pkg recipe.Package, allowed []recipe.Phase, destDir string) error {
	env := PhaseEnvironment(workspace, pkg, destDir)
	for _, phase := range pkg.Recipe.OrderedPhases() {
		if !slices.Contains(allowed, phase) {
			continue
		}
		command := pkg.Recipe.Phases[phase].Cmd
		if strings.TrimSpace(command) == "" {
			continue
		}

		start := time.Now()
		tail := &tailBuffer{limit: outputTailLimit}
		exitCode, err := runShellCommand(ctx, workspace.Dir, command, env, io.MultiWriter(o.output, tail))
		if err != nil {
			return fmt.Errorf("%s: phase %s: %w", pkg.Ref, phase, err)
		}
		if exitCode != 0 {
			return &PhaseError{Ref: pkg.Ref, Phase: phase, ExitCode: exitCode, Output: tail.String()}
		}
		o.logger.Debug("phase finished",
			"package", pkg.Ref.String(),
			"phase", string(phase),
			"duration", time.Since(start),
		)
	}
	return nil
}

// PhaseEnvironment returns the variables a phase of pkg runs with.
func PhaseEnvironment(workspace Workspace, pkg recipe.Package, destDir string) map[string]string {
	env := map[string]string{"DESTDIR": destDir}
	for local := range pkg.Recipe.Externals {
		env["EXT_"+local] = workspace.ExternalPath(pkg.Ref, local)
	}
	return env
}

// Pack archives the finished output tree of ref into artifactPath.
func (o *Orchestrator) Pack(workspace Workspace, ref pkgref.Ref, artifactPath string) (archive.Info, error) {
	info, err := archive.Pack(workspace.DestDir(ref), artifactPath)
	if err != nil {
		return archive.Info{}, err
	}
	o.logger.Info("packed artifact",
		"package", ref.String(),
		"size", humanize.IBytes(uint64(info.Size)),
		"digest", info.Digest.String(),
	)
	return info, nil
}

// Produce runs the whole system-managed pipeline for pkg in workspace:
// fetch, the install phases, and pack into artifactPath.
func (o *Orchestrator) Produce(ctx context.Context, workspace Workspace, pkg recipe.Package, artifactPath string) (archive.Info, error) {
	if _, err := o.Fetch(ctx, workspace, pkg); err != nil {
		return archive.Info{}, err
	}
	if _, err := o.Build(ctx, workspace, pkg, Options{}); err != nil {
		return archive.Info{}, err
	}
	return o.Pack(workspace, pkg.Ref, artifactPath)
}
