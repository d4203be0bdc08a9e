// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package evaluator runs the package repository evaluator: a QuickJS
// program that prints the repository document as JSON.
//
// The contract is narrow. The evaluator is started as
// "qjs -m <repo>/main.js" with the repository as working directory.
// Anything written to stderr fails the evaluation, even when the exit
// status is zero, so warnings in repository code cannot slip into an
// update unnoticed. Stdout must hold a single JSON document.
package evaluator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/boldos/bold/lib/contenthash"
	"github.com/boldos/bold/lib/recipe"
)

// BinaryName is the QuickJS interpreter looked up on PATH when no
// explicit path is configured.
const BinaryName = "qjs"

// EntryPoint is the repository module the evaluator runs.
const EntryPoint = "main.js"

// Error reports a failed evaluation. Stderr holds the evaluator's
// diagnostic output when there was any.
type Error struct {
	Repository string
	Stderr     string
	Err        error
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("evaluating %s: %s", e.Repository, e.Stderr)
	}
	return fmt.Sprintf("evaluating %s: %v", e.Repository, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is one successful evaluation.
type Result struct {
	Document *recipe.Document

	// Raw is the evaluator's stdout, byte for byte.
	Raw []byte

	// RepoHash identifies the repository state that produced Raw.
	RepoHash string
}

// Evaluator runs a repository through QuickJS.
type Evaluator struct {
	binary     string
	repository string
	logger     *slog.Logger
}

// Config holds the parameters for an Evaluator.
type Config struct {
	// Binary is the qjs executable. Empty means look it up on PATH.
	Binary string

	// Repository is the package repository directory containing
	// main.js.
	Repository string

	Logger *slog.Logger
}

// New validates the configuration and resolves the interpreter.
func New(cfg Config) (*Evaluator, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("evaluator: Repository is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	binary := cfg.Binary
	if binary == "" {
		path, err := exec.LookPath(BinaryName)
		if err != nil {
			return nil, fmt.Errorf("evaluator: %s not found on PATH and quickjsPath is not configured", BinaryName)
		}
		binary = path
	} else if _, err := os.Stat(binary); err != nil {
		return nil, fmt.Errorf("evaluator: %w", err)
	}
	return &Evaluator{binary: binary, repository: cfg.Repository, logger: logger}, nil
}

// Evaluate runs the repository and parses its document.
func (e *Evaluator) Evaluate(ctx context.Context) (*Result, error) {
	start := time.Now()
	entry := filepath.Join(e.repository, EntryPoint)

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, e.binary, "-m", entry)
	command.Dir = e.repository
	command.Stdout = &stdout
	command.Stderr = &stderr

	runErr := command.Run()
	if stderr.Len() > 0 {
		stderrText := strings.TrimSpace(stderr.String())
		if stderrText == "" && runErr == nil {
			runErr = errors.New("evaluator wrote whitespace to stderr")
		}
		return nil, &Error{Repository: e.repository, Stderr: stderrText, Err: runErr}
	}
	if runErr != nil {
		return nil, &Error{Repository: e.repository, Err: runErr}
	}

	result, err := Parse(stdout.Bytes())
	if err != nil {
		return nil, &Error{Repository: e.repository, Err: err}
	}

	e.logger.Debug("repository evaluated",
		"repository", e.repository,
		"packages", len(result.Document.Packages),
		"repo_hash", result.RepoHash,
		"duration", time.Since(start),
	)
	return result, nil
}

// Parse builds a Result from a document obtained without running the
// evaluator, such as a saved evaluator output.
func Parse(raw []byte) (*Result, error) {
	document, err := recipe.ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	return &Result{
		Document: document,
		Raw:      raw,
		RepoHash: contenthash.Repository(raw).String(),
	}, nil
}
