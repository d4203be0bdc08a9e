// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package evaluator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boldos/bold/lib/evaluator"
)

const document = `{"recipes": {"hello@h1": {"shortDesc": "hi", "recipe": {"externals": {}, "phases": {}}}}, "named_recipes": {"hello": "h1"}}`

// fakeInterpreter writes a shell script standing in for qjs. It checks
// that it was invoked as "-m <repo>/main.js" from the repository.
func fakeInterpreter(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qjs")
	script := "#!/bin/sh\n" +
		`[ "$1" = "-m" ] || { echo "bad flag $1" >&2; exit 2; }` + "\n" +
		`[ "$2" = "$PWD/main.js" ] || { echo "bad entry $2" >&2; exit 2; }` + "\n" +
		body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func newEvaluator(t *testing.T, body string) *evaluator.Evaluator {
	t.Helper()
	repository := t.TempDir()
	// Resolve symlinks so $PWD in the script matches.
	repository, err := filepath.EvalSymlinks(repository)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	e, err := evaluator.New(evaluator.Config{
		Binary:     fakeInterpreter(t, body),
		Repository: repository,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestEvaluate(t *testing.T) {
	e := newEvaluator(t, "printf '%s' '"+document+"'")
	result, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(result.Document.Packages) != 1 {
		t.Errorf("packages = %d, want 1", len(result.Document.Packages))
	}
	if string(result.Raw) != document {
		t.Errorf("Raw = %q", result.Raw)
	}
	again, err := evaluator.Parse([]byte(document))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if again.RepoHash != result.RepoHash {
		t.Errorf("RepoHash differs for identical output: %s vs %s", again.RepoHash, result.RepoHash)
	}
}

func TestStderrFailsEvaluation(t *testing.T) {
	e := newEvaluator(t, "printf '%s' '"+document+"'; echo 'warning: deprecated' >&2")
	_, err := e.Evaluate(context.Background())
	var evalError *evaluator.Error
	if !errors.As(err, &evalError) {
		t.Fatalf("error = %v, want *evaluator.Error", err)
	}
	if evalError.Stderr != "warning: deprecated" {
		t.Errorf("Stderr = %q", evalError.Stderr)
	}
}

func TestWhitespaceStderrFailsEvaluation(t *testing.T) {
	e := newEvaluator(t, "printf '%s' '"+document+"'; printf '\\n' >&2")
	_, err := e.Evaluate(context.Background())
	var evalError *evaluator.Error
	if !errors.As(err, &evalError) {
		t.Fatalf("error = %v, want *evaluator.Error", err)
	}
	if !strings.Contains(err.Error(), "stderr") {
		t.Errorf("error = %v", err)
	}
}

func TestInvalidJSONFailsEvaluation(t *testing.T) {
	e := newEvaluator(t, "echo 'not json'")
	_, err := e.Evaluate(context.Background())
	var evalError *evaluator.Error
	if !errors.As(err, &evalError) {
		t.Fatalf("error = %v, want *evaluator.Error", err)
	}
	if !strings.Contains(err.Error(), "decoding repository document") {
		t.Errorf("error = %v", err)
	}
}

func TestNonZeroExitWithoutStderr(t *testing.T) {
	e := newEvaluator(t, "exit 3")
	if _, err := e.Evaluate(context.Background()); err == nil {
		t.Fatal("expected an error for a failing evaluator")
	}
}

func TestMissingRepository(t *testing.T) {
	if _, err := evaluator.New(evaluator.Config{}); err == nil {
		t.Fatal("expected an error without a repository")
	}
}
