// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package resolve_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/boldos/bold/lib/index"
	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/recipe"
	"github.com/boldos/bold/lib/resolve"
)

const document = `{
  "recipes": {
    "curl@h1":   {"shortDesc": "curl", "depends": {"ssl": "libssl@h2"}, "recipe": {"externals": {}, "phases": {}}},
    "curl@h0":   {"shortDesc": "old curl", "recipe": {"externals": {}, "phases": {}}},
    "libssl@h2": {"shortDesc": "ssl", "depends": {"z": "zlib@h3"}, "recipe": {"externals": {}, "phases": {}}},
    "zlib@h3":   {"shortDesc": "zlib", "recipe": {"externals": {}, "phases": {}}},
    "a@h1":      {"shortDesc": "a", "depends": {"b": "b@h1"}, "recipe": {"externals": {}, "phases": {}}},
    "b@h1":      {"shortDesc": "b", "depends": {"a": "a@h1"}, "recipe": {"externals": {}, "phases": {}}},
    "orphan@h9": {"shortDesc": "unnamed", "recipe": {"externals": {}, "phases": {}}}
  },
  "named_recipes": {"curl": "h1", "libssl": "h2"}
}`

func TestSelectors(t *testing.T) {
	idx := testIndex(t)
	resolved, err := resolve.Selectors(context.Background(), idx, []string{"curl", "zlib@h3", "curl@h0"})
	if err != nil {
		t.Fatalf("Selectors: %v", err)
	}
	var got []string
	for _, r := range resolved {
		got = append(got, r.Selector.Raw+"="+r.Ref.String())
	}
	want := []string{"curl=curl@h1", "zlib@h3=zlib@h3", "curl@h0=curl@h0"}
	if !slices.Equal(got, want) {
		t.Errorf("resolved = %v, want %v", got, want)
	}
}

func TestSelectorsReportsEveryFailure(t *testing.T) {
	idx := testIndex(t)
	_, err := resolve.Selectors(context.Background(), idx, []string{"curl", "foo@deadbeef", "orphan", "nothing"})
	var resolutionError *resolve.ResolutionError
	if !errors.As(err, &resolutionError) {
		t.Fatalf("error = %v, want *ResolutionError", err)
	}
	if got, want := resolutionError.Selectors(), []string{"foo@deadbeef", "orphan", "nothing"}; !slices.Equal(got, want) {
		t.Errorf("Selectors() = %v, want %v", got, want)
	}
	if !strings.Contains(err.Error(), "orphan@h9") {
		t.Errorf("error should hint at orphan@h9: %v", err)
	}
	if resolutionError.Unresolved[2].Reason != resolve.NoAlias {
		t.Errorf("nothing: reason = %v, want NoAlias", resolutionError.Unresolved[2].Reason)
	}
}

func TestSelectorSyntaxCheckedFirst(t *testing.T) {
	_, err := resolve.Selectors(context.Background(), failingReader{}, []string{"a@b@c"})
	var syntaxError *pkgref.SelectorSyntaxError
	if !errors.As(err, &syntaxError) {
		t.Fatalf("error = %v, want *pkgref.SelectorSyntaxError", err)
	}
}

func TestClosure(t *testing.T) {
	idx := testIndex(t)
	closure, err := resolve.Closure(context.Background(), idx, []pkgref.Ref{pkgref.MustParse("curl@h1")})
	if err != nil {
		t.Fatalf("Closure: %v", err)
	}
	want := []pkgref.Ref{pkgref.MustParse("libssl@h2"), pkgref.MustParse("zlib@h3")}
	if !slices.Equal(closure, want) {
		t.Errorf("Closure(curl@h1) = %v, want %v", closure, want)
	}
}

func TestClosureIncludesReachableRoots(t *testing.T) {
	idx := testIndex(t)
	roots := []pkgref.Ref{pkgref.MustParse("curl@h1"), pkgref.MustParse("zlib@h3")}
	closure, err := resolve.Closure(context.Background(), idx, roots)
	if err != nil {
		t.Fatalf("Closure: %v", err)
	}
	if !slices.Contains(closure, pkgref.MustParse("zlib@h3")) {
		t.Errorf("zlib@h3 is reachable from curl@h1 and should be in %v", closure)
	}
	if slices.Contains(closure, pkgref.MustParse("curl@h1")) {
		t.Errorf("curl@h1 is not reachable and should not be in %v", closure)
	}
}

func TestClosureToleratesCycles(t *testing.T) {
	idx := testIndex(t)
	graph, err := resolve.Expand(context.Background(), idx, []pkgref.Ref{pkgref.MustParse("a@h1")})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []pkgref.Ref{pkgref.MustParse("a@h1"), pkgref.MustParse("b@h1")}
	if got := graph.Nodes(); !slices.Equal(got, want) {
		t.Errorf("Nodes() = %v, want %v", got, want)
	}
	if got := graph.Dependencies(); !slices.Equal(got, want) {
		t.Errorf("Dependencies() = %v, want %v", got, want)
	}
	levels := graph.Levels()
	if len(levels) != 1 || !slices.Equal(levels[0], want) {
		t.Errorf("Levels() = %v, want one cyclic level", levels)
	}
}

func TestLevels(t *testing.T) {
	idx := testIndex(t)
	graph, err := resolve.Expand(context.Background(), idx, []pkgref.Ref{pkgref.MustParse("curl@h1")})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	levels := graph.Levels()
	want := [][]string{{"zlib@h3"}, {"libssl@h2"}, {"curl@h1"}}
	if len(levels) != len(want) {
		t.Fatalf("Levels() = %v, want %v", levels, want)
	}
	for i, level := range levels {
		var names []string
		for _, ref := range level {
			names = append(names, ref.String())
		}
		if !slices.Equal(names, want[i]) {
			t.Errorf("level %d = %v, want %v", i, names, want[i])
		}
	}
}

func TestExpandUnknownRoot(t *testing.T) {
	idx := testIndex(t)
	_, err := resolve.Expand(context.Background(), idx, []pkgref.Ref{pkgref.MustParse("ghost@h1")})
	if !errors.Is(err, index.ErrNotFound) {
		t.Fatalf("error = %v, want index.ErrNotFound", err)
	}
}

type failingReader struct{}

func (failingReader) Read(context.Context, func(*index.Reader) error) error {
	return errors.New("index should not be read")
}

func testIndex(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.Open(index.Config{Path: filepath.Join(t.TempDir(), index.FileName)})
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	parsed, err := recipe.ParseDocument([]byte(document))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if err := idx.Populate(context.Background(), parsed); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	return idx
}
