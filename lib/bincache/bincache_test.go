// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package bincache_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boldos/bold/lib/archive"
	"github.com/boldos/bold/lib/bincache"
	"github.com/boldos/bold/lib/build"
	"github.com/boldos/bold/lib/pkgref"
	"github.com/boldos/bold/lib/recipe"
)

// fakeProducer packs a tree containing one file named after the
// package, counting how often it is asked to build.
type fakeProducer struct {
	calls     atomic.Int32
	delay     time.Duration
	fail      error
	mu        sync.Mutex
	workspace []string
}

func (p *fakeProducer) Produce(ctx context.Context, workspace build.Workspace, pkg recipe.Package, artifactPath string) (archive.Info, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.workspace = append(p.workspace, workspace.Dir)
	p.mu.Unlock()
	time.Sleep(p.delay)
	if p.fail != nil {
		return archive.Info{}, p.fail
	}
	dest := workspace.DestDir(pkg.Ref)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return archive.Info{}, err
	}
	if err := os.WriteFile(filepath.Join(dest, pkg.Ref.Name()), []byte("built"), 0o644); err != nil {
		return archive.Info{}, err
	}
	return archive.Pack(dest, artifactPath)
}

type packageTable map[pkgref.Ref]recipe.Package

func (t packageTable) Package(_ context.Context, ref pkgref.Ref) (recipe.Package, error) {
	pkg, ok := t[ref]
	if !ok {
		return recipe.Package{}, errors.New("not indexed")
	}
	return pkg, nil
}

func packages(refs ...string) packageTable {
	table := packageTable{}
	for _, raw := range refs {
		ref := pkgref.MustParse(raw)
		table[ref] = recipe.Package{Ref: ref, Recipe: recipe.Recipe{Externals: map[string]string{}, Phases: map[recipe.Phase]recipe.PhaseSpec{}}}
	}
	return table
}

func newResolver(t *testing.T, producer bincache.Producer, endpoints ...string) (*bincache.Resolver, string) {
	t.Helper()
	root := t.TempDir()
	resolver, err := bincache.New(bincache.Config{
		InstalledDir: filepath.Join(root, "app"),
		CacheDir:     filepath.Join(root, "cache", "bold", "bincache"),
		BuildDir:     filepath.Join(root, "cache", "bold", "build"),
		Endpoints:    endpoints,
		Producer:     producer,
		Jobs:         4,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return resolver, root
}

// packedArtifact returns the bytes of an artifact holding one file.
func packedArtifact(t *testing.T, ref pkgref.Ref, file, content string) []byte {
	t.Helper()
	tree := t.TempDir()
	if err := os.WriteFile(filepath.Join(tree, file), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path := filepath.Join(t.TempDir(), archive.FileName(ref))
	if _, err := archive.Pack(tree, path); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return data
}

func TestRemoteEndpointsInOrder(t *testing.T) {
	ref := pkgref.MustParse("curl@h1")
	var firstHits atomic.Int32
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		firstHits.Add(1)
		http.NotFound(w, r)
	}))
	defer first.Close()

	artifact := packedArtifact(t, ref, "curl", "from second")
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/curl@h1.tar.zst" {
			http.NotFound(w, r)
			return
		}
		w.Write(artifact)
	}))
	defer second.Close()

	var thirdHits atomic.Int32
	third := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		thirdHits.Add(1)
	}))
	defer third.Close()

	producer := &fakeProducer{}
	resolver, _ := newResolver(t, producer, first.URL, second.URL+"/", third.URL)
	result, err := resolver.Materialize(context.Background(), packages("curl@h1"), ref)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if result.Source != bincache.SourceRemote || result.Endpoint != second.URL+"/" {
		t.Errorf("result = %+v", result)
	}
	if firstHits.Load() != 1 || thirdHits.Load() != 0 {
		t.Errorf("endpoint hits: first=%d third=%d", firstHits.Load(), thirdHits.Load())
	}
	if producer.calls.Load() != 0 {
		t.Error("producer should not run when a cache has the artifact")
	}
	data, err := os.ReadFile(filepath.Join(result.Path, "curl"))
	if err != nil || string(data) != "from second" {
		t.Errorf("installed file = %q, %v", data, err)
	}
	if _, err := os.Stat(resolver.ArtifactPath(ref)); err != nil {
		t.Errorf("downloaded artifact should be kept in the local cache: %v", err)
	}

	again, err := resolver.Materialize(context.Background(), packages("curl@h1"), ref)
	if err != nil {
		t.Fatalf("second Materialize: %v", err)
	}
	if again.Source != bincache.SourceInstalled {
		t.Errorf("second Source = %v, want installed", again.Source)
	}
}

func TestLocalCacheBeforeRemote(t *testing.T) {
	ref := pkgref.MustParse("zlib@h3")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("remote endpoint should not be contacted: %s", r.URL)
	}))
	defer server.Close()

	resolver, _ := newResolver(t, &fakeProducer{}, server.URL)
	if err := os.WriteFile(resolver.ArtifactPath(ref), packedArtifact(t, ref, "libz.so", "z"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	result, err := resolver.Materialize(context.Background(), packages("zlib@h3"), ref)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if result.Source != bincache.SourceLocalCache {
		t.Errorf("Source = %v, want local cache", result.Source)
	}
}

func TestInvalidRemoteArtifactFallsThrough(t *testing.T) {
	ref := pkgref.MustParse("curl@h1")
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>captive portal</html>"))
	}))
	defer portal.Close()

	artifact := packedArtifact(t, ref, "curl", "from mirror")
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(artifact)
	}))
	defer mirror.Close()

	producer := &fakeProducer{}
	resolver, _ := newResolver(t, producer, portal.URL, mirror.URL)
	result, err := resolver.Materialize(context.Background(), packages("curl@h1"), ref)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if result.Source != bincache.SourceRemote || result.Endpoint != mirror.URL {
		t.Errorf("result = %+v, want remote from %s", result, mirror.URL)
	}
	if producer.calls.Load() != 0 {
		t.Error("producer should not run when a later endpoint has the artifact")
	}
	data, err := os.ReadFile(filepath.Join(result.Path, "curl"))
	if err != nil || string(data) != "from mirror" {
		t.Errorf("installed file = %q, %v", data, err)
	}
	cached, err := os.ReadFile(resolver.ArtifactPath(ref))
	if err != nil {
		t.Fatalf("ReadFile cached artifact: %v", err)
	}
	if string(cached) != string(artifact) {
		t.Error("local cache holds the invalid body instead of the mirror's artifact")
	}
}

func TestInvalidRemoteArtifactFallsBackToBuild(t *testing.T) {
	ref := pkgref.MustParse("curl@h1")
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>captive portal</html>"))
	}))
	defer portal.Close()

	producer := &fakeProducer{}
	resolver, _ := newResolver(t, producer, portal.URL)
	result, err := resolver.Materialize(context.Background(), packages("curl@h1"), ref)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if result.Source != bincache.SourceBuilt {
		t.Errorf("Source = %v, want built", result.Source)
	}
	if producer.calls.Load() != 1 {
		t.Errorf("producer ran %d times, want 1", producer.calls.Load())
	}
}

func TestCorruptLocalArtifactIsReplaced(t *testing.T) {
	ref := pkgref.MustParse("zlib@h3")
	artifact := packedArtifact(t, ref, "libz.so", "z")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(artifact)
	}))
	defer server.Close()

	resolver, _ := newResolver(t, &fakeProducer{}, server.URL)
	if err := os.WriteFile(resolver.ArtifactPath(ref), []byte("truncated"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	result, err := resolver.Materialize(context.Background(), packages("zlib@h3"), ref)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if result.Source != bincache.SourceRemote {
		t.Errorf("Source = %v, want remote cache", result.Source)
	}
	cached, err := os.ReadFile(resolver.ArtifactPath(ref))
	if err != nil || string(cached) != string(artifact) {
		t.Errorf("cached artifact not replaced: %v", err)
	}
}

func TestBuildFallbackRemovesWorkspace(t *testing.T) {
	ref := pkgref.MustParse("hello@h1")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	producer := &fakeProducer{}
	resolver, root := newResolver(t, producer, server.URL)
	result, err := resolver.Materialize(context.Background(), packages("hello@h1"), ref)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if result.Source != bincache.SourceBuilt {
		t.Errorf("Source = %v, want built", result.Source)
	}
	if _, err := os.Stat(filepath.Join(result.Path, "hello")); err != nil {
		t.Errorf("built file missing: %v", err)
	}
	assertEmptyBuildDir(t, root)
}

func TestFailedBuildRemovesWorkspace(t *testing.T) {
	ref := pkgref.MustParse("broken@h1")
	producer := &fakeProducer{fail: errors.New("phase failed")}
	resolver, root := newResolver(t, producer)
	if _, err := resolver.Materialize(context.Background(), packages("broken@h1"), ref); err == nil {
		t.Fatal("expected the build failure to be reported")
	}
	if _, err := os.Stat(resolver.InstalledPath(ref)); !os.IsNotExist(err) {
		t.Error("a failed build must not install anything")
	}
	assertEmptyBuildDir(t, root)
}

func TestConcurrentRequestsBuildOnce(t *testing.T) {
	ref := pkgref.MustParse("gcc@h7")
	producer := &fakeProducer{delay: 100 * time.Millisecond}
	resolver, _ := newResolver(t, producer)

	var group sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		group.Add(1)
		go func() {
			defer group.Done()
			_, err := resolver.Materialize(context.Background(), packages("gcc@h7"), ref)
			errs <- err
		}()
	}
	group.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Materialize: %v", err)
		}
	}
	if calls := producer.calls.Load(); calls != 1 {
		t.Errorf("producer ran %d times, want 1", calls)
	}
}

func TestMaterializeAllLevels(t *testing.T) {
	producer := &fakeProducer{}
	resolver, _ := newResolver(t, producer)
	levels := [][]pkgref.Ref{
		{pkgref.MustParse("zlib@h3")},
		{pkgref.MustParse("libssl@h2"), pkgref.MustParse("libxml@h4")},
		{pkgref.MustParse("curl@h1")},
	}
	results, err := resolver.MaterializeAll(context.Background(),
		packages("zlib@h3", "libssl@h2", "libxml@h4", "curl@h1"), levels)
	if err != nil {
		t.Fatalf("MaterializeAll: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}
	if results[0].Ref != pkgref.MustParse("zlib@h3") || results[3].Ref != pkgref.MustParse("curl@h1") {
		t.Errorf("results out of level order: %+v", results)
	}
	for _, result := range results {
		if _, err := os.Stat(result.Path); err != nil {
			t.Errorf("%s not installed: %v", result.Ref, err)
		}
	}
}

func assertEmptyBuildDir(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(root, "cache", "bold", "build"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("build workspaces left behind: %v", entries)
	}
}
