// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/boldos/bold/lib/clock"
	"github.com/boldos/bold/lib/index"
	"github.com/boldos/bold/lib/lockfile"
	"github.com/boldos/bold/lib/pkgref"
)

const (
	// NextDir is the staging directory of a commit in progress.
	NextDir = "next"

	// CurrentLink points at the active generation.
	CurrentLink = "current"

	// ParentLink points from a generation to its predecessor.
	ParentLink = "parent"

	// RootDir is the merged filesystem view inside a generation.
	RootDir = "root"

	lockFile        = ".lock"
	currentTempLink = ".current.tmp"
)

// ErrStagingExists is returned by Prepare when a staging directory is
// left over from an interrupted commit.
var ErrStagingExists = errors.New("a snapshot staging directory already exists")

// ErrNoGeneration is returned when a requested generation does not
// exist.
var ErrNoGeneration = errors.New("no such generation")

// Config holds the parameters for a Store.
type Config struct {
	// Dir is the snapshot directory. It is created if missing.
	Dir string

	// Clock stamps the creation time of committed generations. Nil
	// means clock.Real().
	Clock clock.Clock

	Logger *slog.Logger
}

// Store manages the generations in one snapshot directory.
type Store struct {
	dir    string
	clock  clock.Clock
	logger *slog.Logger
}

// Open creates the snapshot directory if needed and returns its store.
func Open(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("snapshot: Dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{dir: cfg.Dir, clock: clk, logger: logger}, nil
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }

// GenerationDir returns the directory of generation id.
func (s *Store) GenerationDir(id int) string {
	return filepath.Join(s.dir, strconv.Itoa(id))
}

// CurrentDir returns the path of the current symlink. It resolves to
// the active generation once one exists.
func (s *Store) CurrentDir() string {
	return filepath.Join(s.dir, CurrentLink)
}

// Current returns the active generation number. The boolean is false
// when nothing has been committed yet.
func (s *Store) Current() (int, bool, error) {
	target, err := os.Readlink(s.CurrentDir())
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading current generation: %w", err)
	}
	id, err := strconv.Atoi(filepath.Base(target))
	if err != nil || id <= 0 {
		return 0, false, fmt.Errorf("current generation link points at %q", target)
	}
	return id, true, nil
}

// CurrentMetadata returns the metadata of the active generation, or
// nil when no generation has been committed. Absence is not an error.
func (s *Store) CurrentMetadata() (*Metadata, error) {
	id, ok, err := s.Current()
	if err != nil || !ok {
		return nil, err
	}
	return s.Metadata(id)
}

// Metadata returns the metadata of generation id.
func (s *Store) Metadata(id int) (*Metadata, error) {
	metadata, err := readMetadata(filepath.Join(s.GenerationDir(id), MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("generation %d: %w", id, ErrNoGeneration)
	}
	return metadata, err
}

// IndexPath returns the package index of generation id.
func (s *Store) IndexPath(id int) string {
	return filepath.Join(s.GenerationDir(id), index.FileName)
}

// Generation describes one committed generation.
type Generation struct {
	ID int

	// Parent is the predecessor, or zero for the first generation.
	Parent int

	Current  bool
	Metadata *Metadata
}

// Generations lists every committed generation in ascending order.
func (s *Store) Generations() ([]Generation, error) {
	ids, err := s.generationIDs()
	if err != nil {
		return nil, err
	}
	current, _, err := s.Current()
	if err != nil {
		return nil, err
	}

	generations := make([]Generation, 0, len(ids))
	for _, id := range ids {
		metadata, err := s.Metadata(id)
		if err != nil {
			return nil, err
		}
		generation := Generation{ID: id, Current: id == current, Metadata: metadata}
		if target, err := os.Readlink(filepath.Join(s.GenerationDir(id), ParentLink)); err == nil {
			generation.Parent, _ = strconv.Atoi(filepath.Base(target))
		}
		generations = append(generations, generation)
	}
	return generations, nil
}

func (s *Store) generationIDs() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	var ids []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.Atoi(entry.Name())
		if err != nil || id <= 0 || strconv.Itoa(id) != entry.Name() {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Switch makes generation id the active one.
func (s *Store) Switch(ctx context.Context, id int) error {
	lock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer lock.Release()

	info, err := os.Stat(s.GenerationDir(id))
	if err != nil || !info.IsDir() {
		return fmt.Errorf("generation %d: %w", id, ErrNoGeneration)
	}
	if err := s.pointCurrentAt(id); err != nil {
		return err
	}
	s.logger.Info("switched generation", "generation", id)
	return nil
}

// pointCurrentAt replaces the current link in one rename.
func (s *Store) pointCurrentAt(id int) error {
	temp := filepath.Join(s.dir, currentTempLink)
	if err := os.Remove(temp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale link: %w", err)
	}
	if err := os.Symlink(strconv.Itoa(id), temp); err != nil {
		return fmt.Errorf("creating current link: %w", err)
	}
	if err := os.Rename(temp, s.CurrentDir()); err != nil {
		os.Remove(temp)
		return fmt.Errorf("switching current link: %w", err)
	}
	return nil
}

// lock takes the store lock. When another bold process holds it, a
// notice is logged before blocking so the wait is not silent.
func (s *Store) lock(ctx context.Context) (*lockfile.Lock, error) {
	path := filepath.Join(s.dir, lockFile)
	lock, acquired, err := lockfile.TryAcquire(path)
	if err != nil {
		return nil, fmt.Errorf("locking snapshot store: %w", err)
	}
	if acquired {
		return lock, nil
	}
	s.logger.Info("waiting for another bold process to finish", "lock", path)
	lock, err = lockfile.Acquire(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("locking snapshot store: %w", err)
	}
	return lock, nil
}

// Staging is a generation being prepared. It holds the store lock
// until it is committed or discarded.
type Staging struct {
	store    *Store
	dir      string
	lock     *lockfile.Lock
	finished bool
}

// Prepare creates the staging directory. It waits for any other
// staging in progress and fails with ErrStagingExists if an earlier
// commit was interrupted and left its staging directory behind.
func (s *Store) Prepare(ctx context.Context) (*Staging, error) {
	lock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.dir, NextDir)
	if err := os.Mkdir(dir, 0o755); err != nil {
		lock.Release()
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: remove %s if no other bold is running", ErrStagingExists, dir)
		}
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	return &Staging{store: s, dir: dir, lock: lock}, nil
}

// Dir returns the staging directory.
func (st *Staging) Dir() string { return st.dir }

// IndexPath returns where the staged package index belongs.
func (st *Staging) IndexPath() string {
	return filepath.Join(st.dir, index.FileName)
}

// LinkIndex hardlinks an existing package index into the staging
// directory.
func (st *Staging) LinkIndex(path string) error {
	if err := os.Link(path, st.IndexPath()); err != nil {
		return fmt.Errorf("linking package index: %w", err)
	}
	return nil
}

// Commit turns the staging directory into the next generation.
// installedPath maps each global package to its installed tree. When
// switchCurrent is false the current link is left alone, unless this
// is the first generation.
//
// A CollisionError is returned before anything is linked. On any error
// the staging directory stays in place for Discard.
func (st *Staging) Commit(metadata *Metadata, installedPath func(pkgref.Ref) string, switchCurrent bool) (int, error) {
	if st.finished {
		return 0, errors.New("snapshot: staging already finished")
	}
	s := st.store

	committed := metadata.Clone()
	committed.Created = s.clock.Now().UTC()
	if err := writeMetadata(filepath.Join(st.dir, MetadataFile), committed); err != nil {
		return 0, err
	}

	globals := committed.GlobalRefs()
	sources := make([]MergeSource, len(globals))
	for i, ref := range globals {
		sources[i] = MergeSource{Owner: ref.String(), Dir: installedPath(ref)}
	}
	plan, err := PlanMerge(sources)
	if err != nil {
		return 0, err
	}
	root := filepath.Join(st.dir, RootDir)
	if err := os.Mkdir(root, 0o755); err != nil {
		return 0, fmt.Errorf("creating merged root: %w", err)
	}
	if err := plan.Apply(root); err != nil {
		return 0, err
	}
	if err := os.Mkdir(filepath.Join(root, MarkerDir), 0o755); err != nil {
		return 0, fmt.Errorf("creating marker directory: %w", err)
	}

	current, hasCurrent, err := s.Current()
	if err != nil {
		return 0, err
	}
	ids, err := s.generationIDs()
	if err != nil {
		return 0, err
	}
	id := 1
	if len(ids) > 0 {
		id = ids[len(ids)-1] + 1
	}
	if hasCurrent {
		if err := os.Symlink(filepath.Join("..", strconv.Itoa(current)), filepath.Join(st.dir, ParentLink)); err != nil {
			return 0, fmt.Errorf("linking parent generation: %w", err)
		}
	}
	if err := os.Rename(st.dir, s.GenerationDir(id)); err != nil {
		return 0, fmt.Errorf("renaming staging directory: %w", err)
	}
	st.finished = true
	defer st.release()

	if switchCurrent || !hasCurrent {
		if err := s.pointCurrentAt(id); err != nil {
			return id, err
		}
	}
	s.logger.Info("committed generation",
		"generation", id,
		"parent", current,
		"packages", len(committed.Packages),
		"global", len(globals),
		"files", plan.Links(),
		"switched", switchCurrent || !hasCurrent,
	)
	return id, nil
}

// Discard removes the staging directory unless it has been committed,
// and releases the store lock. It is safe to call more than once.
func (st *Staging) Discard() error {
	if st.finished {
		st.release()
		return nil
	}
	st.finished = true
	defer st.release()
	if err := os.RemoveAll(st.dir); err != nil {
		return fmt.Errorf("removing staging directory: %w", err)
	}
	return nil
}

func (st *Staging) release() {
	if st.lock == nil {
		return
	}
	if err := st.lock.Release(); err != nil {
		st.store.logger.Warn("releasing snapshot lock", "error", err)
	}
	st.lock = nil
}
