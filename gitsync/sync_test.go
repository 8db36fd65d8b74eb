package gitsync_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/glmirror/config"
	"github.com/byte4ever/glmirror/errs"
	"github.com/byte4ever/glmirror/gitsync"
	"github.com/byte4ever/glmirror/tree"
)

// fakeGit records calls per path and lets tests mark
// paths as existing repos, mirrors, or failures.
type fakeGit struct {
	mu       sync.Mutex
	repos    map[string]bool
	mirrors  map[string]bool
	failWith map[string]error
	calls    map[string][]string
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		repos:    map[string]bool{},
		mirrors:  map[string]bool{},
		failWith: map[string]error{},
		calls:    map[string][]string{},
	}
}

func (f *fakeGit) record(path, op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[path] = append(f.calls[path], op)

	return f.failWith[path]
}

func (f *fakeGit) ops(path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[path]
}

func (f *fakeGit) IsRepo(
	_ context.Context, path string,
) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.repos[path]
}

func (f *fakeGit) IsMirror(
	_ context.Context, path string,
) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.mirrors[path]
}

func (f *fakeGit) Clone(
	_ context.Context,
	_ string,
	path string,
	options []string,
) error {
	return f.record(
		path, "clone "+fmt.Sprint(options),
	)
}

func (f *fakeGit) Pull(
	_ context.Context, path string,
) error {
	return f.record(path, "pull")
}

func (f *fakeGit) Fetch(
	_ context.Context, path string,
) error {
	return f.record(path, "fetch")
}

func (f *fakeGit) UpdateSubmodules(
	_ context.Context, path string,
) error {
	return f.record(path, "submodules")
}

// fixture builds:
//
//	group
//	├── subgroup
//	│   ├── alpha (project)
//	│   └── beta (project)
//	└── empty-subgroup
func fixture() *tree.Node {
	root := tree.NewRoot("https://gitlab.example.com")
	grp := tree.NewChild(
		root, tree.KindGroup, "group", "",
	)
	sub := tree.NewChild(
		grp, tree.KindSubgroup, "subgroup", "",
	)
	tree.NewChild(
		sub,
		tree.KindProject,
		"alpha",
		"git@gitlab.example.com:group/alpha.git",
	)
	tree.NewChild(
		sub,
		tree.KindProject,
		"beta",
		"git@gitlab.example.com:group/beta.git",
	)
	tree.NewChild(
		grp, tree.KindSubgroup, "empty-subgroup", "",
	)

	return root
}

func engine(
	git gitsync.Git,
	mutate func(*config.Config),
) *gitsync.Engine {
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}

	return gitsync.NewEngine(git, cfg, nil)
}

func TestCollect(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()

	actions, err := engine(newFakeGit(), nil).
		Collect(fixture(), dest)
	require.NoError(t, err)

	// Two project leaves plus the empty subgroup leaf.
	require.Len(t, actions, 3)

	var paths []string
	for _, a := range actions {
		paths = append(paths, a.Path)
	}

	assert.Equal(t, []string{
		filepath.Join(dest, "group/subgroup/alpha"),
		filepath.Join(dest, "group/subgroup/beta"),
		filepath.Join(dest, "group/empty-subgroup"),
	}, paths)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestSync_clonesMissingRepos(t *testing.T) {
	t.Parallel()

	git := newFakeGit()
	dest := t.TempDir()

	require.NoError(
		t,
		engine(git, nil).Sync(
			context.Background(), fixture(), dest,
		),
	)

	alpha := filepath.Join(dest, "group/subgroup/alpha")
	beta := filepath.Join(dest, "group/subgroup/beta")

	assert.Equal(t, []string{"clone []"}, git.ops(alpha))
	assert.Equal(t, []string{"clone []"}, git.ops(beta))

	// The empty subgroup leaf is a directory no-op.
	assert.Empty(
		t,
		git.ops(filepath.Join(dest, "group/empty-subgroup")),
	)
}

func TestSync_updatesExistingRepos(t *testing.T) {
	t.Parallel()

	git := newFakeGit()
	dest := t.TempDir()
	alpha := filepath.Join(dest, "group/subgroup/alpha")
	git.repos[alpha] = true

	require.NoError(
		t,
		engine(git, nil).Sync(
			context.Background(), fixture(), dest,
		),
	)

	assert.Equal(t, []string{"pull"}, git.ops(alpha))
	assert.Equal(
		t,
		[]string{"clone []"},
		git.ops(filepath.Join(dest, "group/subgroup/beta")),
	)
}

func TestSync_cloneOptions(t *testing.T) {
	t.Parallel()

	git := newFakeGit()
	dest := t.TempDir()

	err := engine(git, func(c *config.Config) {
		c.Recursive = true
		c.UseFetch = true
		c.GitOptions = "--depth,1"
	}).Sync(context.Background(), fixture(), dest)
	require.NoError(t, err)

	alpha := filepath.Join(dest, "group/subgroup/alpha")
	assert.Equal(
		t,
		[]string{"clone [--recursive --mirror --depth 1]"},
		git.ops(alpha),
	)
}

func TestSync_useFetchUpdatesWithFetch(t *testing.T) {
	t.Parallel()

	git := newFakeGit()
	dest := t.TempDir()
	alpha := filepath.Join(dest, "group/subgroup/alpha")
	git.repos[alpha] = true

	err := engine(git, func(c *config.Config) {
		c.UseFetch = true
	}).Sync(context.Background(), fixture(), dest)
	require.NoError(t, err)

	assert.Equal(t, []string{"fetch"}, git.ops(alpha))
}

func TestSync_mirrorCloneForcesFetch(t *testing.T) {
	t.Parallel()

	git := newFakeGit()
	dest := t.TempDir()
	alpha := filepath.Join(dest, "group/subgroup/alpha")
	git.repos[alpha] = true
	git.mirrors[alpha] = true

	// Update mode is pull, but a bare mirror clone can
	// only fetch.
	require.NoError(
		t,
		engine(git, nil).Sync(
			context.Background(), fixture(), dest,
		),
	)

	assert.Equal(t, []string{"fetch"}, git.ops(alpha))
}

func TestSync_recursiveUpdatesSubmodules(t *testing.T) {
	t.Parallel()

	git := newFakeGit()
	dest := t.TempDir()
	alpha := filepath.Join(dest, "group/subgroup/alpha")
	git.repos[alpha] = true

	err := engine(git, func(c *config.Config) {
		c.Recursive = true
	}).Sync(context.Background(), fixture(), dest)
	require.NoError(t, err)

	assert.Equal(
		t, []string{"pull", "submodules"}, git.ops(alpha),
	)
}

func TestSync_failuresAreIsolated(t *testing.T) {
	t.Parallel()

	git := newFakeGit()
	dest := t.TempDir()
	alpha := filepath.Join(dest, "group/subgroup/alpha")
	git.failWith[alpha] = errors.New(
		"fatal: could not read from remote repository",
	)

	err := engine(git, func(c *config.Config) {
		c.Concurrency = 4
	}).Sync(context.Background(), fixture(), dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 operations failed")

	// The sibling still cloned despite the failure.
	assert.Equal(
		t,
		[]string{"clone []"},
		git.ops(filepath.Join(dest, "group/subgroup/beta")),
	)

	var gitErr *errs.GitError
	require.ErrorAs(t, err, &gitErr)
	assert.Contains(t, err.Error(), "suggestion:")
}

func TestSync_sshPermissionSuggestion(t *testing.T) {
	t.Parallel()

	git := newFakeGit()
	dest := t.TempDir()
	alpha := filepath.Join(dest, "group/subgroup/alpha")
	git.failWith[alpha] = errors.New(
		"git@gitlab.example.com: Permission denied (publickey)",
	)

	err := engine(git, nil).Sync(
		context.Background(), fixture(), dest,
	)
	require.Error(t, err)

	// The leaf URL is SSH, so the remediation points at
	// the key setup.
	assert.Contains(t, err.Error(), "SSH key")
}

func TestSync_cancelledContextStopsScheduling(t *testing.T) {
	t.Parallel()

	git := newFakeGit()
	dest := t.TempDir()

	ctx, cancel := context.WithCancel(
		context.Background(),
	)
	cancel()

	err := engine(git, nil).Sync(ctx, fixture(), dest)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(
		t,
		git.ops(filepath.Join(dest, "group/subgroup/alpha")),
	)
}

var _ gitsync.Git = (*fakeGit)(nil)
