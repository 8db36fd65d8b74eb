// Package gitsync mirrors a finalized tree onto the
// local filesystem: it creates the directory structure
// for every group, then clones or updates every
// project leaf on a bounded worker pool.
package gitsync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/byte4ever/glmirror/config"
	"github.com/byte4ever/glmirror/errs"
	"github.com/byte4ever/glmirror/progress"
	"github.com/byte4ever/glmirror/tree"
)

// Action is one unit of synchronization work: a tree
// leaf, its destination path, and the behavior flags
// resolved at collection time. Leaves that are not
// projects (empty groups) execute as no-ops.
type Action struct {
	Node       *tree.Node
	Path       string
	Recursive  bool
	UseFetch   bool
	GitOptions string
}

// Engine executes the synchronization phase.
type Engine struct {
	git         Git
	concurrency int
	recursive   bool
	useFetch    bool
	gitOptions  string
	reporter    progress.Reporter
}

// NewEngine creates an Engine with the behavior flags
// copied from cfg. A nil git selects the external git
// executable; a nil reporter disables progress.
func NewEngine(
	git Git,
	cfg config.Config,
	reporter progress.Reporter,
) *Engine {
	if git == nil {
		git = ExecGit{}
	}

	if reporter == nil {
		reporter = progress.Nop{}
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Engine{
		git:         git,
		concurrency: concurrency,
		recursive:   cfg.Recursive,
		useFetch:    cfg.UseFetch,
		gitOptions:  cfg.GitOptions,
		reporter:    reporter,
	}
}

// Collect walks the tree, creates the directory for
// every node under dest (leading separator of the root
// path stripped), and returns one Action per leaf.
func (e *Engine) Collect(
	root *tree.Node,
	dest string,
) ([]Action, error) {
	const errCtx = "collecting git actions"

	var actions []Action

	if err := e.collectNode(
		root, dest, &actions,
	); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return actions, nil
}

func (e *Engine) collectNode(
	n *tree.Node,
	dest string,
	actions *[]Action,
) error {
	for _, child := range n.Children {
		rel := strings.TrimPrefix(child.RootPath, "/")
		path := filepath.Join(dest, rel)

		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf(
				"creating %s: %w", path, err,
			)
		}

		if child.IsLeaf() {
			*actions = append(*actions, Action{
				Node:       child,
				Path:       path,
				Recursive:  e.recursive,
				UseFetch:   e.useFetch,
				GitOptions: e.gitOptions,
			})

			continue
		}

		if err := e.collectNode(
			child, dest, actions,
		); err != nil {
			return err
		}
	}

	return nil
}

// Sync ensures every project leaf under root is
// present and up to date below dest. Actions run on a
// worker pool bounded by the configured git
// concurrency; each task fails independently and
// failures are surfaced after the batch completes.
func (e *Engine) Sync(
	ctx context.Context,
	root *tree.Node,
	dest string,
) error {
	const errCtx = "syncing tree"

	actions, err := e.Collect(root, dest)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug(
		"syncing",
		"actions", len(actions),
		"concurrency", e.concurrency,
	)

	e.reporter.Start(len(actions))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)

	sem := make(chan struct{}, e.concurrency)

	for _, action := range actions {
		if ctx.Err() != nil {
			mu.Lock()
			failures = append(failures, ctx.Err())
			mu.Unlock()

			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(act Action) {
			defer wg.Done()
			defer func() { <-sem }()

			if execErr := e.execute(
				ctx, act,
			); execErr != nil {
				mu.Lock()
				failures = append(failures, execErr)
				mu.Unlock()
			}
		}(action)
	}

	wg.Wait()

	elapsed := e.reporter.Finish()
	slog.Debug("sync finished", "elapsed", elapsed)

	if len(failures) > 0 {
		return fmt.Errorf(
			"%s: %d operations failed, first: %w",
			errCtx, len(failures), failures[0],
		)
	}

	return nil
}

// execute clones when the destination is not yet a
// repository, updates it otherwise.
func (e *Engine) execute(
	ctx context.Context,
	act Action,
) error {
	if e.git.IsRepo(ctx, act.Path) {
		return e.update(ctx, act)
	}

	return e.clone(ctx, act)
}

func (e *Engine) clone(
	ctx context.Context,
	act Action,
) error {
	if act.Node.Kind != tree.KindProject {
		// Placeholder leaf for an empty group; the
		// directory already exists.
		slog.Debug(
			"skipping non-project leaf",
			"kind", act.Node.Kind.String(),
			"path", act.Path,
		)
		e.reporter.Step(
			act.Node.Name,
			act.Node.Kind.String(),
			"skipping",
		)

		return nil
	}

	e.reporter.Step(act.Node.Name, "project", "cloning")

	var options []string

	if act.Recursive {
		options = append(options, "--recursive")
	}

	if act.UseFetch {
		options = append(options, "--mirror")
	}

	if act.GitOptions != "" {
		options = append(
			options,
			strings.Split(act.GitOptions, ",")...,
		)
	}

	if err := e.git.Clone(
		ctx, act.Node.URL, act.Path, options,
	); err != nil {
		return classifyClone(act, err)
	}

	return nil
}

func (e *Engine) update(
	ctx context.Context,
	act Action,
) error {
	// A mirror clone only supports fetch, regardless
	// of the configured update mode.
	fetch := act.UseFetch ||
		e.git.IsMirror(ctx, act.Path)

	verb := "pulling"
	if fetch {
		verb = "fetching"
	}

	e.reporter.Step(act.Node.Name, "project", verb)

	var err error
	if fetch {
		err = e.git.Fetch(ctx, act.Path)
	} else {
		err = e.git.Pull(ctx, act.Path)
	}

	if err != nil {
		return classifyUpdate(act, err)
	}

	if act.Recursive {
		if err := e.git.UpdateSubmodules(
			ctx, act.Path,
		); err != nil {
			return classifyUpdate(act, err)
		}
	}

	return nil
}

// classifyClone maps a git clone failure onto the
// error taxonomy by inspecting the git output.
func classifyClone(act Action, err error) error {
	low := strings.ToLower(err.Error())

	kind := errs.GitCloneNetwork

	switch {
	case strings.Contains(low, "permission denied") ||
		strings.Contains(low, "could not read"):
		kind = errs.GitClonePermission
		if isSSHURL(act.Node.URL) {
			kind = errs.GitCloneSSH
		}
	case strings.Contains(low, "not found") ||
		strings.Contains(low, "does not exist"):
		kind = errs.GitClonePermission
	case strings.Contains(low, "network") ||
		strings.Contains(low, "connection") ||
		strings.Contains(low, "timeout"):
		kind = errs.GitCloneNetwork
	}

	return errs.NewGitError(
		fmt.Sprintf(
			"cloning %s from %s to %s: %v",
			act.Node.Name, act.Node.URL, act.Path, err,
		),
		errs.Suggest(kind, map[string]any{
			"url":  act.Node.URL,
			"path": act.Path,
		}),
	)
}

// classifyUpdate maps a pull/fetch failure onto the
// error taxonomy.
func classifyUpdate(act Action, err error) error {
	low := strings.ToLower(err.Error())

	kind := errs.GitPullBranch

	if strings.Contains(low, "permission") {
		kind = errs.GitClonePermission
	}

	return errs.NewGitError(
		fmt.Sprintf(
			"updating %s at %s: %v",
			act.Node.Name, act.Path, err,
		),
		errs.Suggest(kind, map[string]any{
			"url":  act.Node.URL,
			"path": act.Path,
		}),
	)
}

func isSSHURL(url string) bool {
	return strings.HasPrefix(url, "git@") ||
		strings.HasPrefix(url, "ssh://")
}
