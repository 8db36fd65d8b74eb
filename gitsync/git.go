package gitsync

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/byte4ever/glmirror/exec"
)

// Git is the local git collaborator consumed by the
// sync engine.
type Git interface {
	// IsRepo reports whether path is a valid local
	// repository.
	IsRepo(ctx context.Context, path string) bool

	// IsMirror reports whether the repository at path
	// is a bare mirror. Mirrors are always updated
	// with fetch.
	IsMirror(ctx context.Context, path string) bool

	// Clone clones url into path with the given extra
	// options.
	Clone(
		ctx context.Context,
		url string,
		path string,
		options []string,
	) error

	// Pull updates the repository at path from its
	// origin remote.
	Pull(ctx context.Context, path string) error

	// Fetch fetches the repository's origin remote
	// without merging.
	Fetch(ctx context.Context, path string) error

	// UpdateSubmodules updates submodules
	// recursively.
	UpdateSubmodules(
		ctx context.Context,
		path string,
	) error
}

// ExecGit implements Git on the external git
// executable.
type ExecGit struct{}

// IsRepo implements Git.
func (ExecGit) IsRepo(
	ctx context.Context,
	path string,
) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}

	_, err := exec.Ex(
		ctx, path, "git", "rev-parse", "--git-dir",
	)

	return err == nil
}

// IsMirror implements Git.
func (ExecGit) IsMirror(
	ctx context.Context,
	path string,
) bool {
	out, err := exec.Ex(
		ctx, path,
		"git", "rev-parse", "--is-bare-repository",
	)

	return err == nil &&
		strings.TrimSpace(out) == "true"
}

// Clone implements Git.
func (ExecGit) Clone(
	ctx context.Context,
	url string,
	path string,
	options []string,
) error {
	args := append([]string{"clone"}, options...)
	args = append(args, url, path)

	return run(ctx, "", args...)
}

// Pull implements Git.
func (ExecGit) Pull(
	ctx context.Context,
	path string,
) error {
	return run(ctx, path, "pull")
}

// Fetch implements Git.
func (ExecGit) Fetch(
	ctx context.Context,
	path string,
) error {
	return run(ctx, path, "fetch", "origin")
}

// UpdateSubmodules implements Git.
func (ExecGit) UpdateSubmodules(
	ctx context.Context,
	path string,
) error {
	return run(
		ctx, path,
		"submodule", "update", "--init", "--recursive",
	)
}

// run executes git and folds the combined output into
// the returned error so failures can be classified
// from the git message.
func run(
	ctx context.Context,
	dir string,
	args ...string,
) error {
	out, err := exec.Ex(ctx, dir, "git", args...)
	if err != nil {
		if out = strings.TrimSpace(out); out != "" {
			return fmt.Errorf("%w: %s", err, out)
		}

		return err
	}

	return nil
}
