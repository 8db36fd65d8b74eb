// Package mirror orchestrates a full run: it builds
// the tree from the configured source, prunes it with
// the include/exclude filters, and either prints the
// result or synchronizes it to the local filesystem.
package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/byte4ever/glmirror/builder"
	"github.com/byte4ever/glmirror/config"
	"github.com/byte4ever/glmirror/errs"
	"github.com/byte4ever/glmirror/filter"
	"github.com/byte4ever/glmirror/gitsync"
	"github.com/byte4ever/glmirror/progress"
	"github.com/byte4ever/glmirror/ratelimit"
	"github.com/byte4ever/glmirror/tree"
)

// Run executes one full run. Exit policy: validation
// failures surface as *errs.ConfigError before any
// network call, a rejected credential as
// *errs.AuthError before any tree work, an empty
// filtered tree in sync mode as *errs.TreeError.
func Run(
	ctx context.Context,
	cfg config.Config,
) error {
	const errCtx = "running glmirror"

	if err := cfg.Validate(); err != nil {
		return err
	}

	root, err := load(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	f, err := filter.New(cfg.Includes, cfg.Excludes)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	f.Apply(root)

	slog.Debug(
		"tree ready",
		"projects", len(root.Leaves()),
		"nodes", len(root.Descendants()),
	)

	if cfg.Print {
		return Print(os.Stdout, root, cfg.PrintFormat)
	}

	if root.IsEmpty() {
		return errs.NewTreeError(
			"the tree is empty after filtering, "+
				"nothing to sync",
			errs.Suggest(errs.TreeEmpty, nil),
		)
	}

	engine := gitsync.NewEngine(
		nil, cfg, newReporter(cfg, "syncing projects"),
	)

	if err := engine.Sync(
		ctx, root, cfg.Dest,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// load builds the tree from the configured source:
// exported file, personal projects, or remote
// discovery.
func load(
	ctx context.Context,
	cfg config.Config,
) (*tree.Node, error) {
	reporter := newReporter(cfg, "loading tree")

	if cfg.InFile != "" {
		slog.Debug(
			"loading tree from file",
			"file", cfg.InFile,
		)

		return builder.
			New(nil, cfg, reporter).
			FromFile(cfg.InFile)
	}

	limiter := ratelimit.New(cfg.APIRateLimit)

	api, err := builder.NewGitLabAPI(cfg, limiter)
	if err != nil {
		return nil, err
	}

	// Authentication happens before any tree work; a
	// rejected credential is always fatal.
	if _, err := api.CurrentUser(ctx); err != nil {
		return nil, err
	}

	b := builder.New(api, cfg, reporter)

	if cfg.UserProjects {
		slog.Debug(
			"loading user personal projects",
			"url", cfg.URL,
		)

		return b.FromUserProjects(ctx)
	}

	slog.Debug(
		"loading projects tree",
		"url", cfg.URL,
	)

	return b.FromGitLab(ctx, cfg.GroupSearch)
}

// Print writes the tree to w in the selected format.
// An empty tree is valid in print mode.
func Print(
	w io.Writer,
	root *tree.Node,
	format config.Format,
) error {
	const errCtx = "printing tree"

	switch format {
	case config.FormatTree:
		if err := tree.RenderText(w, root); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		return nil

	case config.FormatYAML:
		by, err := tree.ExportYAML(root)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		_, err = w.Write(by)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		return nil

	case config.FormatJSON:
		by, err := tree.ExportJSON(root)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		if _, err := w.Write(
			append(by, '\n'),
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		return nil

	default:
		return fmt.Errorf(
			"%s: unknown format %q", errCtx, format,
		)
	}
}

func newReporter(
	cfg config.Config,
	desc string,
) progress.Reporter {
	if cfg.DisableProgress || cfg.Print {
		return progress.Nop{}
	}

	return progress.NewBar(desc)
}
