// Package builder discovers the group/subgroup/project
// hierarchy from the remote API and produces the
// in-memory tree. Discovery may fan out across sibling
// branches on a bounded worker pool; a shared rate
// limiter gates every outbound call.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/sync/errgroup"

	"github.com/byte4ever/glmirror/config"
	"github.com/byte4ever/glmirror/errs"
	"github.com/byte4ever/glmirror/progress"
	"github.com/byte4ever/glmirror/tree"
)

// tokenLogin is the username injected alongside the
// token into HTTP clone URLs.
const tokenLogin = "gitlab-token"

// Builder produces a tree from one of three mutually
// exclusive sources: remote discovery, the
// authenticated user's personal projects, or a
// previously exported file.
type Builder struct {
	api           API
	baseURL       string
	token         string
	method        config.Method
	naming        config.Naming
	hideToken     bool
	includeShared bool
	concurrency   int
	failFast      bool
	reporter      progress.Reporter
}

// New creates a Builder over the given API
// collaborator with the behavior flags copied from
// cfg. A nil reporter disables progress reporting.
func New(
	api API,
	cfg config.Config,
	reporter progress.Reporter,
) *Builder {
	if reporter == nil {
		reporter = progress.Nop{}
	}

	concurrency := cfg.APIConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Builder{
		api:           api,
		baseURL:       cfg.URL,
		token:         cfg.Token,
		method:        cfg.Method,
		naming:        cfg.Naming,
		hideToken:     cfg.HideToken,
		includeShared: cfg.IncludeShared,
		concurrency:   concurrency,
		failFast:      cfg.FailFast,
		reporter:      reporter,
	}
}

// FromGitLab discovers all top-level groups matching
// the optional search term and recursively expands
// each into subgroups and projects.
func (b *Builder) FromGitLab(
	ctx context.Context,
	search string,
) (*tree.Node, error) {
	const errCtx = "building tree from gitlab"

	root := tree.NewRoot(b.baseURL)

	groups, err := b.api.ListTopLevelGroups(ctx, search)
	if err != nil {
		if err := b.soft(err); err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return root, nil
	}

	// The listing is already restricted server-side;
	// the parent filter guards older instances.
	var top []*gl.Group

	for _, g := range groups {
		if g.ParentID == 0 {
			top = append(top, g)
		}
	}

	b.reporter.Start(len(top))

	// Attach sibling nodes before fanning out so the
	// children order stays deterministic and every
	// goroutine mutates only its own subtree.
	nodes := make([]*tree.Node, len(top))
	for i, g := range top {
		nodes[i] = b.attachGroup(root, g)
	}

	if b.concurrency > 1 && len(top) > 1 {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(b.concurrency)

		for i, g := range top {
			eg.Go(func() error {
				return b.expand(egCtx, g, nodes[i])
			})
		}

		if err := eg.Wait(); err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}
	} else {
		for i, g := range top {
			if err := b.expand(
				ctx, g, nodes[i],
			); err != nil {
				return nil, fmt.Errorf(
					"%s: %w", errCtx, err,
				)
			}
		}
	}

	b.reporter.Finish()

	return root, nil
}

// FromUserProjects fetches only the authenticated
// user's personal projects, grouped under a single
// synthetic group node.
func (b *Builder) FromUserProjects(
	ctx context.Context,
) (*tree.Node, error) {
	const errCtx = "building tree from user projects"

	root := tree.NewRoot(b.baseURL)

	user, err := b.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	projects, err := b.api.ListUserProjects(
		ctx, int(user.ID),
	)
	if err != nil {
		if err := b.soft(err); err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return root, nil
	}

	b.reporter.Start(len(projects))

	personal := tree.NewChild(
		root,
		tree.KindGroup,
		user.Username+"-personal-projects",
		fmt.Sprintf(
			"%s/users/%s/projects",
			b.baseURL, user.Username,
		),
	)

	b.addProjects(personal, projects)
	b.reporter.Finish()

	return root, nil
}

// FromFile rebuilds a tree from a previously exported
// YAML or JSON file instead of calling the remote API.
func (b *Builder) FromFile(
	path string,
) (*tree.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewTreeError(
			fmt.Sprintf(
				"reading tree file %s: %v", path, err,
			),
			"",
		)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errs.NewTreeError(
			fmt.Sprintf(
				"tree file %s is empty", path,
			),
			"",
		)
	}

	root, err := tree.Import(data)
	if err != nil {
		return nil, errs.NewTreeError(
			fmt.Sprintf(
				"parsing tree file %s: %v", path, err,
			),
			"",
		)
	}

	return root, nil
}

// expand fills node with grp's subgroups and projects,
// recursing into each subgroup. Sibling subgroup
// details and subtrees are processed concurrently when
// the API concurrency allows; children are always
// attached by the goroutine owning the parent node.
func (b *Builder) expand(
	ctx context.Context,
	grp *gl.Group,
	node *tree.Node,
) error {
	var (
		subDefs []*gl.Group
		owned   []*gl.Project
		shared  []*gl.Project
	)

	fetchSubgroups := func() error {
		defs, err := b.api.ListSubgroups(ctx, int(grp.ID))
		if err != nil {
			return b.soft(err)
		}

		subDefs = defs

		return nil
	}

	fetchProjects := func() error {
		projects, err := b.api.ListGroupProjects(
			ctx, int(grp.ID),
		)
		if err != nil {
			return b.soft(err)
		}

		owned = projects

		if !b.includeShared {
			return nil
		}

		sp, err := b.api.ListSharedProjects(
			ctx, int(grp.ID),
		)
		if err != nil {
			return b.soft(err)
		}

		shared = sp

		return nil
	}

	if b.concurrency > 1 {
		var eg errgroup.Group

		eg.Go(fetchSubgroups)
		eg.Go(fetchProjects)

		if err := eg.Wait(); err != nil {
			return err
		}
	} else {
		if err := fetchSubgroups(); err != nil {
			return err
		}

		if err := fetchProjects(); err != nil {
			return err
		}
	}

	b.reporter.Grow(
		len(subDefs) + len(owned) + len(shared),
	)

	details, err := b.fetchDetails(ctx, subDefs)
	if err != nil {
		return err
	}

	// Attach subgroups first, then project leaves.
	var (
		subGroups []*gl.Group
		subNodes  []*tree.Node
	)

	for _, d := range details {
		if d == nil {
			// Branch skipped after a soft failure.
			continue
		}

		subGroups = append(subGroups, d)
		subNodes = append(
			subNodes, b.attachGroup(node, d),
		)
	}

	b.addProjects(node, owned)
	b.addProjects(node, shared)

	if b.concurrency > 1 && len(subNodes) > 1 {
		var eg errgroup.Group

		eg.SetLimit(b.concurrency)

		for i := range subNodes {
			eg.Go(func() error {
				return b.expand(
					ctx, subGroups[i], subNodes[i],
				)
			})
		}

		return eg.Wait()
	}

	for i := range subNodes {
		if err := b.expand(
			ctx, subGroups[i], subNodes[i],
		); err != nil {
			return err
		}
	}

	return nil
}

// fetchDetails resolves subgroup listings into full
// group payloads, keeping sibling order. Entries whose
// fetch soft-failed are nil.
func (b *Builder) fetchDetails(
	ctx context.Context,
	defs []*gl.Group,
) ([]*gl.Group, error) {
	details := make([]*gl.Group, len(defs))

	if b.concurrency > 1 && len(defs) > 1 {
		var eg errgroup.Group

		eg.SetLimit(b.concurrency)

		for i, def := range defs {
			eg.Go(func() error {
				detail, err := b.api.GetGroup(
					ctx, int(def.ID),
				)
				if err != nil {
					return b.soft(err)
				}

				details[i] = detail

				return nil
			})
		}

		if err := eg.Wait(); err != nil {
			return nil, err
		}

		return details, nil
	}

	for i, def := range defs {
		detail, err := b.api.GetGroup(ctx, int(def.ID))
		if err != nil {
			if err := b.soft(err); err != nil {
				return nil, err
			}

			continue
		}

		details[i] = detail
	}

	return details, nil
}

// attachGroup creates a group or subgroup node under
// parent using the configured naming strategy.
func (b *Builder) attachGroup(
	parent *tree.Node,
	grp *gl.Group,
) *tree.Node {
	kind := tree.KindSubgroup
	if parent.IsRoot() {
		kind = tree.KindGroup
	}

	name := grp.Name
	if b.naming == config.NamingPath {
		name = grp.Path
	}

	node := tree.NewChild(
		parent, kind, name, grp.WebURL,
	)

	b.reporter.Step(name, kind.String(), "processing")

	return node
}

// addProjects appends project leaves to parent in
// listing order.
func (b *Builder) addProjects(
	parent *tree.Node,
	projects []*gl.Project,
) {
	for _, p := range projects {
		name := p.Name
		if b.naming == config.NamingPath {
			name = p.Path
		}

		tree.NewChild(
			parent,
			tree.KindProject,
			name,
			b.projectURL(p),
		)

		b.reporter.Step(name, "project", "adding")
	}
}

// projectURL selects the transport-appropriate clone
// URL, injecting the token into HTTP remotes unless
// token hiding is requested.
func (b *Builder) projectURL(p *gl.Project) string {
	if b.method == config.MethodSSH {
		return p.SSHURLToRepo
	}

	if b.token == "" || b.hideToken {
		return p.HTTPURLToRepo
	}

	return injectToken(p.HTTPURLToRepo, b.token)
}

// injectToken rewrites the scheme separator to embed
// an inline credential.
func injectToken(url, tok string) string {
	return strings.Replace(
		url,
		"://",
		"://"+tokenLogin+":"+tok+"@",
		1,
	)
}

// soft applies the error policy for recoverable
// per-entity failures: log and skip the branch, or
// propagate when fail-fast is set. Context
// cancellation always propagates.
func (b *Builder) soft(err error) error {
	if err == nil {
		return nil
	}

	if b.failFast ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	slog.Error(
		"skipping branch after discovery error",
		"error", err,
	)

	return nil
}
