package builder

import (
	"context"
	"fmt"
	"net/http"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/glmirror/config"
	"github.com/byte4ever/glmirror/errs"
	"github.com/byte4ever/glmirror/ratelimit"
)

// API is the narrow surface of the remote server the
// builder consumes. Implementations classify failures
// into *errs.APIError values carrying the upstream
// status code.
type API interface {
	// CurrentUser fetches the authenticated user.
	// Used both as the authentication step and for
	// personal project discovery.
	CurrentUser(ctx context.Context) (*gl.User, error)

	// ListTopLevelGroups lists groups without a
	// parent, optionally filtered by a server-side
	// search term.
	ListTopLevelGroups(
		ctx context.Context,
		search string,
	) ([]*gl.Group, error)

	// ListSubgroups lists the direct subgroups of a
	// group.
	ListSubgroups(
		ctx context.Context,
		gid int,
	) ([]*gl.Group, error)

	// GetGroup fetches full group details by id.
	GetGroup(
		ctx context.Context,
		gid int,
	) (*gl.Group, error)

	// ListGroupProjects lists the projects owned by a
	// group.
	ListGroupProjects(
		ctx context.Context,
		gid int,
	) ([]*gl.Project, error)

	// ListSharedProjects lists the projects shared
	// into a group from other groups.
	ListSharedProjects(
		ctx context.Context,
		gid int,
	) ([]*gl.Project, error)

	// ListUserProjects lists a user's personal
	// projects.
	ListUserProjects(
		ctx context.Context,
		uid int,
	) ([]*gl.Project, error)
}

const perPage = 100

// gitlabAPI implements API on the GitLab REST client.
// Every outbound call is gated by the shared rate
// limiter, regardless of discovery concurrency.
type gitlabAPI struct {
	client   *gl.Client
	limiter  *ratelimit.Limiter
	baseURL  string
	archived *bool
}

// NewGitLabAPI creates the remote API collaborator for
// the given instance. The archived tri-state is
// forwarded as a listing argument where the server
// honors it.
func NewGitLabAPI(
	cfg config.Config,
	limiter *ratelimit.Limiter,
) (API, error) {
	const errCtx = "creating gitlab client"

	client, err := gl.NewClient(
		cfg.Token,
		gl.WithBaseURL(cfg.URL),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return &gitlabAPI{
		client:   client,
		limiter:  limiter,
		baseURL:  cfg.URL,
		archived: cfg.Archived.APIValue(),
	}, nil
}

func (a *gitlabAPI) CurrentUser(
	ctx context.Context,
) (*gl.User, error) {
	if err := a.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	user, resp, err := a.client.Users.CurrentUser(
		gl.WithContext(ctx),
	)
	if err != nil {
		if status(resp) == http.StatusUnauthorized ||
			status(resp) == http.StatusForbidden {
			return nil, errs.NewAuthError(
				fmt.Sprintf(
					"authentication rejected by %s: %v",
					a.baseURL, err,
				),
				errs.Suggest(errs.APIAuth, map[string]any{
					"url": a.baseURL,
				}),
			)
		}

		return nil, a.classify(
			"fetching current user", resp, err,
		)
	}

	return user, nil
}

func (a *gitlabAPI) ListTopLevelGroups(
	ctx context.Context,
	search string,
) ([]*gl.Group, error) {
	opt := &gl.ListGroupsOptions{
		ListOptions:  gl.ListOptions{PerPage: perPage},
		TopLevelOnly: gl.Ptr(true),
	}
	if search != "" {
		opt.Search = gl.Ptr(search)
	}

	var all []*gl.Group

	for {
		if err := a.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		groups, resp, err := a.client.Groups.ListGroups(
			opt, gl.WithContext(ctx),
		)
		if err != nil {
			return nil, a.classify(
				"listing top-level groups", resp, err,
			)
		}

		all = append(all, groups...)

		if resp.NextPage == 0 {
			break
		}

		opt.Page = resp.NextPage
	}

	return all, nil
}

func (a *gitlabAPI) ListSubgroups(
	ctx context.Context,
	gid int,
) ([]*gl.Group, error) {
	opt := &gl.ListSubGroupsOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
	}

	var all []*gl.Group

	for {
		if err := a.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		groups, resp, err := a.client.Groups.ListSubGroups(
			gid, opt, gl.WithContext(ctx),
		)
		if err != nil {
			return nil, a.classify(
				fmt.Sprintf(
					"listing subgroups of group %d", gid,
				),
				resp, err,
			)
		}

		all = append(all, groups...)

		if resp.NextPage == 0 {
			break
		}

		opt.Page = resp.NextPage
	}

	return all, nil
}

func (a *gitlabAPI) GetGroup(
	ctx context.Context,
	gid int,
) (*gl.Group, error) {
	if err := a.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	group, resp, err := a.client.Groups.GetGroup(
		gid,
		&gl.GetGroupOptions{},
		gl.WithContext(ctx),
	)
	if err != nil {
		return nil, a.classify(
			fmt.Sprintf("getting group %d", gid),
			resp, err,
		)
	}

	return group, nil
}

func (a *gitlabAPI) ListGroupProjects(
	ctx context.Context,
	gid int,
) ([]*gl.Project, error) {
	opt := &gl.ListGroupProjectsOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
		Archived:    a.archived,
		WithShared:  gl.Ptr(false),
	}

	var all []*gl.Project

	for {
		if err := a.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		projects, resp, err := a.client.Groups.ListGroupProjects(
			gid, opt, gl.WithContext(ctx),
		)
		if err != nil {
			return nil, a.classify(
				fmt.Sprintf(
					"listing projects of group %d", gid,
				),
				resp, err,
			)
		}

		all = append(all, projects...)

		if resp.NextPage == 0 {
			break
		}

		opt.Page = resp.NextPage
	}

	return all, nil
}

func (a *gitlabAPI) ListSharedProjects(
	ctx context.Context,
	gid int,
) ([]*gl.Project, error) {
	// Shared projects are only exposed on the group
	// detail payload.
	group, err := a.GetGroup(ctx, gid)
	if err != nil {
		return nil, err
	}

	return group.SharedProjects, nil
}

func (a *gitlabAPI) ListUserProjects(
	ctx context.Context,
	uid int,
) ([]*gl.Project, error) {
	opt := &gl.ListProjectsOptions{
		ListOptions: gl.ListOptions{PerPage: perPage},
		Archived:    a.archived,
	}

	var all []*gl.Project

	for {
		if err := a.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		projects, resp, err := a.client.Projects.ListUserProjects(
			uid, opt, gl.WithContext(ctx),
		)
		if err != nil {
			return nil, a.classify(
				fmt.Sprintf(
					"listing projects of user %d", uid,
				),
				resp, err,
			)
		}

		all = append(all, projects...)

		if resp.NextPage == 0 {
			break
		}

		opt.Page = resp.NextPage
	}

	return all, nil
}

// classify converts a client error into a typed
// APIError with an actionable suggestion keyed by the
// response status.
func (a *gitlabAPI) classify(
	op string,
	resp *gl.Response,
	err error,
) error {
	code := status(resp)

	kind := errs.APIPermission

	switch code {
	case http.StatusNotFound:
		kind = errs.APINotFound
	case http.StatusTooManyRequests:
		kind = errs.APIRateLimit
	case http.StatusServiceUnavailable:
		kind = errs.APIUnavailable
	}

	return errs.NewAPIError(
		fmt.Sprintf("%s: %v", op, err),
		errs.Suggest(kind, map[string]any{
			"url": a.baseURL,
		}),
		code,
	)
}

func status(resp *gl.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}

	return resp.StatusCode
}
