package errs

import "github.com/valyala/fasttemplate"

// SuggestionKind selects an entry from the suggestion
// catalog.
type SuggestionKind string

// Catalog keys for classified failures.
const (
	GitCloneSSH        SuggestionKind = "git_clone_ssh"
	GitClonePermission SuggestionKind = "git_clone_permission"
	GitCloneNetwork    SuggestionKind = "git_clone_network"
	GitPullBranch      SuggestionKind = "git_pull_branch"
	APIAuth            SuggestionKind = "api_auth"
	APIPermission      SuggestionKind = "api_permission"
	APIRateLimit       SuggestionKind = "api_rate_limit"
	APINotFound        SuggestionKind = "api_404"
	APIUnavailable     SuggestionKind = "api_503"
	ConfigMissing      SuggestionKind = "config_missing"
	TreeEmpty          SuggestionKind = "tree_empty"
)

// catalog maps failure kinds to remediation templates.
// Placeholders in {{name}} form are substituted from
// the vars passed to Suggest.
var catalog = map[SuggestionKind]string{
	GitCloneSSH: "ensure your SSH key is added to " +
		"GitLab (see {{url}}), or retry with the " +
		"http method: glmirror -m http",
	GitClonePermission: "check that the token has " +
		"the read_repository scope and that you can " +
		"open the project in the GitLab web UI",
	GitCloneNetwork: "check network connectivity " +
		"and the availability of the GitLab " +
		"instance at {{url}}",
	GitPullBranch: "the local branch may no longer " +
		"exist on the remote; retry with " +
		"--use-fetch or check out another branch " +
		"in {{path}}",
	APIAuth: "verify the token is valid and has the " +
		"read_api and read_repository scopes; " +
		"generate a new one under user settings on " +
		"{{url}}",
	APIPermission: "you may not have access to this " +
		"resource; verify the group or project " +
		"exists and that you are a member",
	APIRateLimit: "the API rate limit was exceeded; " +
		"wait and retry, lower --api-rate-limit, " +
		"or reduce --api-concurrency",
	APINotFound: "the resource was not found; it may " +
		"have been deleted or moved, or the token " +
		"cannot see it",
	APIUnavailable: "service unavailable; make sure " +
		"the base URL is the instance root (e.g. " +
		"https://gitlab.example.com) without a " +
		"nested path",
	ConfigMissing: "provide the GitLab URL via " +
		"-u/--url or GITLAB_URL and the token via " +
		"-t/--token or GITLAB_TOKEN",
	TreeEmpty: "no projects matched; inspect the " +
		"tree with -p, review the include/exclude " +
		"patterns, or use --group-search on large " +
		"instances",
}

// Suggest renders the catalog entry for kind with the
// given variables. Unknown kinds yield an empty
// string; missing variables render as empty.
func Suggest(
	kind SuggestionKind,
	vars map[string]any,
) string {
	tpl, ok := catalog[kind]
	if !ok {
		return ""
	}

	if vars == nil {
		vars = map[string]any{}
	}

	return fasttemplate.
		New(tpl, "{{", "}}").
		ExecuteString(vars)
}
