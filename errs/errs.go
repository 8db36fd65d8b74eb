// Package errs defines the error taxonomy: typed
// errors for configuration, API, authentication, git
// and tree failures, each carrying an optional
// actionable suggestion rendered from a template
// catalog.
package errs

// detail is the message/suggestion pair shared by all
// typed errors.
type detail struct {
	Message    string
	Suggestion string
}

func (d *detail) Error() string {
	if d.Suggestion == "" {
		return d.Message
	}

	return d.Message + "\nsuggestion: " + d.Suggestion
}

// ConfigError reports missing or invalid
// configuration, surfaced before any network call.
type ConfigError struct{ detail }

// NewConfigError creates a ConfigError.
func NewConfigError(msg, suggestion string) *ConfigError {
	return &ConfigError{detail{msg, suggestion}}
}

// APIError reports a classified discovery failure with
// the HTTP-like status code of the upstream response
// (0 when unknown).
type APIError struct {
	detail
	StatusCode int
}

// NewAPIError creates an APIError.
func NewAPIError(
	msg string,
	suggestion string,
	statusCode int,
) *APIError {
	return &APIError{
		detail:     detail{msg, suggestion},
		StatusCode: statusCode,
	}
}

// AuthError reports a rejected credential. Always
// fatal, raised before any tree work begins.
type AuthError struct{ detail }

// NewAuthError creates an AuthError.
func NewAuthError(msg, suggestion string) *AuthError {
	return &AuthError{detail{msg, suggestion}}
}

// GitError reports a classified clone/pull/fetch
// failure for a single repository.
type GitError struct{ detail }

// NewGitError creates a GitError.
func NewGitError(msg, suggestion string) *GitError {
	return &GitError{detail{msg, suggestion}}
}

// TreeError reports tree-level failures such as an
// empty result in sync mode or an unreadable tree
// file.
type TreeError struct{ detail }

// NewTreeError creates a TreeError.
func NewTreeError(msg, suggestion string) *TreeError {
	return &TreeError{detail{msg, suggestion}}
}
