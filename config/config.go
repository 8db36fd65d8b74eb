// Package config defines the immutable configuration
// value object consumed by the tree builder and the
// sync engine, plus the small enums for transport,
// folder naming, archived handling and print format.
package config

import (
	"fmt"
	"strings"

	"github.com/byte4ever/glmirror/errs"
	"github.com/byte4ever/glmirror/ratelimit"
)

// Method is the git transport used for clone URLs.
type Method string

// Supported clone transports.
const (
	MethodSSH  Method = "ssh"
	MethodHTTP Method = "http"
)

// ParseMethod parses a clone transport name.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(s)) {
	case MethodSSH:
		return MethodSSH, nil
	case MethodHTTP:
		return MethodHTTP, nil
	default:
		return "", fmt.Errorf(
			"parsing clone method: %q is not ssh or http", s,
		)
	}
}

// Naming selects how folders are named: the entity's
// display name or its URL-safe path segment.
type Naming string

// Supported naming strategies.
const (
	NamingName Naming = "name"
	NamingPath Naming = "path"
)

// ParseNaming parses a folder naming strategy.
func ParseNaming(s string) (Naming, error) {
	switch Naming(strings.ToLower(s)) {
	case NamingName:
		return NamingName, nil
	case NamingPath:
		return NamingPath, nil
	default:
		return "", fmt.Errorf(
			"parsing naming strategy: %q is not name or path", s,
		)
	}
}

// Archived controls how archived projects are handled
// at the API call boundary.
type Archived string

// Archived tri-state values.
const (
	ArchivedInclude Archived = "include"
	ArchivedExclude Archived = "exclude"
	ArchivedOnly    Archived = "only"
)

// ParseArchived parses an archived-handling value.
func ParseArchived(s string) (Archived, error) {
	switch Archived(strings.ToLower(s)) {
	case ArchivedInclude:
		return ArchivedInclude, nil
	case ArchivedExclude:
		return ArchivedExclude, nil
	case ArchivedOnly:
		return ArchivedOnly, nil
	default:
		return "", fmt.Errorf(
			"parsing archived handling: %q is not "+
				"include, exclude or only", s,
		)
	}
}

// APIValue returns the upstream filter argument: nil
// includes everything, false excludes archived, true
// selects only archived.
func (a Archived) APIValue() *bool {
	switch a {
	case ArchivedExclude:
		v := false

		return &v
	case ArchivedOnly:
		v := true

		return &v
	default:
		return nil
	}
}

// Format is the print output format.
type Format string

// Supported print formats.
const (
	FormatTree Format = "tree"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat parses a print format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatTree:
		return FormatTree, nil
	case FormatYAML:
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf(
			"parsing print format: %q is not tree, "+
				"yaml or json", s,
		)
	}
}

// Config carries every setting for one run. Values are
// assembled once by the CLI and never mutated
// afterwards.
type Config struct {
	// URL is the GitLab instance base URL.
	URL string

	// Token is the personal access token.
	Token string

	// Dest is the local destination root for sync
	// mode.
	Dest string

	// Method selects the clone transport.
	Method Method

	// Naming selects display names vs path segments
	// for folders.
	Naming Naming

	// Archived is the archived-handling tri-state.
	Archived Archived

	// Includes and Excludes are glob patterns matched
	// against node root paths.
	Includes []string
	Excludes []string

	// Concurrency bounds concurrent git operations.
	Concurrency int

	// APIConcurrency bounds concurrent discovery
	// calls.
	APIConcurrency int

	// APIRateLimit is the maximum number of API
	// requests per hour.
	APIRateLimit int

	// Recursive clones and updates submodules.
	Recursive bool

	// UseFetch clones with --mirror and updates with
	// fetch instead of pull.
	UseFetch bool

	// IncludeShared also lists projects shared into a
	// group from other groups.
	IncludeShared bool

	// HideToken keeps the token out of generated
	// project URLs.
	HideToken bool

	// UserProjects restricts discovery to the
	// authenticated user's personal projects.
	UserProjects bool

	// GroupSearch is an optional server-side search
	// term for top-level groups.
	GroupSearch string

	// GitOptions are extra git options, comma
	// separated, appended verbatim to clone calls.
	GitOptions string

	// FailFast aborts the build on the first
	// discovery error instead of skipping the branch.
	FailFast bool

	// InFile loads the tree from a previously
	// exported file instead of the API.
	InFile string

	// DisableProgress suppresses the progress bar.
	DisableProgress bool

	// Print prints the tree instead of syncing.
	Print bool

	// PrintFormat selects the print representation.
	PrintFormat Format
}

// Default returns a Config with the documented default
// values.
func Default() Config {
	return Config{
		Method:         MethodSSH,
		Naming:         NamingName,
		Archived:       ArchivedInclude,
		Concurrency:    1,
		APIConcurrency: 5,
		APIRateLimit:   ratelimit.DefaultMaxPerWindow,
		IncludeShared:  true,
		PrintFormat:    FormatTree,
	}
}

// Validate checks that the required values are present
// before any network call is made.
func (c Config) Validate() error {
	if c.URL == "" || c.Token == "" {
		return errs.NewConfigError(
			"gitlab url and token are required",
			errs.Suggest(errs.ConfigMissing, nil),
		)
	}

	if !c.Print && c.Dest == "" {
		return errs.NewConfigError(
			"destination directory is required in sync mode",
			errs.Suggest(errs.ConfigMissing, nil),
		)
	}

	if c.Concurrency < 1 || c.APIConcurrency < 1 {
		return errs.NewConfigError(
			"concurrency values must be at least 1", "",
		)
	}

	return nil
}

// SplitCSV splits a comma-separated value list,
// trimming blanks. An empty input yields nil.
func SplitCSV(s string) []string {
	if s == "" {
		return nil
	}

	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
