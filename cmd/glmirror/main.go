// Command glmirror clones or pulls an entire GitLab
// group/project tree. It discovers the hierarchy
// through the API, applies include/exclude glob
// filters, and mirrors the result onto the local
// filesystem, or prints the tree without cloning.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/byte4ever/glmirror/config"
	"github.com/byte4ever/glmirror/mirror"
	"github.com/byte4ever/glmirror/token"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // CLI flag setup is inherently long
func run() error {
	const errCtx = "running glmirror"

	defaults := config.Default()

	// Connection flags.
	url := flag.StringP(
		"url", "u", envOr("GITLAB_URL", ""),
		"gitlab instance url (e.g. https://gitlab.com)",
	)
	tok := flag.StringP(
		"token", "t", envOr("GITLAB_TOKEN", ""),
		"gitlab personal access token",
	)

	// Tree source flags.
	file := flag.StringP(
		"file", "f", "",
		"load the tree from a previously exported file",
	)
	userProjects := flag.Bool(
		"user-projects", false,
		"fetch only the authenticated user's "+
			"personal projects",
	)
	groupSearch := flag.StringP(
		"group-search", "g", "",
		"server-side search term for top-level groups",
	)

	// Shape flags.
	method := flag.StringP(
		"method", "m",
		envOr(
			"GLMIRROR_CLONE_METHOD",
			string(defaults.Method),
		),
		"clone transport: ssh or http",
	)
	naming := flag.StringP(
		"naming", "n",
		envOr(
			"GLMIRROR_NAMING",
			string(defaults.Naming),
		),
		"folder naming strategy: name or path",
	)
	archived := flag.StringP(
		"archived", "a", string(defaults.Archived),
		"archived projects: include, exclude or only",
	)
	include := flag.StringP(
		"include", "i", envOr("GLMIRROR_INCLUDE", ""),
		"comma delimited glob patterns of paths to "+
			"clone or pull",
	)
	exclude := flag.StringP(
		"exclude", "x", envOr("GLMIRROR_EXCLUDE", ""),
		"comma delimited glob patterns of paths to "+
			"skip",
	)
	includeShared := flag.Bool(
		"include-shared", defaults.IncludeShared,
		"include projects shared into a group",
	)

	// Git behavior flags.
	recursive := flag.BoolP(
		"recursive", "r", false,
		"clone and update submodules recursively",
	)
	useFetch := flag.Bool(
		"use-fetch", false,
		"clone with --mirror and update with fetch "+
			"instead of pull",
	)
	hideToken := flag.Bool(
		"hide-token", false,
		"keep the token out of generated clone urls",
	)
	gitOptions := flag.String(
		"git-options", "",
		"extra git clone options, comma separated",
	)

	// Concurrency flags.
	concurrency := flag.IntP(
		"concurrency", "c",
		envIntOr(
			"GLMIRROR_GIT_CONCURRENCY",
			defaults.Concurrency,
		),
		"number of concurrent git operations",
	)
	apiConcurrency := flag.Int(
		"api-concurrency",
		envIntOr(
			"GLMIRROR_API_CONCURRENCY",
			defaults.APIConcurrency,
		),
		"number of concurrent discovery calls",
	)
	apiRateLimit := flag.Int(
		"api-rate-limit",
		envIntOr(
			"GLMIRROR_API_RATE_LIMIT",
			defaults.APIRateLimit,
		),
		"maximum api requests per hour",
	)

	// Output flags.
	printOnly := flag.BoolP(
		"print", "p", false,
		"print the tree without cloning",
	)
	printFormat := flag.String(
		"print-format", string(defaults.PrintFormat),
		"print format: tree, yaml or json",
	)
	noProgress := flag.Bool(
		"no-progress", false,
		"disable the progress bar",
	)
	verbose := flag.Bool(
		"verbose", false,
		"print verbose output",
	)
	showVersion := flag.Bool(
		"version", false,
		"print the version",
	)

	// Error policy.
	failFast := flag.Bool(
		"fail-fast", false,
		"abort on the first discovery error",
	)

	// Token storage.
	storeToken := flag.Bool(
		"store-token", false,
		"store the token in the os keyring for this url",
	)
	deleteToken := flag.Bool(
		"delete-token", false,
		"delete the stored token for this url",
	)

	flag.Parse()

	if *showVersion {
		fmt.Println(version)

		return nil
	}

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if *deleteToken {
		if *url == "" {
			return fmt.Errorf(
				"%s: --delete-token requires --url",
				errCtx,
			)
		}

		return token.Delete(*url)
	}

	// Fall back to the keyring when no token was
	// supplied by flag or environment.
	if *tok == "" && *url != "" {
		stored, err := token.Lookup(*url)
		if err != nil {
			slog.Warn(
				"keyring lookup failed",
				"error", err,
			)
		}

		*tok = stored
	}

	if *storeToken {
		if *url == "" || *tok == "" {
			return fmt.Errorf(
				"%s: --store-token requires --url "+
					"and --token", errCtx,
			)
		}

		if err := token.Store(*url, *tok); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		slog.Info("token stored", "url", *url)
	}

	cfg, err := buildConfig(flagValues{
		url:            *url,
		token:          *tok,
		dest:           flag.Arg(0),
		method:         *method,
		naming:         *naming,
		archived:       *archived,
		include:        *include,
		exclude:        *exclude,
		file:           *file,
		groupSearch:    *groupSearch,
		gitOptions:     *gitOptions,
		printFormat:    *printFormat,
		concurrency:    *concurrency,
		apiConcurrency: *apiConcurrency,
		apiRateLimit:   *apiRateLimit,
		recursive:      *recursive,
		useFetch:       *useFetch,
		includeShared:  *includeShared,
		hideToken:      *hideToken,
		userProjects:   *userProjects,
		failFast:       *failFast,
		noProgress:     *noProgress,
		printOnly:      *printOnly,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// A user interrupt kills in-flight git processes
	// and aborts the run immediately.
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt,
	)
	defer stop()

	if err := mirror.Run(ctx, cfg); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// flagValues bundles parsed flag values to keep
// buildConfig's signature small.
type flagValues struct {
	url            string
	token          string
	dest           string
	method         string
	naming         string
	archived       string
	include        string
	exclude        string
	file           string
	groupSearch    string
	gitOptions     string
	printFormat    string
	concurrency    int
	apiConcurrency int
	apiRateLimit   int
	recursive      bool
	useFetch       bool
	includeShared  bool
	hideToken      bool
	userProjects   bool
	failFast       bool
	noProgress     bool
	printOnly      bool
}

// buildConfig parses enum flags and assembles the
// immutable run configuration.
func buildConfig(fv flagValues) (config.Config, error) {
	var cfg config.Config

	method, err := config.ParseMethod(fv.method)
	if err != nil {
		return cfg, err
	}

	naming, err := config.ParseNaming(fv.naming)
	if err != nil {
		return cfg, err
	}

	archived, err := config.ParseArchived(fv.archived)
	if err != nil {
		return cfg, err
	}

	format, err := config.ParseFormat(fv.printFormat)
	if err != nil {
		return cfg, err
	}

	cfg = config.Config{
		URL:             fv.url,
		Token:           fv.token,
		Dest:            strings.TrimSuffix(fv.dest, "/"),
		Method:          method,
		Naming:          naming,
		Archived:        archived,
		Includes:        config.SplitCSV(fv.include),
		Excludes:        config.SplitCSV(fv.exclude),
		Concurrency:     fv.concurrency,
		APIConcurrency:  fv.apiConcurrency,
		APIRateLimit:    fv.apiRateLimit,
		Recursive:       fv.recursive,
		UseFetch:        fv.useFetch,
		IncludeShared:   fv.includeShared,
		HideToken:       fv.hideToken,
		UserProjects:    fv.userProjects,
		GroupSearch:     fv.groupSearch,
		GitOptions:      fv.gitOptions,
		FailFast:        fv.failFast,
		InFile:          fv.file,
		DisableProgress: fv.noProgress,
		Print:           fv.printOnly,
		PrintFormat:     format,
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn(
			"ignoring invalid numeric environment value",
			"key", key,
			"value", v,
		)

		return fallback
	}

	return n
}
