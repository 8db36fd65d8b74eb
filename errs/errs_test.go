package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/glmirror/errs"
)

func TestError_formatting(t *testing.T) {
	t.Parallel()

	t.Run("without suggestion", func(t *testing.T) {
		t.Parallel()

		err := errs.NewGitError("clone failed", "")
		assert.Equal(t, "clone failed", err.Error())
	})

	t.Run("with suggestion", func(t *testing.T) {
		t.Parallel()

		err := errs.NewGitError(
			"clone failed", "retry with -m http",
		)
		assert.Equal(
			t,
			"clone failed\nsuggestion: retry with -m http",
			err.Error(),
		)
	})
}

func TestTypedErrors_errorsAs(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf(
		"discovery: %w",
		errs.NewAPIError("listing groups", "", 404),
	)

	var apiErr *errs.APIError
	require.ErrorAs(t, wrapped, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)

	var authErr *errs.AuthError
	assert.False(t, errors.As(wrapped, &authErr))
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind errs.SuggestionKind
		vars map[string]any
		want string
	}{
		{
			name: "renders variables",
			kind: errs.GitCloneNetwork,
			vars: map[string]any{
				"url": "https://gitlab.example.com",
			},
			want: "check network connectivity and the " +
				"availability of the GitLab instance " +
				"at https://gitlab.example.com",
		},
		{
			name: "missing variable renders empty",
			kind: errs.GitCloneNetwork,
			vars: nil,
			want: "check network connectivity and the " +
				"availability of the GitLab instance " +
				"at ",
		},
		{
			name: "unknown kind yields empty string",
			kind: errs.SuggestionKind("nope"),
			vars: nil,
			want: "",
		},
		{
			name: "static entry ignores variables",
			kind: errs.APIRateLimit,
			vars: map[string]any{"url": "ignored"},
			want: "the API rate limit was exceeded; " +
				"wait and retry, lower " +
				"--api-rate-limit, or reduce " +
				"--api-concurrency",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := errs.Suggest(tc.kind, tc.vars)
			assert.Equal(t, tc.want, got)
		})
	}
}
