package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/glmirror/config"
	"github.com/byte4ever/glmirror/errs"
)

func TestParseMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    config.Method
		wantErr bool
	}{
		{in: "ssh", want: config.MethodSSH},
		{in: "http", want: config.MethodHTTP},
		{in: "SSH", want: config.MethodSSH},
		{in: "git", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			got, err := config.ParseMethod(tc.in)
			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseNaming(t *testing.T) {
	t.Parallel()

	got, err := config.ParseNaming("PATH")
	require.NoError(t, err)
	assert.Equal(t, config.NamingPath, got)

	_, err = config.ParseNaming("slug")
	require.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"tree", "yaml", "json"} {
		got, err := config.ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, config.Format(in), got)
	}

	_, err := config.ParseFormat("xml")
	require.Error(t, err)
}

func TestArchivedAPIValue(t *testing.T) {
	t.Parallel()

	assert.Nil(t, config.ArchivedInclude.APIValue())

	excl := config.ArchivedExclude.APIValue()
	require.NotNil(t, excl)
	assert.False(t, *excl)

	only := config.ArchivedOnly.APIValue()
	require.NotNil(t, only)
	assert.True(t, *only)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := config.Default()
	valid.URL = "https://gitlab.example.com"
	valid.Token = "secret"
	valid.Dest = "/tmp/mirror"

	t.Run("valid config passes", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, valid.Validate())
	})

	t.Run("missing url", func(t *testing.T) {
		t.Parallel()

		cfg := valid
		cfg.URL = ""

		var cfgErr *errs.ConfigError
		require.ErrorAs(t, cfg.Validate(), &cfgErr)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()

		cfg := valid
		cfg.Token = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("missing dest in sync mode", func(t *testing.T) {
		t.Parallel()

		cfg := valid
		cfg.Dest = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("print mode needs no dest", func(t *testing.T) {
		t.Parallel()

		cfg := valid
		cfg.Dest = ""
		cfg.Print = true
		require.NoError(t, cfg.Validate())
	})

	t.Run("zero concurrency", func(t *testing.T) {
		t.Parallel()

		cfg := valid
		cfg.Concurrency = 0
		require.Error(t, cfg.Validate())
	})
}

func TestSplitCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{
			name: "single",
			in:   "/group**",
			want: []string{"/group**"},
		},
		{
			name: "trims blanks",
			in:   " a , b ,, c ",
			want: []string{"a", "b", "c"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(
				t, tc.want, config.SplitCSV(tc.in),
			)
		})
	}
}
