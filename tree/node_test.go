package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/glmirror/tree"
)

func TestNewChild_rootPath(t *testing.T) {
	t.Parallel()

	root := tree.NewRoot("https://gitlab.example.com")
	group := tree.NewChild(
		root, tree.KindGroup, "group", "http://g",
	)
	sub := tree.NewChild(
		group, tree.KindSubgroup, "subgroup", "http://s",
	)
	project := tree.NewChild(
		sub, tree.KindProject, "project", "git@p",
	)

	assert.Equal(t, "", root.RootPath)
	assert.Equal(t, "/group", group.RootPath)
	assert.Equal(t, "/group/subgroup", sub.RootPath)
	assert.Equal(
		t, "/group/subgroup/project", project.RootPath,
	)
	assert.Same(t, sub, project.Parent())
}

func TestDetach(t *testing.T) {
	t.Parallel()

	root := tree.NewRoot("http://base")
	a := tree.NewChild(
		root, tree.KindGroup, "a", "http://a",
	)
	b := tree.NewChild(
		root, tree.KindGroup, "b", "http://b",
	)

	a.Detach()

	require.Len(t, root.Children, 1)
	assert.Same(t, b, root.Children[0])
	assert.Nil(t, a.Parent())

	// Detaching the root is a no-op.
	root.Detach()
	assert.Len(t, root.Children, 1)
}

func TestLeavesAndDescendants(t *testing.T) {
	t.Parallel()

	root := tree.NewRoot("http://base")
	group := tree.NewChild(
		root, tree.KindGroup, "g", "http://g",
	)
	sub := tree.NewChild(
		group, tree.KindSubgroup, "s", "http://s",
	)
	p1 := tree.NewChild(
		sub, tree.KindProject, "p1", "git@p1",
	)
	p2 := tree.NewChild(
		group, tree.KindProject, "p2", "git@p2",
	)

	assert.Len(t, root.Descendants(), 4)

	leaves := root.Leaves()
	require.Len(t, leaves, 2)
	assert.Contains(t, leaves, p1)
	assert.Contains(t, leaves, p2)
}

func TestHeightAndIsEmpty(t *testing.T) {
	t.Parallel()

	root := tree.NewRoot("http://base")
	assert.Equal(t, 0, root.Height())
	assert.True(t, root.IsEmpty())

	group := tree.NewChild(
		root, tree.KindGroup, "g", "http://g",
	)
	assert.Equal(t, 1, root.Height())
	assert.False(t, root.IsEmpty())

	tree.NewChild(
		group, tree.KindProject, "p", "git@p",
	)
	assert.Equal(t, 2, root.Height())
	assert.False(t, root.IsEmpty())
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    tree.Kind
		wantErr bool
	}{
		{in: "root", want: tree.KindRoot},
		{in: "group", want: tree.KindGroup},
		{in: "subgroup", want: tree.KindSubgroup},
		{in: "project", want: tree.KindProject},
		{in: "bogus", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			kind, err := tree.ParseKind(tc.in)

			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
			assert.Equal(t, tc.in, kind.String())
		})
	}
}
