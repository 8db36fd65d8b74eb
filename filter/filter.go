// Package filter prunes a discovered tree with glob
// patterns matched against node root paths. Include
// patterns select leaves to keep, exclude patterns
// override includes, and ancestor groups survive as
// long as any descendant leaf survives.
package filter

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/byte4ever/glmirror/tree"
)

// Matcher matches slash-delimited paths against a set
// of glob patterns. Matching is case-sensitive and
// anchored to the full path: `*` stays within one path
// segment, `**` crosses segments, `{a,b}` alternates
// and `[...]` is a character class.
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles the given patterns. An empty
// pattern list yields a matcher that matches nothing.
func NewMatcher(patterns []string) (*Matcher, error) {
	const errCtx = "compiling patterns"

	globs := make([]glob.Glob, 0, len(patterns))

	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %q: %w", errCtx, p, err,
			)
		}

		globs = append(globs, g)
	}

	return &Matcher{globs: globs}, nil
}

// Match reports whether path matches any pattern.
func (m *Matcher) Match(path string) bool {
	for _, g := range m.globs {
		if g.Match(path) {
			return true
		}
	}

	return false
}

// Filter combines include and exclude predicates into
// a single keep decision over tree nodes.
type Filter struct {
	include    *Matcher
	exclude    *Matcher
	includeAll bool
}

// New builds a Filter from include and exclude pattern
// lists. An empty include list keeps everything; an
// empty exclude list excludes nothing.
func New(
	includes []string,
	excludes []string,
) (*Filter, error) {
	const errCtx = "creating filter"

	inc, err := NewMatcher(includes)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: includes: %w", errCtx, err,
		)
	}

	exc, err := NewMatcher(excludes)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: excludes: %w", errCtx, err,
		)
	}

	return &Filter{
		include:    inc,
		exclude:    exc,
		includeAll: len(includes) == 0,
	}, nil
}

// Keep reports whether the node passes the combined
// include-and-not-exclude predicate.
func (f *Filter) Keep(n *tree.Node) bool {
	included := f.includeAll ||
		f.include.Match(n.RootPath)

	return included && !f.exclude.Match(n.RootPath)
}

// Apply prunes the tree in place using a post-order
// walk. Non-leaf children are recursed into first; a
// child whose descendants were all removed is then
// re-evaluated as a leaf. Intermediate nodes that keep
// at least one descendant leaf are never tested
// themselves, so an include pattern targeting a deep
// leaf preserves its ancestor chain.
func (f *Filter) Apply(root *tree.Node) {
	f.process(root)
}

func (f *Filter) process(n *tree.Node) {
	// Snapshot: detaching mutates n.Children.
	children := make([]*tree.Node, len(n.Children))
	copy(children, n.Children)

	for _, child := range children {
		if child.IsLeaf() {
			if !f.Keep(child) {
				child.Detach()
			}

			continue
		}

		f.process(child)

		// The child may have become a leaf after its
		// own subtree was pruned.
		if child.IsLeaf() && !f.Keep(child) {
			child.Detach()
		}
	}
}
