package tree

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
)

// nodeDoc is the serialized form of a node. Fields are
// declared in alphabetical order so the JSON export has
// sorted keys.
type nodeDoc struct {
	Children []nodeDoc `json:"children,omitempty" yaml:"children,omitempty"`
	Name     string    `json:"name" yaml:"name"`
	RootPath string    `json:"root_path" yaml:"root_path"`
	Type     string    `json:"type" yaml:"type"`
	URL      string    `json:"url" yaml:"url"`
}

func toDoc(n *Node) nodeDoc {
	doc := nodeDoc{
		Name:     n.Name,
		RootPath: n.RootPath,
		Type:     n.Kind.String(),
		URL:      n.URL,
	}

	for _, c := range n.Children {
		doc.Children = append(doc.Children, toDoc(c))
	}

	return doc
}

// ExportJSON serializes the tree rooted at n as JSON
// with 2-space indentation and sorted keys.
func ExportJSON(n *Node) ([]byte, error) {
	const errCtx = "exporting tree as json"

	by, err := json.MarshalIndent(toDoc(n), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return by, nil
}

// ExportYAML serializes the tree rooted at n as YAML.
func ExportYAML(n *Node) ([]byte, error) {
	const errCtx = "exporting tree as yaml"

	by, err := yaml.Marshal(toDoc(n))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return by, nil
}

// Import rebuilds a tree from a structured export.
// YAML and JSON inputs are both accepted. Root paths
// are rederived from the name chain, preserving the
// creation-time invariant.
func Import(data []byte) (*Node, error) {
	const errCtx = "importing tree"

	var doc nodeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf(
			"%s: parse: %w", errCtx, err,
		)
	}

	root := NewRoot(doc.URL)

	if err := importChildren(root, doc.Children); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return root, nil
}

func importChildren(parent *Node, docs []nodeDoc) error {
	for _, doc := range docs {
		kind, err := ParseKind(doc.Type)
		if err != nil {
			return err
		}

		child := NewChild(
			parent, kind, doc.Name, doc.URL,
		)

		if err := importChildren(
			child, doc.Children,
		); err != nil {
			return err
		}
	}

	return nil
}

// RenderText writes the tree in indented plain-text
// form: one line per node with branch connectors, the
// root line showing the server base URL.
func RenderText(w io.Writer, root *Node) error {
	const errCtx = "rendering tree"

	if _, err := fmt.Fprintf(
		w, "root [%s]\n", root.URL,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := renderChildren(w, root, ""); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func renderChildren(
	w io.Writer,
	n *Node,
	prefix string,
) error {
	for i, c := range n.Children {
		connector := "├── "
		childPrefix := prefix + "│   "

		if i == len(n.Children)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		var sb strings.Builder
		sb.WriteString(prefix)
		sb.WriteString(connector)
		sb.WriteString(c.Name)
		sb.WriteString(" [")
		sb.WriteString(c.RootPath)
		sb.WriteString("]\n")

		if _, err := io.WriteString(
			w, sb.String(),
		); err != nil {
			return err
		}

		if err := renderChildren(
			w, c, childPrefix,
		); err != nil {
			return err
		}
	}

	return nil
}
