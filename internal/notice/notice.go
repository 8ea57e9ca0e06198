// Package notice parses eForms UBL notices and answers XPath queries over
// them. Queries use the document's own prefixes (cbc:, cac:, efac:, ...);
// no namespace URI is hard-coded.
package notice

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/bjornjorgensen/TED-and-Doffin-to-ocds-sub009/internal/merge"
)

// ErrMalformedSource is returned when a notice cannot be parsed at all.
var ErrMalformedSource = errors.New("malformed source document")

// SourceError wraps a parse failure with the file it came from.
type SourceError struct {
	Path string // empty for in-memory sources
	Err  error
}

func (e *SourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("notice: parse: %v", e.Err)
	}
	return fmt.Sprintf("notice: parse %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool { return target == ErrMalformedSource }

// ErrorKind reports merge.KindMalformedSource.
func (e *SourceError) ErrorKind() merge.ErrorKind { return merge.KindMalformedSource }

// Notice is a parsed, read-only notice document. It is safe for concurrent
// queries.
type Notice struct {
	doc  *xmlquery.Node
	root *xmlquery.Node
}

// Parse reads an eForms notice from r.
func Parse(r io.Reader) (*Notice, error) {
	return parse(r, "")
}

// ParseString parses a notice held in memory.
func ParseString(s string) (*Notice, error) {
	return parse(strings.NewReader(s), "")
}

// ParseFile parses the notice stored at path.
func ParseFile(path string) (*Notice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("notice: open %s: %w", path, err)
	}
	defer f.Close()
	return parse(f, path)
}

func parse(r io.Reader, path string) (*Notice, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	root := rootElement(doc)
	if root == nil {
		return nil, &SourceError{Path: path, Err: errors.New("no root element")}
	}
	return &Notice{doc: doc, root: root}, nil
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

// RootName returns the local name of the root element, e.g. "ContractNotice".
func (n *Notice) RootName() string {
	return n.root.Data
}

// Root returns the root element as a queryable node.
func (n *Notice) Root() Node {
	return Node{n: n.root}
}

// NoticeID returns the notice identifier (BT-701), or "".
func (n *Notice) NoticeID() string {
	return n.Root().Text("cbc:ID[@schemeName='notice-id']")
}

// NoticeType returns the notice subtype code (BT-02), or "".
func (n *Notice) NoticeType() string {
	return n.Root().Text("cbc:NoticeTypeCode")
}

// Text evaluates expr relative to the root element. See Node.Text.
func (n *Notice) Text(expr string) string {
	return n.Root().Text(expr)
}

// Nodes evaluates expr relative to the root element. See Node.Nodes.
func (n *Notice) Nodes(expr string) []Node {
	return n.Root().Nodes(expr)
}

// Node is one element of a parsed notice.
type Node struct {
	n *xmlquery.Node
}

// Valid reports whether the node refers to an element.
func (n Node) Valid() bool {
	return n.n != nil
}

// Name returns the prefixed element name, e.g. "cbc:ID".
func (n Node) Name() string {
	if n.n == nil {
		return ""
	}
	if n.n.Prefix == "" {
		return n.n.Data
	}
	return n.n.Prefix + ":" + n.n.Data
}

// Value returns the trimmed text content of the node.
func (n Node) Value() string {
	if n.n == nil {
		return ""
	}
	return strings.TrimSpace(n.n.InnerText())
}

// Attr returns the value of the named attribute, or "".
func (n Node) Attr(name string) string {
	if n.n == nil {
		return ""
	}
	return n.n.SelectAttr(name)
}

// Nodes returns every element matching expr relative to n. An invalid
// expression matches nothing.
func (n Node) Nodes(expr string) []Node {
	if n.n == nil {
		return nil
	}
	found, err := xmlquery.QueryAll(n.n, expr)
	if err != nil {
		return nil
	}
	out := make([]Node, 0, len(found))
	for _, f := range found {
		out = append(out, Node{n: f})
	}
	return out
}

// First returns the first element matching expr, which may be invalid.
func (n Node) First(expr string) Node {
	if n.n == nil {
		return Node{}
	}
	found, err := xmlquery.Query(n.n, expr)
	if err != nil || found == nil {
		return Node{}
	}
	return Node{n: found}
}

// Text returns the trimmed text of the first match of expr, or "".
func (n Node) Text(expr string) string {
	return n.First(expr).Value()
}

// Texts returns the trimmed, non-empty texts of every match of expr.
func (n Node) Texts(expr string) []string {
	var out []string
	for _, m := range n.Nodes(expr) {
		if v := m.Value(); v != "" {
			out = append(out, v)
		}
	}
	return out
}
