// Package xml wraps the xmlquery DOM library behind the small surface the
// standoff converter needs: parsing, normalization, pretty-printing,
// well-formedness checking, and XPath queries.
//
// Security Notes:
//   - XXE (External Entity) attacks are mitigated by using Go's xml.Decoder
//     which doesn't fetch external entities by default; Validate additionally
//     disables internal entity expansion.
package xml

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/standoff/core/encoding"
	"github.com/FocuswithJustin/standoff/core/errors"
)

// Document represents a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Parse parses XML data and returns a Document.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &errors.ParseError{Format: "XML", Message: err.Error(), Err: err}
	}
	return &Document{root: root}, nil
}

// ParseString parses XML text and returns a Document.
func ParseString(markup string) (*Document, error) {
	return Parse([]byte(markup))
}

// Node returns the document node.
func (d *Document) Node() *xmlquery.Node {
	return d.root
}

// Root returns the root element of the document, or nil if the document has
// no element children.
func (d *Document) Root() *xmlquery.Node {
	if d.root == nil {
		return nil
	}
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return child
		}
	}
	return nil
}

// Serialize converts the document back to XML text without an XML
// declaration. Childless elements serialize self-closing; whitespace-only
// text nodes are kept verbatim.
func (d *Document) Serialize() string {
	if d.root == nil {
		return ""
	}
	opts := []xmlquery.OutputOption{
		xmlquery.WithOutputSelf(),
		xmlquery.WithEmptyTagSupport(),
		xmlquery.WithPreserveSpace(),
	}
	if d.root.Type != xmlquery.DocumentNode {
		return d.root.OutputXMLWithOptions(opts...)
	}
	// The parser synthesizes a declaration node even when the input had
	// none; emitting it would prefix every reserialization with <?xml?>.
	var sb strings.Builder
	for child := d.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.DeclarationNode {
			continue
		}
		sb.WriteString(child.OutputXMLWithOptions(opts...))
	}
	return sb.String()
}

// Query executes an XPath expression and returns all matching nodes.
func (d *Document) Query(expr string) ([]*xmlquery.Node, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, errors.Wrap(err, "invalid xpath")
	}
	nodes, err := xmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, errors.Wrap(err, "xpath query failed")
	}
	return nodes, nil
}

// QueryOne executes an XPath expression and returns the first matching node,
// or nil if nothing matches.
func (d *Document) QueryOne(expr string) (*xmlquery.Node, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, errors.Wrap(err, "invalid xpath")
	}
	node, err := xmlquery.Query(d.root, expr)
	if err != nil {
		return nil, errors.Wrap(err, "xpath query failed")
	}
	return node, nil
}

// Normalize parses markup and reserializes it, guaranteeing a single
// well-formed document with one root element and canonical formatting.
// Mis-nested or multi-rooted input is reported as a parse error.
func Normalize(markup string) (string, error) {
	doc, err := ParseString(markup)
	if err != nil {
		return "", err
	}

	elements := 0
	for child := doc.root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			elements++
		}
	}
	if elements != 1 {
		return "", &errors.ParseError{
			Format:  "XML",
			Message: "document must have exactly one root element",
		}
	}

	return doc.Serialize(), nil
}

// Validate checks data for XML well-formedness.
//
// Security: entity expansion is disabled (CWE-611); Go's xml.Decoder does
// not fetch external entities by default, and internal entities are
// rejected here as well.
func Validate(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Entity = map[string]string{}

	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &errors.ParseError{Format: "XML", Message: err.Error(), Err: err}
		}
	}
}

// FormatOptions controls XML pretty-printing behavior.
type FormatOptions struct {
	Indent string // Indentation string (e.g., "  " or "\t")
}

// Format pretty-prints XML data.
func Format(data []byte, opts FormatOptions) ([]byte, error) {
	if opts.Indent == "" {
		opts.Indent = "  "
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	formatNode(&buf, doc.root, 0, opts.Indent)
	return buf.Bytes(), nil
}

func formatNode(w *bytes.Buffer, n *xmlquery.Node, depth int, indent string) {
	switch n.Type {
	case xmlquery.DocumentNode:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			formatNode(w, child, depth, indent)
		}

	case xmlquery.DeclarationNode:
		w.WriteString("<?xml")
		for _, attr := range n.Attr {
			w.WriteString(" ")
			w.WriteString(attr.Name.Local)
			w.WriteString("=\"")
			w.WriteString(encoding.EscapeXMLAttr(attr.Value))
			w.WriteString("\"")
		}
		w.WriteString("?>\n")

	case xmlquery.ElementNode:
		writeIndent(w, depth, indent)
		w.WriteString("<")
		w.WriteString(qualifiedName(n))
		for _, attr := range n.Attr {
			w.WriteString(" ")
			if attr.Name.Space != "" {
				w.WriteString(attr.Name.Space)
				w.WriteString(":")
			}
			w.WriteString(attr.Name.Local)
			w.WriteString("=\"")
			w.WriteString(encoding.EscapeXMLAttr(attr.Value))
			w.WriteString("\"")
		}

		if n.FirstChild == nil {
			w.WriteString("/>\n")
			return
		}

		// Elements with element children are broken across lines; pure
		// text content stays inline.
		hasElementChildren := false
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == xmlquery.ElementNode {
				hasElementChildren = true
				break
			}
		}

		w.WriteString(">")
		if hasElementChildren {
			w.WriteString("\n")
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			switch child.Type {
			case xmlquery.ElementNode:
				formatNode(w, child, depth+1, indent)
			case xmlquery.TextNode:
				text := child.Data
				if hasElementChildren {
					text = strings.TrimSpace(text)
					if text == "" {
						continue
					}
					writeIndent(w, depth+1, indent)
				}
				w.WriteString(encoding.EscapeXMLText(text))
				if hasElementChildren {
					w.WriteString("\n")
				}
			case xmlquery.CharDataNode:
				w.WriteString("<![CDATA[")
				w.WriteString(child.Data)
				w.WriteString("]]>")
			}
		}

		if hasElementChildren {
			writeIndent(w, depth, indent)
		}
		w.WriteString("</")
		w.WriteString(qualifiedName(n))
		w.WriteString(">\n")

	case xmlquery.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			w.WriteString(encoding.EscapeXMLText(text))
		}

	case xmlquery.CommentNode:
		writeIndent(w, depth, indent)
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->\n")
	}
}

func qualifiedName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}

func writeIndent(w *bytes.Buffer, depth int, indent string) {
	for i := 0; i < depth; i++ {
		w.WriteString(indent)
	}
}
