// Package standoff converts between XML markup and a standoff
// representation: the document's character data flattened into a single
// escaped buffer, plus a list of span annotations recording where each
// element began and ended. The conversion round-trips: decomposing a
// document and reconstructing it yields the same tree, text, and
// attributes. Annotations can also be added programmatically before
// reconstruction to inject new markup into an existing document.
package standoff

import (
	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/standoff/core/errors"
	markup "github.com/FocuswithJustin/standoff/core/xml"
)

// Document owns the flat text buffer and the annotation list for one
// conversion session. The text buffer is immutable after decomposition;
// the annotation list is append-only. A Document is not safe for
// concurrent use.
type Document struct {
	text        string
	annotations []*Annotation
	namespaces  Namespaces
	resolver    *Resolver
}

// FromBytes parses raw markup (UTF-8) and decomposes it.
func FromBytes(data []byte) (*Document, error) {
	doc, err := markup.Parse(data)
	if err != nil {
		return nil, err
	}
	return FromTree(doc.Node())
}

// FromString parses markup text and decomposes it.
func FromString(s string) (*Document, error) {
	return FromBytes([]byte(s))
}

// FromTree decomposes an already-parsed tree. It accepts a document node
// or an element node; anything else is an unsupported input kind.
func FromTree(node *xmlquery.Node) (*Document, error) {
	if node == nil {
		return nil, errors.NewUnsupported("input kind", "nil node")
	}

	root := node
	if node.Type == xmlquery.DocumentNode {
		root = nil
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == xmlquery.ElementNode {
				root = child
				break
			}
		}
		if root == nil {
			return nil, errors.NewUnsupported("input kind", "document has no root element")
		}
	}
	if root.Type != xmlquery.ElementNode {
		return nil, errors.NewUnsupported("input kind", "expected a document or element node")
	}

	ns := collectNamespaces(root)
	dc := newDecomposer(NewResolver(ns))
	if err := dc.walk(root, 0); err != nil {
		return nil, err
	}

	return &Document{
		text:        dc.buf.String(),
		annotations: dc.annotations,
		namespaces:  ns,
		resolver:    NewResolver(ns),
	}, nil
}

// FromParts assembles a Document from previously externalized state: the
// flat text buffer, the namespace table, and the annotation list. Used by
// the store and bundle packages when loading saved documents.
func FromParts(text string, ns Namespaces, annotations []Annotation) *Document {
	anns := make([]*Annotation, len(annotations))
	for i := range annotations {
		a := annotations[i]
		a.Attrs = a.Attrs.Clone()
		anns[i] = &a
	}
	ns = ns.Clone()
	return &Document{
		text:        text,
		annotations: anns,
		namespaces:  ns,
		resolver:    NewResolver(ns),
	}
}

// Text returns the flat text buffer: every element's character data in
// document order, XML-escaped, with markup stripped.
func (d *Document) Text() string {
	return d.text
}

// Annotations returns a copy of the annotation list in recorded order.
func (d *Document) Annotations() []Annotation {
	out := make([]Annotation, len(d.annotations))
	for i, a := range d.annotations {
		out[i] = *a
		out[i].Attrs = a.Attrs.Clone()
	}
	return out
}

// Namespaces returns a copy of the document's namespace table.
func (d *Document) Namespaces() Namespaces {
	return d.namespaces.Clone()
}

// ToXML reconstructs markup from the flat text and current annotations
// and normalizes it through the markup library. If the annotations do not
// describe a valid nesting the normalization step reports a parse error;
// document state is left unchanged either way.
func (d *Document) ToXML() (string, error) {
	raw, err := newReconstructor(d).render()
	if err != nil {
		return "", err
	}
	return markup.Normalize(raw)
}

// ToPrettyXML reconstructs markup and pretty-prints it.
func (d *Document) ToPrettyXML() (string, error) {
	raw, err := newReconstructor(d).render()
	if err != nil {
		return "", err
	}
	out, err := markup.Format([]byte(raw), markup.FormatOptions{})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
