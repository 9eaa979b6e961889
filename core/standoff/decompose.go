package standoff

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/standoff/core/encoding"
)

// decomposer walks an element tree depth-first, appending escaped
// character data to the flat buffer and recording one annotation per
// element. Annotations are appended post-order: a parent follows all of
// its descendants.
//
// beginSeen and endSeen count, per offset, how many annotations have been
// recorded with that begin (resp. end) offset. Reading the counter at the
// right moment yields the tie-break ordinals: BeginSeq when the element
// is first visited, EndSeq when its span closes.
type decomposer struct {
	buf         strings.Builder
	annotations []*Annotation
	beginSeen   map[int]int
	endSeen     map[int]int
	resolver    *Resolver
}

func newDecomposer(r *Resolver) *decomposer {
	return &decomposer{
		beginSeen: make(map[int]int),
		endSeen:   make(map[int]int),
		resolver:  r,
	}
}

func (dc *decomposer) walk(el *xmlquery.Node, depth int) error {
	begin := dc.buf.Len()
	beginSeq := dc.beginSeen[begin]

	tag, err := dc.resolver.ResolveName(clarkName(el.NamespaceURI, el.Data))
	if err != nil {
		return err
	}
	attrs := elementAttrs(el)

	for child := el.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			dc.buf.WriteString(encoding.EscapeXML(child.Data))
		case xmlquery.ElementNode:
			if err := dc.walk(child, depth+1); err != nil {
				return err
			}
		}
	}

	end := dc.buf.Len()
	endSeq := dc.endSeen[end]

	dc.annotations = append(dc.annotations, &Annotation{
		Begin:    begin,
		End:      end,
		Tag:      tag,
		Attrs:    attrs,
		Depth:    depth,
		BeginSeq: &beginSeq,
		EndSeq:   &endSeq,
	})
	dc.beginSeen[begin]++
	dc.endSeen[end]++
	return nil
}

// elementAttrs captures an element's attributes in document order,
// skipping xmlns declarations (those live in the namespace table).
// Namespaced attribute names are stored in {uri}local form and resolved
// to prefixed form at render time.
func elementAttrs(el *xmlquery.Node) Attrs {
	var attrs Attrs
	for _, attr := range el.Attr {
		if attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns") {
			continue
		}
		name := attr.Name.Local
		switch {
		case attr.NamespaceURI != "":
			name = clarkName(attr.NamespaceURI, attr.Name.Local)
		case attr.Name.Space == "xml":
			name = clarkName(XMLNamespaceURI, attr.Name.Local)
		}
		attrs = append(attrs, Attr{Name: name, Value: attr.Value})
	}
	return attrs
}
