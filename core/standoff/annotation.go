package standoff

import (
	"fmt"

	"github.com/FocuswithJustin/standoff/core/errors"
)

// Attr is a single attribute name/value pair. Namespaced names use
// {uri}local form and are resolved to prefixed form when markup is
// rendered.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attrs holds an annotation's attributes in declaration order. Order is
// preserved for stable output but carries no meaning: equality is
// order-independent.
type Attrs []Attr

// Get returns the value for name.
func (a Attrs) Get(name string) (string, bool) {
	for _, at := range a {
		if at.Name == name {
			return at.Value, true
		}
	}
	return "", false
}

// Set replaces the value for name, appending the pair if absent.
func (a *Attrs) Set(name, value string) {
	for i, at := range *a {
		if at.Name == name {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attr{Name: name, Value: value})
}

// Equal reports whether a and b contain exactly the same pairs,
// regardless of order.
func (a Attrs) Equal(b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for _, at := range a {
		v, ok := b.Get(at.Name)
		if !ok || v != at.Value {
			return false
		}
	}
	return true
}

// Clone returns a copy of the attribute list.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	copy(out, a)
	return out
}

// Annotation records the span one element occupied in the flat text
// buffer. Begin and End are byte offsets; Begin == End marks a zero-width
// element. Depth is the element's nesting level below the document root
// (root = 0) and decides nesting order among annotations sharing a
// boundary.
//
// BeginSeq and EndSeq are tie-break ordinals assigned during
// decomposition: the number of annotations recorded earlier whose begin
// (resp. end) offset matches this one's. They recover original sibling
// order at shared boundaries. Annotations added programmatically carry
// nil ordinals and sort after decomposed annotations at the same
// boundary.
type Annotation struct {
	Begin    int    `json:"begin"`
	End      int    `json:"end"`
	Tag      string `json:"tag"`
	Attrs    Attrs  `json:"attrs,omitempty"`
	Depth    int    `json:"depth"`
	BeginSeq *int   `json:"begin_seq,omitempty"`
	EndSeq   *int   `json:"end_seq,omitempty"`
}

// AddAnnotation appends a new annotation over [begin, end). With unique
// set, an annotation matching on span, tag, and attribute content is not
// added again. The annotation list is append-only; validation happens
// before any mutation.
func (d *Document) AddAnnotation(begin, end int, tag string, depth int, attrs Attrs, unique bool) error {
	if begin < 0 {
		return errors.NewValidation("begin", "must not be negative")
	}
	if end < begin {
		return errors.NewValidation("end", fmt.Sprintf("must not precede begin (%d < %d)", end, begin))
	}
	if end > len(d.text) {
		return errors.NewValidation("end", fmt.Sprintf("beyond text length (%d > %d)", end, len(d.text)))
	}
	if tag == "" {
		return errors.NewValidation("tag", "must not be empty")
	}
	if depth < 0 {
		return errors.NewValidation("depth", "must not be negative")
	}

	if unique && d.IsDuplicateAnnotation(begin, end, tag, attrs) {
		return nil
	}

	d.annotations = append(d.annotations, &Annotation{
		Begin: begin,
		End:   end,
		Tag:   tag,
		Attrs: attrs.Clone(),
		Depth: depth,
	})
	return nil
}

// IsDuplicateAnnotation reports whether an annotation with the same span,
// tag, and attribute content already exists. Attribute comparison is
// order-independent and exact: same pair count, same values.
func (d *Document) IsDuplicateAnnotation(begin, end int, tag string, attrs Attrs) bool {
	for _, a := range d.annotations {
		if a.Begin == begin && a.End == end && a.Tag == tag && a.Attrs.Equal(attrs) {
			return true
		}
	}
	return false
}
