package standoff

import (
	"sort"
	"strings"

	"github.com/FocuswithJustin/standoff/core/encoding"
)

// reconstructor re-emits markup from the flat text buffer and the
// annotation list. At every offset (plus a virtual offset one past the end
// of the text) it renders the tags that close, open, or both at that
// position, in an order that yields valid nesting.
//
// Each offset is rendered in two phases:
//
//   - the completion phase emits closing tags of spans that started
//     earlier, merged with zero-width annotations whose recorded
//     completion precedes one of those closes. EndSeq is the exact
//     completion sequence among annotations sharing an end offset, so
//     ordering by it restores document order; consecutive zero-width
//     completions are reassembled into nested runs from that post-order
//     sequence before being flushed ahead of the enclosing close.
//
//   - the opening phase emits opening tags and the remaining zero-width
//     annotations ordered by BeginSeq then depth, which is the original
//     pre-order. A zero-width annotation immediately followed by a deeper
//     entry wraps it as an open/close pair instead of self-closing; the
//     pair is closed before the first entry at its own depth or
//     shallower.
//
// Annotations added programmatically carry no ordinals. Spans sharing a
// boundary always nest, so such annotations are slotted into the ordered
// sequence by depth: an ordinal-less closer precedes the first close at
// its depth or shallower, an ordinal-less opener precedes the first entry
// deeper than itself.
type reconstructor struct {
	doc     *Document
	root    *Annotation
	openers map[int][]*Annotation
	closers map[int][]*Annotation
	empties map[int][]*Annotation
}

func newReconstructor(d *Document) *reconstructor {
	r := &reconstructor{
		doc:     d,
		openers: make(map[int][]*Annotation),
		closers: make(map[int][]*Annotation),
		empties: make(map[int][]*Annotation),
	}
	for _, a := range d.annotations {
		if a.Begin == a.End {
			r.empties[a.Begin] = append(r.empties[a.Begin], a)
		} else {
			r.openers[a.Begin] = append(r.openers[a.Begin], a)
			r.closers[a.End] = append(r.closers[a.End], a)
		}
		if r.root == nil || a.Depth < r.root.Depth {
			r.root = a
		}
	}
	return r
}

func (r *reconstructor) render() (string, error) {
	var sb strings.Builder
	text := r.doc.text
	for i := 0; i <= len(text); i++ {
		if err := r.renderAt(i, &sb); err != nil {
			return "", err
		}
		if i < len(text) {
			sb.WriteByte(text[i])
		}
	}
	return sb.String(), nil
}

func (r *reconstructor) renderAt(offset int, sb *strings.Builder) error {
	closers := r.closers[offset]
	openers := r.openers[offset]
	empties := r.empties[offset]
	if len(closers) == 0 && len(openers) == 0 && len(empties) == 0 {
		return nil
	}

	// A zero-width annotation belongs to the completion phase when its
	// recorded completion precedes that of some span closing here.
	lastClose := -1
	for _, c := range closers {
		if c.EndSeq != nil && *c.EndSeq > lastClose {
			lastClose = *c.EndSeq
		}
	}
	var completed, remaining []*Annotation
	for _, e := range empties {
		if e.EndSeq != nil && *e.EndSeq < lastClose {
			completed = append(completed, e)
		} else {
			remaining = append(remaining, e)
		}
	}

	if err := r.completionPhase(closers, completed, sb); err != nil {
		return err
	}
	return r.openingPhase(openers, remaining, sb)
}

// completionPhase interleaves closing tags with already-completed
// zero-width annotations in completion order. Zero-width entries are
// buffered as fragments; a fragment's children are the deeper fragments
// completed just before it. Pending fragments are flushed before each
// closing tag and at the end of the phase.
func (r *reconstructor) completionPhase(closers, completed []*Annotation, sb *strings.Builder) error {
	var ordered, unordered []*Annotation
	for _, c := range closers {
		if c.EndSeq == nil {
			unordered = append(unordered, c)
		} else {
			ordered = append(ordered, c)
		}
	}
	ordered = append(ordered, completed...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if *ordered[i].EndSeq != *ordered[j].EndSeq {
			return *ordered[i].EndSeq < *ordered[j].EndSeq
		}
		return ordered[i].Depth > ordered[j].Depth
	})
	sort.SliceStable(unordered, func(i, j int) bool {
		return unordered[i].Depth > unordered[j].Depth
	})

	// Closers sharing an end offset form a containment chain, so an
	// ordinal-less closer slots in right before its container's close.
	events := make([]*Annotation, 0, len(ordered)+len(unordered))
	for _, ev := range ordered {
		if ev.Begin < ev.End {
			for len(unordered) > 0 && ev.Depth <= unordered[0].Depth {
				events = append(events, unordered[0])
				unordered = unordered[1:]
			}
		}
		events = append(events, ev)
	}
	events = append(events, unordered...)

	type fragment struct {
		depth int
		text  string
	}
	var frags []fragment

	for _, ev := range events {
		if ev.Begin == ev.End {
			start := len(frags)
			for start > 0 && frags[start-1].depth > ev.Depth {
				start--
			}
			var rendered string
			if start == len(frags) {
				tag, err := r.startTag(ev, true)
				if err != nil {
					return err
				}
				rendered = tag
			} else {
				open, err := r.startTag(ev, false)
				if err != nil {
					return err
				}
				var inner strings.Builder
				inner.WriteString(open)
				for _, f := range frags[start:] {
					inner.WriteString(f.text)
				}
				inner.WriteString(r.endTag(ev))
				rendered = inner.String()
			}
			frags = append(frags[:start], fragment{depth: ev.Depth, text: rendered})
			continue
		}

		for _, f := range frags {
			sb.WriteString(f.text)
		}
		frags = frags[:0]
		sb.WriteString(r.endTag(ev))
	}

	for _, f := range frags {
		sb.WriteString(f.text)
	}
	return nil
}

// openingPhase emits opening tags and remaining zero-width annotations in
// pre-order. A zero-width annotation wraps the entries that follow it at
// greater depth; the wrap closes before the next entry at its depth or
// shallower, and any still-open wraps close at the end of the phase.
func (r *reconstructor) openingPhase(openers, remaining []*Annotation, sb *strings.Builder) error {
	var ordered, unordered []*Annotation
	for _, a := range openers {
		if a.BeginSeq == nil {
			unordered = append(unordered, a)
		} else {
			ordered = append(ordered, a)
		}
	}
	for _, a := range remaining {
		if a.BeginSeq == nil {
			unordered = append(unordered, a)
		} else {
			ordered = append(ordered, a)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if *ordered[i].BeginSeq != *ordered[j].BeginSeq {
			return *ordered[i].BeginSeq < *ordered[j].BeginSeq
		}
		return ordered[i].Depth < ordered[j].Depth
	})
	sort.SliceStable(unordered, func(i, j int) bool {
		return unordered[i].Depth < unordered[j].Depth
	})

	// An ordinal-less annotation opens after its container and before
	// anything deeper at the same offset.
	events := make([]*Annotation, 0, len(ordered)+len(unordered))
	for _, ev := range ordered {
		for len(unordered) > 0 && ev.Depth > unordered[0].Depth {
			events = append(events, unordered[0])
			unordered = unordered[1:]
		}
		events = append(events, ev)
	}
	events = append(events, unordered...)

	var pending []*Annotation
	for i, ev := range events {
		for len(pending) > 0 && pending[len(pending)-1].Depth >= ev.Depth {
			sb.WriteString(r.endTag(pending[len(pending)-1]))
			pending = pending[:len(pending)-1]
		}

		if ev.Begin == ev.End {
			wraps := i+1 < len(events) && events[i+1].Depth > ev.Depth
			tag, err := r.startTag(ev, !wraps)
			if err != nil {
				return err
			}
			sb.WriteString(tag)
			if wraps {
				pending = append(pending, ev)
			}
			continue
		}

		tag, err := r.startTag(ev, false)
		if err != nil {
			return err
		}
		sb.WriteString(tag)
	}

	for i := len(pending) - 1; i >= 0; i-- {
		sb.WriteString(r.endTag(pending[i]))
	}
	return nil
}

// startTag renders <tag attr="value"...> or <tag attr="value".../>. The
// root annotation's start tag additionally carries the xmlns declarations
// from the namespace table, re-attaching what decomposition stripped.
func (r *reconstructor) startTag(a *Annotation, selfClose bool) (string, error) {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(a.Tag)

	for _, attr := range a.Attrs {
		name, err := r.doc.resolver.ResolveName(attr.Name)
		if err != nil {
			return "", err
		}
		sb.WriteByte(' ')
		sb.WriteString(name)
		sb.WriteString(`="`)
		sb.WriteString(encoding.EscapeXML(attr.Value))
		sb.WriteByte('"')
	}

	if a == r.root {
		for _, ns := range r.doc.namespaces {
			sb.WriteByte(' ')
			if ns.Prefix == "" {
				sb.WriteString("xmlns")
			} else {
				sb.WriteString("xmlns:")
				sb.WriteString(ns.Prefix)
			}
			sb.WriteString(`="`)
			sb.WriteString(encoding.EscapeXML(ns.URI))
			sb.WriteByte('"')
		}
	}

	if selfClose {
		sb.WriteString("/>")
	} else {
		sb.WriteByte('>')
	}
	return sb.String(), nil
}

func (r *reconstructor) endTag(a *Annotation) string {
	return "</" + a.Tag + ">"
}
