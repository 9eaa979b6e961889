package standoff

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/standoff/core/errors"
)

// XMLNamespaceURI is the namespace bound to the reserved "xml" prefix.
// Names in this namespace resolve to xml:local without consulting the
// document's namespace table.
const XMLNamespaceURI = "http://www.w3.org/XML/1998/namespace"

// Namespace binds a prefix to a namespace URI. An empty prefix is the
// default namespace; names in it render without a prefix.
type Namespace struct {
	Prefix string `json:"prefix"`
	URI    string `json:"uri"`
}

// Namespaces is the document's namespace table, in declaration order.
type Namespaces []Namespace

// PrefixOf returns the prefix bound to uri. When a URI is declared more
// than once the last declaration wins.
func (ns Namespaces) PrefixOf(uri string) (string, bool) {
	for i := len(ns) - 1; i >= 0; i-- {
		if ns[i].URI == uri {
			return ns[i].Prefix, true
		}
	}
	return "", false
}

// Clone returns a copy of the namespace table.
func (ns Namespaces) Clone() Namespaces {
	if ns == nil {
		return nil
	}
	out := make(Namespaces, len(ns))
	copy(out, ns)
	return out
}

// collectNamespaces gathers the xmlns declarations from an element, in
// attribute order.
func collectNamespaces(el *xmlquery.Node) Namespaces {
	var ns Namespaces
	for _, attr := range el.Attr {
		switch {
		case attr.Name.Space == "xmlns":
			ns = append(ns, Namespace{Prefix: attr.Name.Local, URI: attr.Value})
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			ns = append(ns, Namespace{Prefix: "", URI: attr.Value})
		}
	}
	return ns
}

// clarkName renders a namespaced name in {uri}local form; names without a
// namespace pass through unchanged.
func clarkName(uri, local string) string {
	if uri == "" {
		return local
	}
	return "{" + uri + "}" + local
}

// Resolver maps {uri}local names to prefix:local using a namespace table.
type Resolver struct {
	ns Namespaces
}

// NewResolver creates a Resolver over the given namespace table.
func NewResolver(ns Namespaces) *Resolver {
	return &Resolver{ns: ns}
}

// ResolveName converts a {uri}local name to its prefixed form. Names
// without a namespace pass through unchanged. The XML namespace always
// resolves to the xml prefix; a URI bound to the empty prefix renders the
// bare local name. A URI absent from the table is a NamespaceError.
func (r *Resolver) ResolveName(name string) (string, error) {
	if !strings.HasPrefix(name, "{") {
		return name, nil
	}
	end := strings.Index(name, "}")
	if end < 0 {
		return "", errors.NewValidation("name", "unterminated namespace in "+name)
	}
	uri, local := name[1:end], name[end+1:]

	if uri == XMLNamespaceURI {
		return "xml:" + local, nil
	}

	prefix, ok := r.ns.PrefixOf(uri)
	if !ok {
		return "", errors.NewNamespace(uri)
	}
	if prefix == "" {
		return local, nil
	}
	return prefix + ":" + local, nil
}
