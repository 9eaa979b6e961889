package xml

import (
	"strings"
	"testing"

	"github.com/FocuswithJustin/standoff/core/errors"
)

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(`<root><child>text</child></root>`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	root := doc.Root()
	if root == nil {
		t.Fatal("Root returned nil")
	}
	if root.Data != "root" {
		t.Errorf("root element = %q, want %q", root.Data, "root")
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`<root><child></root>`))
	if err == nil {
		t.Fatal("expected error for mismatched tags")
	}
	var parseErr *errors.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("expected *errors.ParseError, got %T", err)
	}
}

func TestNormalize(t *testing.T) {
	out, err := Normalize(`<a><b>x</b>y</a>`)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !strings.Contains(out, "<b>x</b>") {
		t.Errorf("normalized output missing content: %q", out)
	}

	// Normalization is idempotent.
	again, err := Normalize(out)
	if err != nil {
		t.Fatalf("second Normalize failed: %v", err)
	}
	if again != out {
		t.Errorf("Normalize not stable: %q vs %q", again, out)
	}
}

func TestNormalizeOmitsDeclaration(t *testing.T) {
	// The parser always synthesizes a declaration node; serialization must
	// not emit it, whether or not the input carried one.
	for _, input := range []string{
		`<a><b/></a>`,
		`<?xml version="1.0"?><a><b/></a>`,
		`<?xml version="1.0" encoding="UTF-8"?><a><b/></a>`,
	} {
		out, err := Normalize(input)
		if err != nil {
			t.Fatalf("Normalize(%q) failed: %v", input, err)
		}
		if out != `<a><b/></a>` {
			t.Errorf("Normalize(%q) = %q, want %q", input, out, `<a><b/></a>`)
		}
		if strings.Contains(out, "<?xml") {
			t.Errorf("Normalize(%q) kept the XML declaration: %q", input, out)
		}
	}
}

func TestNormalizeRejectsMultipleRoots(t *testing.T) {
	_, err := Normalize(`<a/><b/>`)
	if err == nil {
		t.Fatal("expected error for multiple root elements")
	}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	if _, err := Normalize(""); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate([]byte(`<a><b>x</b></a>`)); err != nil {
		t.Errorf("well-formed document rejected: %v", err)
	}
	if err := Validate([]byte(`<a><b>x</a></b>`)); err == nil {
		t.Error("mis-nested document accepted")
	}
}

func TestQuery(t *testing.T) {
	doc, err := ParseString(`<lib><book id="1"/><book id="2"/></lib>`)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}

	nodes, err := doc.Query("//book")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("Query returned %d nodes, want 2", len(nodes))
	}

	node, err := doc.QueryOne(`//book[@id="2"]`)
	if err != nil {
		t.Fatalf("QueryOne failed: %v", err)
	}
	if node == nil {
		t.Fatal("QueryOne returned nil for existing node")
	}
	if node.SelectAttr("id") != "2" {
		t.Errorf("wrong node selected: id=%q", node.SelectAttr("id"))
	}

	missing, err := doc.QueryOne(`//magazine`)
	if err != nil {
		t.Fatalf("QueryOne failed: %v", err)
	}
	if missing != nil {
		t.Error("QueryOne should return nil for no match")
	}

	if _, err := doc.Query(`//book[`); err == nil {
		t.Error("invalid xpath accepted")
	}
}

func TestFormat(t *testing.T) {
	out, err := Format([]byte(`<a><b>x</b><c/></a>`), FormatOptions{Indent: "  "})
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "  <b>x</b>\n") {
		t.Errorf("expected indented child, got:\n%s", s)
	}
	if !strings.Contains(s, "  <c/>\n") {
		t.Errorf("expected self-closing child, got:\n%s", s)
	}
}
