package errors

import "testing"

func TestNotFoundError(t *testing.T) {
	err := NewNotFound("document", "abc-123")
	want := "document not found: abc-123"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, ErrNotFound) {
		t.Error("NotFoundError should unwrap to ErrNotFound")
	}

	noID := NewNotFound("annotation", "")
	if noID.Error() != "annotation not found" {
		t.Errorf("Error() = %q", noID.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidation("begin", "must not be negative")
	want := "validation failed for begin: must not be negative"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, ErrInvalidInput) {
		t.Error("ValidationError should unwrap to ErrInvalidInput")
	}

	noField := &ValidationError{Message: "bad input"}
	if noField.Error() != "validation failed: bad input" {
		t.Errorf("Error() = %q", noField.Error())
	}
}

func TestParseError(t *testing.T) {
	err := NewParse("XML", "doc.xml", "unexpected EOF")
	want := "failed to parse XML at doc.xml: unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, ErrInvalidInput) {
		t.Error("ParseError should unwrap to ErrInvalidInput")
	}

	noPath := NewParse("JSON", "", "trailing comma")
	if noPath.Error() != "failed to parse JSON: trailing comma" {
		t.Errorf("Error() = %q", noPath.Error())
	}
}

func TestNamespaceError(t *testing.T) {
	err := NewNamespace("http://example.org/ns")
	want := `no prefix declared for namespace "http://example.org/ns"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, ErrNotFound) {
		t.Error("NamespaceError should unwrap to ErrNotFound")
	}

	var nsErr *NamespaceError
	if !As(err, &nsErr) {
		t.Fatal("As should match *NamespaceError")
	}
	if nsErr.URI != "http://example.org/ns" {
		t.Errorf("URI = %q", nsErr.URI)
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("input kind", "expected tree, text, or bytes")
	want := "unsupported input kind: expected tree, text, or bytes"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, ErrUnsupported) {
		t.Error("UnsupportedError should unwrap to ErrUnsupported")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	base := NewNotFound("document", "x")
	wrapped := Wrap(base, "loading")
	if wrapped.Error() != "loading: document not found: x" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("wrapped error should still match ErrNotFound")
	}

	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
	formatted := Wrapf(base, "attempt %d", 2)
	if formatted.Error() != "attempt 2: document not found: x" {
		t.Errorf("Error() = %q", formatted.Error())
	}
}
