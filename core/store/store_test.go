package store

import (
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/standoff/core/errors"
	"github.com/FocuswithJustin/standoff/core/standoff"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "docs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	input := `<r xmlns:p="urn:p"><p:c k="v">x</p:c>y</r>`
	doc, err := standoff.FromString(input)
	if err != nil {
		t.Fatalf("FromString failed: %v", err)
	}

	id, err := s.Save(doc, "sample")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Fatal("Save returned empty id")
	}

	loaded, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Text() != doc.Text() {
		t.Errorf("loaded text = %q, want %q", loaded.Text(), doc.Text())
	}

	wantXML, err := doc.ToXML()
	if err != nil {
		t.Fatalf("ToXML on original failed: %v", err)
	}
	gotXML, err := loaded.ToXML()
	if err != nil {
		t.Fatalf("ToXML on loaded failed: %v", err)
	}
	if gotXML != wantXML {
		t.Errorf("loaded document reconstructs differently:\n got %q\nwant %q", gotXML, wantXML)
	}
}

func TestSavePreservesOrdinals(t *testing.T) {
	s := openTestStore(t)

	doc, err := standoff.FromString(`<a>hello</a>`)
	if err != nil {
		t.Fatalf("FromString failed: %v", err)
	}
	// Programmatic annotations have no ordinals; they must stay nil
	// through a save/load cycle.
	if err := doc.AddAnnotation(0, 5, "b", 1, nil, true); err != nil {
		t.Fatalf("AddAnnotation failed: %v", err)
	}

	id, err := s.Save(doc, "ordinals")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := s.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	anns := loaded.Annotations()
	if len(anns) != 2 {
		t.Fatalf("got %d annotations, want 2", len(anns))
	}
	if anns[0].BeginSeq == nil || anns[0].EndSeq == nil {
		t.Error("decomposed annotation lost its ordinals")
	}
	if anns[1].BeginSeq != nil || anns[1].EndSeq != nil {
		t.Error("programmatic annotation gained ordinals")
	}

	out, err := loaded.ToXML()
	if err != nil {
		t.Fatalf("ToXML failed: %v", err)
	}
	if out != `<a><b>hello</b></a>` {
		t.Errorf("ToXML = %q, want <a><b>hello</b></a>", out)
	}
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	doc, err := standoff.FromString(`<a>x</a>`)
	if err != nil {
		t.Fatalf("FromString failed: %v", err)
	}
	id, err := s.Save(doc, "readonly")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.Close()

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	defer ro.Close()

	loaded, err := ro.Load(id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Text() != "x" {
		t.Errorf("loaded text = %q, want %q", loaded.Text(), "x")
	}
	records, err := ro.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 || records[0].Name != "readonly" {
		t.Errorf("List = %+v, want one record named %q", records, "readonly")
	}
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Load("no-such-id")
	if err == nil {
		t.Fatal("expected error for missing document")
	}
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	s := openTestStore(t)

	doc, err := standoff.FromString(`<a>x</a>`)
	if err != nil {
		t.Fatalf("FromString failed: %v", err)
	}
	id1, err := s.Save(doc, "first")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	id2, err := s.Save(doc, "second")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	records, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.Annotations != 1 {
			t.Errorf("record %s has %d annotations, want 1", r.ID, r.Annotations)
		}
		if r.Checksum != Checksum("x") {
			t.Errorf("record %s checksum = %q, want %q", r.ID, r.Checksum, Checksum("x"))
		}
		if r.CreatedAt.IsZero() {
			t.Errorf("record %s has zero creation time", r.ID)
		}
	}

	if err := s.Delete(id1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	records, err = s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != id2 {
		t.Errorf("after delete, records = %+v, want only %s", records, id2)
	}

	if err := s.Delete(id1); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestChecksumStable(t *testing.T) {
	if Checksum("abc") != Checksum("abc") {
		t.Error("Checksum not deterministic")
	}
	if Checksum("abc") == Checksum("abd") {
		t.Error("Checksum collision on different input")
	}
	if len(Checksum("")) != 64 {
		t.Errorf("Checksum length = %d, want 64 hex chars", len(Checksum("")))
	}
}
