// Package bundle serializes standoff documents to a portable JSON
// envelope, optionally XZ-compressed. A bundle carries everything needed
// to rebuild a Document: the flat text, the namespace table, and the
// annotation list, plus a BLAKE3 checksum of the text.
package bundle

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/standoff/core/errors"
	"github.com/FocuswithJustin/standoff/core/standoff"
	"github.com/FocuswithJustin/standoff/core/store"
	"github.com/FocuswithJustin/standoff/internal/validation"
)

// Version is the bundle format version.
const Version = 1

// Envelope is the on-disk bundle structure.
type Envelope struct {
	Version     int                   `json:"version"`
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Checksum    string                `json:"checksum"`
	CreatedAt   time.Time             `json:"created_at"`
	Namespaces  standoff.Namespaces   `json:"namespaces,omitempty"`
	Text        string                `json:"text"`
	Annotations []standoff.Annotation `json:"annotations"`
}

// New builds an envelope from a document.
func New(doc *standoff.Document, name string) *Envelope {
	return &Envelope{
		Version:     Version,
		ID:          uuid.NewString(),
		Name:        name,
		Checksum:    store.Checksum(doc.Text()),
		CreatedAt:   time.Now().UTC(),
		Namespaces:  doc.Namespaces(),
		Text:        doc.Text(),
		Annotations: doc.Annotations(),
	}
}

// Document rebuilds the standoff document the envelope describes, after
// verifying the text checksum.
func (e *Envelope) Document() (*standoff.Document, error) {
	if e.Version != Version {
		return nil, errors.NewUnsupported("bundle version", "expected version 1")
	}
	if got := store.Checksum(e.Text); got != e.Checksum {
		return nil, errors.NewParse("bundle", e.ID, "checksum mismatch: "+got)
	}
	return standoff.FromParts(e.Text, e.Namespaces, e.Annotations), nil
}

// Write saves the envelope to path. A path ending in .xz is
// XZ-compressed; anything else is written as plain JSON.
func Write(e *Envelope, path string) error {
	if err := validation.ValidatePath(path); err != nil {
		return errors.NewValidation("path", err.Error())
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode bundle")
	}

	if strings.HasSuffix(path, ".xz") {
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return errors.Wrap(err, "failed to create xz writer")
		}
		if _, err := w.Write(data); err != nil {
			return errors.Wrap(err, "failed to compress bundle")
		}
		if err := w.Close(); err != nil {
			return errors.Wrap(err, "failed to finish compression")
		}
		data = buf.Bytes()
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewIO("write", path, err)
	}
	return nil
}

// Read loads an envelope from path. Compression is detected from the
// content, not the filename, so renamed bundles still load.
func Read(path string) (*Envelope, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewValidation("path", err.Error())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	if len(data) > validation.MaxFileSize {
		return nil, errors.NewValidation("path", "file exceeds size limit")
	}

	if validation.DetectFileType(data) == validation.FileTypeXZ {
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.NewParse("bundle", path, err.Error())
		}
		data, err = io.ReadAll(io.LimitReader(r, validation.MaxFileSize))
		if err != nil {
			return nil, errors.NewParse("bundle", path, err.Error())
		}
	}

	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.NewParse("bundle", path, err.Error())
	}
	return &e, nil
}
