// Package store persists standoff documents in a SQLite database: one row
// per document holding the flat text and namespace table, plus one row per
// annotation. Document identity is a generated UUID; the flat text carries
// a BLAKE3 checksum that is verified on load.
package store

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/standoff/core/errors"
	"github.com/FocuswithJustin/standoff/core/sqlite"
	"github.com/FocuswithJustin/standoff/core/standoff"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	body       TEXT NOT NULL,
	namespaces TEXT NOT NULL,
	checksum   TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS annotations (
	document_id TEXT NOT NULL REFERENCES documents(id),
	ord         INTEGER NOT NULL,
	span_begin  INTEGER NOT NULL,
	span_end    INTEGER NOT NULL,
	tag         TEXT NOT NULL,
	attrs       TEXT NOT NULL,
	depth       INTEGER NOT NULL,
	begin_seq   INTEGER,
	end_seq     INTEGER,
	PRIMARY KEY (document_id, ord)
);
`

// Record describes one stored document.
type Record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Checksum    string    `json:"checksum"`
	CreatedAt   time.Time `json:"created_at"`
	Annotations int       `json:"annotations"`
}

// Store is a document database handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a document database at path.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing document database for reading only.
// The schema is not touched; a path without one fails on first query.
func OpenReadOnly(path string) (*Store, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Checksum returns the hex BLAKE3 digest of a document's flat text.
func Checksum(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Save stores a document under a new generated ID and returns it.
func (s *Store) Save(doc *standoff.Document, name string) (string, error) {
	id := uuid.NewString()

	nsJSON, err := json.Marshal(doc.Namespaces())
	if err != nil {
		return "", errors.Wrap(err, "failed to encode namespaces")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO documents (id, name, body, namespaces, checksum, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, doc.Text(), string(nsJSON), Checksum(doc.Text()),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to insert document")
	}

	for i, a := range doc.Annotations() {
		attrsJSON, err := json.Marshal(a.Attrs)
		if err != nil {
			return "", errors.Wrap(err, "failed to encode attrs")
		}
		_, err = tx.Exec(
			`INSERT INTO annotations (document_id, ord, span_begin, span_end, tag, attrs, depth, begin_seq, end_seq)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, a.Begin, a.End, a.Tag, string(attrsJSON), a.Depth,
			nullableInt(a.BeginSeq), nullableInt(a.EndSeq),
		)
		if err != nil {
			return "", errors.Wrap(err, "failed to insert annotation")
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "failed to commit")
	}
	return id, nil
}

// Load reads a document back by ID, verifying the stored checksum.
func (s *Store) Load(id string) (*standoff.Document, error) {
	var body, nsJSON, checksum string
	err := s.db.QueryRow(
		`SELECT body, namespaces, checksum FROM documents WHERE id = ?`, id,
	).Scan(&body, &nsJSON, &checksum)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("document", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read document")
	}

	if got := Checksum(body); got != checksum {
		return nil, errors.NewParse("document", id, "checksum mismatch: "+got)
	}

	var ns standoff.Namespaces
	if err := json.Unmarshal([]byte(nsJSON), &ns); err != nil {
		return nil, errors.NewParse("namespaces", id, err.Error())
	}

	rows, err := s.db.Query(
		`SELECT span_begin, span_end, tag, attrs, depth, begin_seq, end_seq
		 FROM annotations WHERE document_id = ? ORDER BY ord`, id,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read annotations")
	}
	defer rows.Close()

	var anns []standoff.Annotation
	for rows.Next() {
		var (
			a         standoff.Annotation
			attrsJSON string
			beginSeq  sql.NullInt64
			endSeq    sql.NullInt64
		)
		if err := rows.Scan(&a.Begin, &a.End, &a.Tag, &attrsJSON, &a.Depth, &beginSeq, &endSeq); err != nil {
			return nil, errors.Wrap(err, "failed to scan annotation")
		}
		if err := json.Unmarshal([]byte(attrsJSON), &a.Attrs); err != nil {
			return nil, errors.NewParse("attrs", id, err.Error())
		}
		a.BeginSeq = intPointer(beginSeq)
		a.EndSeq = intPointer(endSeq)
		anns = append(anns, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read annotations")
	}

	return standoff.FromParts(body, ns, anns), nil
}

// List returns records for all stored documents, newest first.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT d.id, d.name, d.checksum, d.created_at,
		        (SELECT COUNT(*) FROM annotations a WHERE a.document_id = d.id)
		 FROM documents d ORDER BY d.created_at DESC, d.id`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r       Record
			created string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Checksum, &created, &r.Annotations); err != nil {
			return nil, errors.Wrap(err, "failed to scan record")
		}
		r.CreatedAt, err = time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, errors.NewParse("created_at", r.ID, err.Error())
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Delete removes a document and its annotations.
func (s *Store) Delete(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM annotations WHERE document_id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to delete annotations")
	}
	res, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	if n == 0 {
		return errors.NewNotFound("document", id)
	}
	return tx.Commit()
}

func nullableInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPointer(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
