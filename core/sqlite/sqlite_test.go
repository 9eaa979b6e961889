package sqlite

import (
	"path/filepath"
	"testing"
)

func TestDriverInfo(t *testing.T) {
	info := GetInfo()

	switch info.DriverType {
	case "purego":
		if info.IsCGO {
			t.Error("IsCGO should be false for the purego driver")
		}
		if info.DriverName != "sqlite" {
			t.Errorf("purego driver name = %q, want %q", info.DriverName, "sqlite")
		}
	case "cgo":
		if !info.IsCGO {
			t.Error("IsCGO should be true for the cgo driver")
		}
		if info.DriverName != "sqlite3" {
			t.Errorf("cgo driver name = %q, want %q", info.DriverName, "sqlite3")
		}
	default:
		t.Errorf("unknown driver type: %s", info.DriverType)
	}
	if info.Package == "" {
		t.Error("Package should not be empty")
	}
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE docs (id INTEGER PRIMARY KEY, body TEXT)`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	_, err = db.Exec(`INSERT INTO docs (body) VALUES (?)`, "hello")
	if err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	var body string
	err = db.QueryRow(`SELECT body FROM docs WHERE id = 1`).Scan(&body)
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if body != "hello" {
		t.Errorf("expected 'hello', got '%s'", body)
	}
}

func TestOpenReadOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE docs (id INTEGER PRIMARY KEY, body TEXT)`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	_, err = db.Exec(`INSERT INTO docs (body) VALUES (?)`, "readonly")
	if err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	db.Close()

	rodb, err := OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("failed to open read-only: %v", err)
	}
	defer rodb.Close()

	var body string
	err = rodb.QueryRow(`SELECT body FROM docs WHERE id = 1`).Scan(&body)
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if body != "readonly" {
		t.Errorf("expected 'readonly', got '%s'", body)
	}
}
