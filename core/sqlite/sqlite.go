// Package sqlite selects the SQLite driver for the document store. The
// default build registers the pure Go modernc.org/sqlite driver; building
// with -tags cgo_sqlite swaps in mattn/go-sqlite3 instead. The two drivers
// register under different names, so callers go through Open rather than
// sql.Open.
package sqlite

import "database/sql"

// Open opens a SQLite database through the driver compiled into this
// build, creating the file if it does not exist.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens an existing SQLite database file in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	return Open(path + "?mode=ro")
}

// Info describes the driver the binary was built with.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo reports the active driver configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      driverType == "cgo",
		Package:    driverPackage,
	}
}
