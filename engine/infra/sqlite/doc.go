// Package sqlite provides the modernc.org/sqlite backed destination driver.
//
// Each destination is one database file. The package mirrors the postgres
// driver layout while supplying SQLite specific connection management,
// migrations and provisioning.
package sqlite
