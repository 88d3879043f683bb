// Package database provides SQL connectivity for the automation hub's
// document store and audit log.
//
// SQLite (mattn/go-sqlite3) is the default for single-box installs; Postgres
// (lib/pq) is available for shared deployments. Queries are written once
// with ? placeholders and rebound per dialect.
//
// Usage:
//
//	db, err := database.Open(database.Config{Driver: "sqlite3", Path: "./data/automation.db", WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
