// Package database opens and manages the daemon's SQLite store.
//
// The store holds the persisted USB event log and is opened with WAL
// journaling (configurable), foreign keys on, and a busy timeout so
// writers back off instead of failing immediately. The pool is capped
// at a single connection: SQLite serialises writers anyway, and one
// connection keeps transaction semantics simple.
//
// Schema changes ship as embedded SQL migrations (see the migrations
// package at the repository root). Each versioned pair of .up.sql and
// .down.sql files runs in its own transaction and is recorded in the
// schema_migrations table:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// The database file and its parent directory are created with 0600
// and 0750 permissions respectively. All queries in this repository
// use parameterised statements.
package database
