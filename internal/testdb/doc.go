//go:build integration

// Package testdb provides database helpers for integration tests.
//
// Tests run inside a transaction that is rolled back when the test finishes,
// so they may run in parallel against one database without cleanup:
//
//	func TestHistory(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t) // skips when no database is configured
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        store := postgres.NewTaskHistoryStore(tx, logger)
//	        // ...
//	    })
//	}
//
// The database URL is read from FOCUS_TEST_DATABASE_URL, falling back to
// DATABASE_URL. The embedded migrations are applied once per process.
package testdb
