package store

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// A single connection keeps the in-memory database shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE test_table (id INTEGER PRIMARY KEY, value TEXT)`); err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM test_table").Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

func TestRunInTxCommits(t *testing.T) {
	db := setupTxDB(t)

	err := runInTx(context.Background(), db, func(ctx context.Context) error {
		if _, ok := txFrom(ctx); !ok {
			t.Error("Expected transaction in context")
		}
		_, err := executorFor(ctx, db).ExecContext(ctx, "INSERT INTO test_table (value) VALUES (?)", "test")
		return err
	})
	if err != nil {
		t.Fatalf("runInTx failed: %v", err)
	}
	if n := countRows(t, db); n != 1 {
		t.Errorf("Expected 1 row, got %d", n)
	}
}

func TestRunInTxRollsBack(t *testing.T) {
	db := setupTxDB(t)

	err := runInTx(context.Background(), db, func(ctx context.Context) error {
		if _, err := executorFor(ctx, db).ExecContext(ctx, "INSERT INTO test_table (value) VALUES (?)", "test"); err != nil {
			return err
		}
		return sql.ErrTxDone
	})
	if err == nil {
		t.Fatal("Expected error from runInTx")
	}
	if n := countRows(t, db); n != 0 {
		t.Errorf("Expected 0 rows (rollback), got %d", n)
	}
}

func TestRunInTxNestedReusesOuter(t *testing.T) {
	db := setupTxDB(t)

	err := runInTx(context.Background(), db, func(outer context.Context) error {
		if _, err := executorFor(outer, db).ExecContext(outer, "INSERT INTO test_table (value) VALUES (?)", "outer"); err != nil {
			return err
		}
		return runInTx(outer, db, func(inner context.Context) error {
			outerTx, _ := txFrom(outer)
			innerTx, _ := txFrom(inner)
			if outerTx != innerTx {
				t.Error("Expected nested call to reuse the outer transaction")
			}
			_, err := executorFor(inner, db).ExecContext(inner, "INSERT INTO test_table (value) VALUES (?)", "inner")
			return err
		})
	})
	if err != nil {
		t.Fatalf("runInTx failed: %v", err)
	}
	if n := countRows(t, db); n != 2 {
		t.Errorf("Expected 2 rows, got %d", n)
	}
}

func TestExecutorForWithoutTransaction(t *testing.T) {
	db := setupTxDB(t)
	if executorFor(context.Background(), db) != db {
		t.Error("Expected executor to be the database")
	}
}

func TestRunInTxRollsBackOnPanic(t *testing.T) {
	db := setupTxDB(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("Expected the panic to propagate")
			}
		}()
		_ = runInTx(context.Background(), db, func(ctx context.Context) error {
			if _, err := executorFor(ctx, db).ExecContext(ctx, "INSERT INTO test_table (value) VALUES (?)", "test"); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	if n := countRows(t, db); n != 0 {
		t.Errorf("Expected 0 rows (rollback), got %d", n)
	}
}
