package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.  The returned pool is
// owned by the caller; it is constructed once at startup and passed into the
// repositories rather than held as package state.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// TxRunner executes a function inside a SERIALIZABLE transaction.  The
// booking engine depends on this so that the availability check and the
// subsequent writes either commit together or not at all.
type TxRunner struct {
	DB *sql.DB
}

// NewTxRunner wraps an open pool.
func NewTxRunner(db *sql.DB) *TxRunner { return &TxRunner{DB: db} }

// RunTx begins a serializable transaction, invokes fn with it, and commits
// when fn returns nil.  Any error from fn rolls the transaction back and is
// returned unchanged so callers can match sentinel errors.
func (t *TxRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
