package services

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"
)

// The services only use *sql.DB for transaction demarcation; the stub
// repositories keep all state in memory and ignore the executor they are
// handed. A minimal driver whose connections hand out no-op transactions is
// enough to make Begin/Commit/Rollback work in tests.

type stubDriver struct{}

func (stubDriver) Open(name string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("stub driver does not execute queries")
}
func (stubConn) Close() error              { return nil }
func (stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

var registerStubDriver sync.Once

func newStubDB(t *testing.T) *sql.DB {
	t.Helper()
	registerStubDriver.Do(func() {
		sql.Register("servicestub", stubDriver{})
	})
	db, err := sql.Open("servicestub", "")
	if err != nil {
		t.Fatalf("failed to open stub database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func timeNowDate(t *testing.T) string {
	t.Helper()
	return time.Now().Format(DateLayout)
}
