// Package mock contains utilities for tests.
package mock

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// Connection is the mock version for database.Connection.
type Connection struct {
	db      *sql.DB
	SQLMock sqlmock.Sqlmock
}

func (m Connection) CreateContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Second)
}

func (m Connection) DB() *sql.DB {
	return m.db
}

func (m Connection) Close() {
	_ = m.DB().Close()
}

// MustCreateConnectionMock creates a sqlmock backed connection. Queries are matched as regular expressions.
func MustCreateConnectionMock() Connection {
	db, mock, err := sqlmock.New()
	if err != nil {
		panic(err)
	}
	return Connection{
		db:      db,
		SQLMock: mock,
	}
}

// DBResultOption registers one expectation on the mocked connection.
type DBResultOption func(dbConn Connection)

// MockDBResults registers the given expectations in order.
func MockDBResults(dbConn Connection, opts ...DBResultOption) {
	for _, opt := range opts {
		opt(dbConn)
	}
}

// AssertExpectations fails the test if any registered expectation was not consumed.
func AssertExpectations(t *testing.T, dbConn Connection) {
	t.Helper()
	if err := dbConn.SQLMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
