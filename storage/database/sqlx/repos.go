// Package sqlxrepos implements the core repositories on PostgreSQL via sqlx.
//
// Every method takes an optional DBExecutor so services can pass down a
// transaction started with core.RunInTx; sqlx-aware transactions come from
// database.DB.BeginTx.
package sqlxrepos

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lingora/backend/core"
)

func ext(db *sqlx.DB, exec []core.DBExecutor) sqlx.ExtContext {
	if len(exec) > 0 {
		if e, ok := exec[0].(sqlx.ExtContext); ok {
			return e
		}
	}
	return db
}

func newPK() string { return uuid.New().String() }
