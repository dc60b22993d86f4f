// Package repomanager wires repository constructors to a storage backend
// and exposes the schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/indexdothtml/yt-backend/internal/dbx"
	"github.com/indexdothtml/yt-backend/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can
// hand repositories either a plain connection or a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
