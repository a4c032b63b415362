package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/carvault/internal/dbx"
	"github.com/dmitrijs2005/carvault/internal/server/repositories/assets"
	"github.com/dmitrijs2005/carvault/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Assets(db dbx.DBTX) assets.Repository
}
