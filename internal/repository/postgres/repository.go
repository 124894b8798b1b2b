// backend-go/internal/repository/postgres/repository.go
package postgres

import (
	"context"

	"github.com/andresuchdata/freshstock/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

// Repository is the PostgreSQL storage for the inventory engine. Reads run on
// the pool; WithTx hands out a transaction whose locking reads use FOR UPDATE.
type Repository struct {
	queries
	db *DB
}

var _ repository.Repository = (*Repository)(nil)

func NewRepository(db *DB) *Repository {
	return &Repository{
		queries: queries{ext: db.DB},
		db:      db,
	}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(txQueries{queries{ext: tx}})
	})
	return translate(err)
}
