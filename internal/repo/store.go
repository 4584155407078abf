package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ShivpalBellway/DevBhakti/internal/db"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so every repository can run either
// against the pool or inside a transaction.
type Querier interface {
	sqlx.ExtContext
}

// Repos groups the repositories bound to one Querier.
type Repos struct {
	Accounts AccountRepo
	Temples  TempleRepo
	Poojas   PoojaRepo
	Events   EventRepo
}

// NewRepos binds every repository to q.
func NewRepos(q Querier) Repos {
	return Repos{
		Accounts: NewAccountRepo(q),
		Temples:  NewTempleRepo(q),
		Poojas:   NewPoojaRepo(q),
		Events:   NewEventRepo(q),
	}
}

// Store owns the database handle and hands out pool-bound or transaction-bound repositories.
type Store struct {
	Repos
	db *sqlx.DB
}

// NewStore creates a Store over db.
func NewStore(database *sqlx.DB) *Store {
	return &Store{Repos: NewRepos(database), db: database}
}

// InTx runs fn with repositories bound to a single transaction. Any error returned by fn
// rolls the whole unit back.
func (s *Store) InTx(ctx context.Context, fn func(tx Repos) error) error {
	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(NewRepos(tx))
	})
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
