// Package store is the client side of the remote CRUD backend.
package store

import (
	"context"
)

// Store is the remote CRUD contract. Every error it returns is a *fault.Fault.
type Store interface {
	List(ctx context.Context, table string, q Query) ([]Record, error)
	Get(ctx context.Context, table string, id int64) (Record, error)
	Create(ctx context.Context, table string, f Fields) (Record, error)
	Update(ctx context.Context, table string, id int64, f Fields) (Record, error)
	Delete(ctx context.Context, table string, id int64) error
}
