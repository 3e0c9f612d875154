package core

import (
	"context"
)

// Transactor runs fn inside a single write transaction. The transaction travels in the ctx
// passed to fn; repositories called with that ctx join it. fn's error rolls everything back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
