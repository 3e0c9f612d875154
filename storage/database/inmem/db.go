package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/fee"
	"github.com/trezcool/academia/core/ranking"
	"github.com/trezcool/academia/core/result"
	"github.com/trezcool/academia/core/session"
)

type txKey struct{}

type tables struct {
	sessions   map[string]session.Session
	results    map[string]result.Result
	promotions map[string]ranking.PromotionRecord
	structures map[string]fee.FeeStructure
	invoices   map[string]fee.Invoice
	payments   map[string]fee.Payment
	students   map[string]fee.Student
}

func newTables() tables {
	return tables{
		sessions:   make(map[string]session.Session),
		results:    make(map[string]result.Result),
		promotions: make(map[string]ranking.PromotionRecord),
		structures: make(map[string]fee.FeeStructure),
		invoices:   make(map[string]fee.Invoice),
		payments:   make(map[string]fee.Payment),
		students:   make(map[string]fee.Student),
	}
}

func (t tables) clone() tables {
	c := newTables()
	for k, v := range t.sessions {
		c.sessions[k] = v
	}
	for k, v := range t.results {
		c.results[k] = v
	}
	for k, v := range t.promotions {
		c.promotions[k] = v
	}
	for k, v := range t.structures {
		c.structures[k] = v
	}
	for k, v := range t.invoices {
		c.invoices[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	for k, v := range t.students {
		c.students[k] = v
	}
	return c
}

// DB is an in-memory store. Transactions hold the store-wide write lock and are rolled back
// by restoring a snapshot when they fail.
type DB struct {
	mu sync.RWMutex
	t  tables
}

var _ core.Transactor = (*DB)(nil)

func NewDB() *DB {
	return &DB{t: newTables()}
}

func (db *DB) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*DB)
	return owner == db
}

// InTx runs fn under the store-wide write lock. Nested calls join the running transaction.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.inTx(ctx) {
		return fn(ctx)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.t.clone()
	if err := fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		db.t = snapshot
		return err
	}
	return nil
}

// rlock read-locks the store unless ctx already holds it through a transaction.
func (db *DB) rlock(ctx context.Context) func() {
	if db.inTx(ctx) {
		return func() {}
	}
	db.mu.RLock()
	return db.mu.RUnlock
}

// lock write-locks the store unless ctx already holds it through a transaction.
func (db *DB) lock(ctx context.Context) func() {
	if db.inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}
