package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/fee"
)

type txKey struct{}

// DB runs repositories against postgres. Repositories called with a ctx returned by InTx
// share its transaction.
type DB struct {
	*sqlx.DB
}

var _ core.Transactor = (*DB)(nil)

func NewDB(db *sqlx.DB) *DB {
	return &DB{DB: db}
}

func (db *DB) tx(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// InTx runs fn in a transaction, committed when fn succeeds. Nested calls join the running one.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if db.tx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = errors.Wrap(tx.Commit(), "committing transaction")
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

func (db *DB) ext(ctx context.Context) sqlx.ExtContext {
	if tx := db.tx(ctx); tx != nil {
		return tx
	}
	return db.DB
}

// forUpdate suffixes a single-row select with a row lock when ctx carries a transaction.
func (db *DB) forUpdate(ctx context.Context, query string) string {
	if db.tx(ctx) != nil {
		return query + " FOR UPDATE"
	}
	return query
}

func (db *DB) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, db.ext(ctx), dest, db.Rebind(query), args...)
}

func (db *DB) sel(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, db.ext(ctx), dest, db.Rebind(query), args...)
}

// namedExec runs a query with :name parameters bound from arg's db tags.
func (db *DB) namedExec(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return nil, err
	}
	return db.ext(ctx).ExecContext(ctx, db.Rebind(q), args...)
}

// where accumulates "col = ?" conditions for the non-empty values.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) eq(col string, val string) {
	if val != "" {
		w.conds = append(w.conds, col+" = ?")
		w.args = append(w.args, val)
	}
}

func (w *where) add(cond string, arg interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, arg)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func orderBy(ords ...core.DBOrdering) string {
	if len(ords) == 0 {
		return ""
	}
	clauses := make([]string, 0, len(ords))
	for _, ord := range ords {
		clauses = append(clauses, ord.String())
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// notFound maps sql.ErrNoRows to the domain's not-found error.
func notFound(err error, domainErr error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domainErr
	}
	return err
}

func checkAffected(res sql.Result, domainErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainErr
	}
	return nil
}

// feeItems stores fee lines as JSONB.
type feeItems []fee.FeeItem

func (fi feeItems) Value() (driver.Value, error) {
	if fi == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]fee.FeeItem(fi))
}

func (fi *feeItems) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*fi = feeItems{}
		return nil
	default:
		return errors.Errorf("feeItems: cannot scan %T", src)
	}
	return json.Unmarshal(data, (*[]fee.FeeItem)(fi))
}
