package sqlxrepos

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/fee"
	"github.com/trezcool/academia/core/result"
)

func TestWhere(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())

	w.eq("session_id", "sess-1")
	w.eq("class_id", "")
	w.eq("status", "Draft")
	w.add("is_result_entry_open = ?", true)
	assert.Equal(t, " WHERE session_id = ? AND status = ? AND is_result_entry_open = ?", w.String())
	assert.Equal(t, []interface{}{"sess-1", "Draft", true}, w.args)

	q := sqlx.Rebind(sqlx.DOLLAR, "SELECT id FROM result"+w.String())
	assert.Equal(t, "SELECT id FROM result WHERE session_id = $1 AND status = $2 AND is_result_entry_open = $3", q)
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "", orderBy())
	assert.Equal(t,
		" ORDER BY final_average DESC, student_id ASC",
		orderBy(core.DBOrdering{Field: "final_average"}, core.DBOrdering{Field: "student_id", Ascending: true}),
	)
}

func TestDB_forUpdate(t *testing.T) {
	db := &DB{}
	q := "SELECT id FROM invoice WHERE id = ?"

	assert.Equal(t, q, db.forUpdate(context.Background(), q))
	ctx := context.WithValue(context.Background(), txKey{}, &sqlx.Tx{})
	assert.Equal(t, q+" FOR UPDATE", db.forUpdate(ctx, q))
}

func TestFeeItems(t *testing.T) {
	items := feeItems{
		{FeeType: "Tuition", Amount: decimal.NewFromInt(45000)},
		{FeeType: "Books", Amount: decimal.RequireFromString("1250.50")},
	}
	v, err := items.Value()
	require.NoError(t, err)

	var got feeItems
	require.NoError(t, got.Scan(v))
	require.Len(t, got, 2)
	assert.Equal(t, "Tuition", got[0].FeeType)
	assert.True(t, got[1].Amount.Equal(decimal.RequireFromString("1250.5")))
	assert.True(t, fee.SumFees(got).Equal(decimal.RequireFromString("46250.50")))

	var empty feeItems
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)
	require.NoError(t, got.Scan(nil))
	assert.Empty(t, got)
	assert.Error(t, got.Scan(42))
}

func TestErrorMapping(t *testing.T) {
	assert.True(t, isUniqueViolation(errors.Wrap(&pq.Error{Code: "23505"}, "insert")))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(nil))

	assert.Equal(t, result.ErrNotFound, notFound(sql.ErrNoRows, result.ErrNotFound))
	boom := errors.New("boom")
	assert.Equal(t, boom, notFound(boom, result.ErrNotFound))
}

func TestResultRow(t *testing.T) {
	pos, avg := 2, 71.5
	res := result.Result{
		ID:         "r1",
		StudentID:  "s1",
		Components: result.Components{FirstCA: 8, Exam: 60},
		Total:      68,
		Grade:      "B",
		Status:     result.Draft,
		Position:   &pos,
		Average:    &avg,
	}
	row := toResultRow(res)
	assert.True(t, row.Position.Valid)
	assert.False(t, row.ApprovedBy.Valid)
	assert.False(t, row.ApprovedAt.Valid)
	assert.Equal(t, res, row.toResult())

	res.ClearRanking()
	row = toResultRow(res)
	assert.False(t, row.Position.Valid)
	assert.Nil(t, row.toResult().Position)
}
