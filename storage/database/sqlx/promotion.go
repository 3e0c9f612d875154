package sqlxrepos

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/ranking"
)

const promotionColumns = `id, student_id, session_id, from_class_id, final_average, threshold, status,
	overridden, override_comment, overridden_by, overridden_at, created_at, updated_at`

type promotionRow struct {
	ID              string      `db:"id"`
	StudentID       string      `db:"student_id"`
	SessionID       string      `db:"session_id"`
	FromClassID     string      `db:"from_class_id"`
	FinalAverage    float64     `db:"final_average"`
	Threshold       float64     `db:"threshold"`
	Status          string      `db:"status"`
	Overridden      bool        `db:"overridden"`
	OverrideComment null.String `db:"override_comment"`
	OverriddenBy    null.String `db:"overridden_by"`
	OverriddenAt    null.Time   `db:"overridden_at"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func toPromotionRow(rec ranking.PromotionRecord) promotionRow {
	row := promotionRow{
		ID:           rec.ID,
		StudentID:    rec.StudentID,
		SessionID:    rec.SessionID,
		FromClassID:  rec.FromClassID,
		FinalAverage: rec.FinalAverage,
		Threshold:    rec.Threshold,
		Status:       string(rec.Status),
		Overridden:   rec.Overridden,
		OverriddenAt: null.TimeFromPtr(rec.OverriddenAt),
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if rec.Overridden {
		row.OverrideComment = null.StringFrom(rec.OverrideComment)
		row.OverriddenBy = null.StringFrom(rec.OverriddenBy)
	}
	return row
}

func (row promotionRow) toRecord() ranking.PromotionRecord {
	rec := ranking.PromotionRecord{
		ID:              row.ID,
		StudentID:       row.StudentID,
		SessionID:       row.SessionID,
		FromClassID:     row.FromClassID,
		FinalAverage:    row.FinalAverage,
		Threshold:       row.Threshold,
		Status:          ranking.PromotionStatus(row.Status),
		Overridden:      row.Overridden,
		OverrideComment: row.OverrideComment.String,
		OverriddenBy:    row.OverriddenBy.String,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if row.OverriddenAt.Valid {
		at := row.OverriddenAt.Time.UTC()
		rec.OverriddenAt = &at
	}
	return rec
}

type promotionRepository struct {
	db *DB
}

var _ ranking.Repository = (*promotionRepository)(nil)

func NewPromotionRepository(db *DB) ranking.Repository {
	return &promotionRepository{db: db}
}

func (repo *promotionRepository) GetPromotionByID(ctx context.Context, id string) (ranking.PromotionRecord, error) {
	var row promotionRow
	q := repo.db.forUpdate(ctx, `SELECT `+promotionColumns+` FROM promotion_record WHERE id = ?`)
	if err := repo.db.get(ctx, &row, q, id); err != nil {
		return ranking.PromotionRecord{}, notFound(err, ranking.ErrNotFound)
	}
	return row.toRecord(), nil
}

func (repo *promotionRepository) FilterPromotions(ctx context.Context, classID, sessionID string) ([]ranking.PromotionRecord, error) {
	var w where
	w.eq("from_class_id", classID)
	w.eq("session_id", sessionID)

	var rows []promotionRow
	q := `SELECT ` + promotionColumns + ` FROM promotion_record` + w.String() +
		orderBy(core.DBOrdering{Field: "final_average"}, core.DBOrdering{Field: "student_id", Ascending: true})
	if err := repo.db.sel(ctx, &rows, q, w.args...); err != nil {
		return nil, err
	}

	records := make([]ranking.PromotionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

func (repo *promotionRepository) CreatePromotion(ctx context.Context, rec ranking.PromotionRecord) (ranking.PromotionRecord, error) {
	_, err := repo.db.namedExec(ctx, `INSERT INTO promotion_record (`+promotionColumns+`) VALUES (
		:id, :student_id, :session_id, :from_class_id, :final_average, :threshold, :status,
		:overridden, :override_comment, :overridden_by, :overridden_at, :created_at, :updated_at)`,
		toPromotionRow(rec))
	if err != nil {
		return ranking.PromotionRecord{}, err
	}
	return rec, nil
}

func (repo *promotionRepository) UpdatePromotion(ctx context.Context, rec ranking.PromotionRecord) (ranking.PromotionRecord, error) {
	r, err := repo.db.namedExec(ctx, `UPDATE promotion_record SET
		final_average = :final_average,
		threshold = :threshold,
		status = :status,
		overridden = :overridden,
		override_comment = :override_comment,
		overridden_by = :overridden_by,
		overridden_at = :overridden_at,
		updated_at = :updated_at
		WHERE id = :id`, toPromotionRow(rec))
	if err != nil {
		return ranking.PromotionRecord{}, err
	}
	if err = checkAffected(r, ranking.ErrNotFound); err != nil {
		return ranking.PromotionRecord{}, err
	}
	return rec, nil
}

func (repo *promotionRepository) DeletePromotion(ctx context.Context, id string) error {
	r, err := repo.db.ext(ctx).ExecContext(ctx, repo.db.Rebind(`DELETE FROM promotion_record WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return checkAffected(r, ranking.ErrNotFound)
}
