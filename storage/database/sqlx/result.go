package sqlxrepos

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/result"
)

const resultColumns = `id, student_id, subject_id, class_id, branch_id, session_id,
	first_ca, second_ca, third_ca, exam, total, grade, status, position, average,
	remarks, teacher_comment, principal_comment, recorded_by, approved_by, approved_at,
	created_at, updated_at`

type resultRow struct {
	ID        string `db:"id"`
	StudentID string `db:"student_id"`
	SubjectID string `db:"subject_id"`
	ClassID   string `db:"class_id"`
	BranchID  string `db:"branch_id"`
	SessionID string `db:"session_id"`
	result.Components
	Total            float64      `db:"total"`
	Grade            string       `db:"grade"`
	Status           string       `db:"status"`
	Position         null.Int     `db:"position"`
	Average          null.Float64 `db:"average"`
	Remarks          string       `db:"remarks"`
	TeacherComment   string       `db:"teacher_comment"`
	PrincipalComment string       `db:"principal_comment"`
	RecordedBy       string       `db:"recorded_by"`
	ApprovedBy       null.String  `db:"approved_by"`
	ApprovedAt       null.Time    `db:"approved_at"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

func toResultRow(res result.Result) resultRow {
	row := resultRow{
		ID:               res.ID,
		StudentID:        res.StudentID,
		SubjectID:        res.SubjectID,
		ClassID:          res.ClassID,
		BranchID:         res.BranchID,
		SessionID:        res.SessionID,
		Components:       res.Components,
		Total:            res.Total,
		Grade:            res.Grade,
		Status:           string(res.Status),
		Position:         null.IntFromPtr(res.Position),
		Average:          null.Float64FromPtr(res.Average),
		Remarks:          res.Remarks,
		TeacherComment:   res.TeacherComment,
		PrincipalComment: res.PrincipalComment,
		RecordedBy:       res.RecordedBy,
		ApprovedAt:       null.TimeFromPtr(res.ApprovedAt),
		CreatedAt:        res.CreatedAt,
		UpdatedAt:        res.UpdatedAt,
	}
	if res.ApprovedBy != "" {
		row.ApprovedBy = null.StringFrom(res.ApprovedBy)
	}
	return row
}

func (row resultRow) toResult() result.Result {
	res := result.Result{
		ID:               row.ID,
		StudentID:        row.StudentID,
		SubjectID:        row.SubjectID,
		ClassID:          row.ClassID,
		BranchID:         row.BranchID,
		SessionID:        row.SessionID,
		Components:       row.Components,
		Total:            row.Total,
		Grade:            row.Grade,
		Status:           result.Status(row.Status),
		Position:         row.Position.Ptr(),
		Average:          row.Average.Ptr(),
		Remarks:          row.Remarks,
		TeacherComment:   row.TeacherComment,
		PrincipalComment: row.PrincipalComment,
		RecordedBy:       row.RecordedBy,
		ApprovedBy:       row.ApprovedBy.String,
		ApprovedAt:       row.ApprovedAt.Ptr(),
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
	if res.ApprovedAt != nil {
		at := res.ApprovedAt.UTC()
		res.ApprovedAt = &at
	}
	return res
}

type resultRepository struct {
	db *DB
}

var _ result.Repository = (*resultRepository)(nil)

func NewResultRepository(db *DB) result.Repository {
	return &resultRepository{db: db}
}

func (repo *resultRepository) GetResultByID(ctx context.Context, id string) (result.Result, error) {
	var row resultRow
	q := repo.db.forUpdate(ctx, `SELECT `+resultColumns+` FROM result WHERE id = ?`)
	if err := repo.db.get(ctx, &row, q, id); err != nil {
		return result.Result{}, notFound(err, result.ErrNotFound)
	}
	return row.toResult(), nil
}

func (repo *resultRepository) GetResultByKey(ctx context.Context, studentID, subjectID, sessionID string) (result.Result, error) {
	var row resultRow
	q := repo.db.forUpdate(ctx, `SELECT `+resultColumns+` FROM result
		WHERE student_id = ? AND subject_id = ? AND session_id = ?`)
	if err := repo.db.get(ctx, &row, q, studentID, subjectID, sessionID); err != nil {
		return result.Result{}, notFound(err, result.ErrNotFound)
	}
	return row.toResult(), nil
}

func (repo *resultRepository) CreateResult(ctx context.Context, res result.Result) (result.Result, error) {
	_, err := repo.db.namedExec(ctx, `INSERT INTO result (`+resultColumns+`) VALUES (
		:id, :student_id, :subject_id, :class_id, :branch_id, :session_id,
		:first_ca, :second_ca, :third_ca, :exam, :total, :grade, :status, :position, :average,
		:remarks, :teacher_comment, :principal_comment, :recorded_by, :approved_by, :approved_at,
		:created_at, :updated_at)`, toResultRow(res))
	if err != nil {
		return result.Result{}, err
	}
	return res, nil
}

func (repo *resultRepository) UpdateResult(ctx context.Context, res result.Result) (result.Result, error) {
	r, err := repo.db.namedExec(ctx, `UPDATE result SET
		class_id = :class_id,
		branch_id = :branch_id,
		first_ca = :first_ca,
		second_ca = :second_ca,
		third_ca = :third_ca,
		exam = :exam,
		total = :total,
		grade = :grade,
		status = :status,
		position = :position,
		average = :average,
		remarks = :remarks,
		teacher_comment = :teacher_comment,
		principal_comment = :principal_comment,
		recorded_by = :recorded_by,
		approved_by = :approved_by,
		approved_at = :approved_at,
		updated_at = :updated_at
		WHERE id = :id`, toResultRow(res))
	if err != nil {
		return result.Result{}, err
	}
	if err = checkAffected(r, result.ErrNotFound); err != nil {
		return result.Result{}, err
	}
	return res, nil
}

func (repo *resultRepository) DeleteResult(ctx context.Context, id string) error {
	r, err := repo.db.ext(ctx).ExecContext(ctx, repo.db.Rebind(`DELETE FROM result WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return checkAffected(r, result.ErrNotFound)
}

func (repo *resultRepository) FilterResults(ctx context.Context, filter result.QueryFilter) ([]result.Result, error) {
	var w where
	w.eq("session_id", filter.SessionID)
	w.eq("class_id", filter.ClassID)
	w.eq("subject_id", filter.SubjectID)
	w.eq("student_id", filter.StudentID)
	w.eq("branch_id", filter.BranchID)
	w.eq("status", string(filter.Status))

	var rows []resultRow
	q := `SELECT ` + resultColumns + ` FROM result` + w.String() +
		orderBy(core.DBOrdering{Field: "student_id", Ascending: true}, core.DBOrdering{Field: "subject_id", Ascending: true})
	if err := repo.db.sel(ctx, &rows, q, w.args...); err != nil {
		return nil, err
	}

	results := make([]result.Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toResult())
	}
	return results, nil
}
