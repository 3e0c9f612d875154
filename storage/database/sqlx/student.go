package sqlxrepos

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/fee"
)

type studentRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	BranchID     string `db:"branch_id"`
	ClassLevelID string `db:"class_level_id"`
}

type studentDirectory struct {
	db *DB
}

var _ fee.StudentDirectory = (*studentDirectory)(nil)

func NewStudentDirectory(db *DB) fee.StudentDirectory {
	return &studentDirectory{db: db}
}

func (dir *studentDirectory) StudentsOfClassLevel(ctx context.Context, branchID, classLevelID string) ([]fee.Student, error) {
	var rows []studentRow
	q := `SELECT id, name, email, branch_id, class_level_id FROM student WHERE branch_id = ? AND class_level_id = ?` +
		orderBy(core.DBOrdering{Field: "id", Ascending: true})
	if err := dir.db.sel(ctx, &rows, q, branchID, classLevelID); err != nil {
		return nil, err
	}

	students := make([]fee.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, fee.Student(row))
	}
	return students, nil
}
