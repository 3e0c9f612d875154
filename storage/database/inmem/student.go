package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/fee"
)

type studentDirectory struct {
	db *DB
}

var _ fee.StudentDirectory = (*studentDirectory)(nil)

func NewStudentDirectory(db *DB) *studentDirectory {
	return &studentDirectory{db: db}
}

// AddStudents seeds reference students.
func (dir *studentDirectory) AddStudents(ctx context.Context, students ...fee.Student) {
	defer dir.db.lock(ctx)()

	for _, std := range students {
		dir.db.t.students[std.ID] = std
	}
}

func (dir *studentDirectory) StudentsOfClassLevel(ctx context.Context, branchID, classLevelID string) ([]fee.Student, error) {
	defer dir.db.rlock(ctx)()

	students := make([]fee.Student, 0)
	for _, std := range dir.db.t.students {
		if std.BranchID == branchID && std.ClassLevelID == classLevelID {
			students = append(students, std)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}
