package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/result"
)

type resultRepository struct {
	db *DB
}

var _ result.Repository = (*resultRepository)(nil)

func NewResultRepository(db *DB) result.Repository {
	return &resultRepository{db: db}
}

// clone detaches the ranking pointers from the stored row.
func clone(res result.Result) result.Result {
	if res.Position != nil {
		pos := *res.Position
		res.Position = &pos
	}
	if res.Average != nil {
		avg := *res.Average
		res.Average = &avg
	}
	if res.ApprovedAt != nil {
		at := *res.ApprovedAt
		res.ApprovedAt = &at
	}
	return res
}

func (repo *resultRepository) GetResultByID(ctx context.Context, id string) (result.Result, error) {
	defer repo.db.rlock(ctx)()

	if res, ok := repo.db.t.results[id]; ok {
		return clone(res), nil
	}
	return result.Result{}, result.ErrNotFound
}

func (repo *resultRepository) GetResultByKey(ctx context.Context, studentID, subjectID, sessionID string) (result.Result, error) {
	defer repo.db.rlock(ctx)()

	for _, res := range repo.db.t.results {
		if res.StudentID == studentID && res.SubjectID == subjectID && res.SessionID == sessionID {
			return clone(res), nil
		}
	}
	return result.Result{}, result.ErrNotFound
}

func (repo *resultRepository) CreateResult(ctx context.Context, res result.Result) (result.Result, error) {
	defer repo.db.lock(ctx)()

	repo.db.t.results[res.ID] = clone(res)
	return res, nil
}

func (repo *resultRepository) UpdateResult(ctx context.Context, res result.Result) (result.Result, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.results[res.ID]; !ok {
		return result.Result{}, result.ErrNotFound
	}
	repo.db.t.results[res.ID] = clone(res)
	return res, nil
}

func (repo *resultRepository) DeleteResult(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.results[id]; !ok {
		return result.ErrNotFound
	}
	delete(repo.db.t.results, id)
	return nil
}

func (repo *resultRepository) FilterResults(ctx context.Context, filter result.QueryFilter) ([]result.Result, error) {
	defer repo.db.rlock(ctx)()

	results := make([]result.Result, 0)
	for _, res := range repo.db.t.results {
		if filter.SessionID != "" && res.SessionID != filter.SessionID {
			continue
		}
		if filter.ClassID != "" && res.ClassID != filter.ClassID {
			continue
		}
		if filter.SubjectID != "" && res.SubjectID != filter.SubjectID {
			continue
		}
		if filter.StudentID != "" && res.StudentID != filter.StudentID {
			continue
		}
		if filter.BranchID != "" && res.BranchID != filter.BranchID {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		results = append(results, clone(res))
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].StudentID != results[j].StudentID {
			return results[i].StudentID < results[j].StudentID
		}
		return results[i].SubjectID < results[j].SubjectID
	})
	return results, nil
}
