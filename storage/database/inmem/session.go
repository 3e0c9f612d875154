package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/session"
)

type sessionRepository struct {
	db *DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) Exists(ctx context.Context, academicYear string, term session.Term, branchID string) (bool, error) {
	defer repo.db.rlock(ctx)()

	for _, s := range repo.db.t.sessions {
		if s.AcademicYear == academicYear && s.Term == term && s.BranchID == branchID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *sessionRepository) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	defer repo.db.lock(ctx)()

	repo.db.t.sessions[s.ID] = s
	return s, nil
}

func (repo *sessionRepository) GetSessionByID(ctx context.Context, id string) (session.Session, error) {
	defer repo.db.rlock(ctx)()

	if s, ok := repo.db.t.sessions[id]; ok {
		return s, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) FilterSessions(ctx context.Context, filter session.QueryFilter) ([]session.Session, error) {
	defer repo.db.rlock(ctx)()

	sessions := make([]session.Session, 0)
	for _, s := range repo.db.t.sessions {
		if filter.AcademicYear != "" && s.AcademicYear != filter.AcademicYear {
			continue
		}
		if filter.Term != "" && s.Term != filter.Term {
			continue
		}
		if filter.BranchID != "" && s.BranchID != filter.BranchID {
			continue
		}
		if filter.IsResultEntryOpen != nil && s.IsResultEntryOpen != *filter.IsResultEntryOpen {
			continue
		}
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, s session.Session) (session.Session, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.sessions[s.ID]; !ok {
		return session.Session{}, session.ErrNotFound
	}
	repo.db.t.sessions[s.ID] = s
	return s, nil
}
