package sqlxrepos

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
)

const sessionColumns = `id, academic_year, term, branch_id, is_result_entry_open, publication_status,
	created_by, created_at, updated_at`

type sessionRepository struct {
	db *DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) Exists(ctx context.Context, academicYear string, term session.Term, branchID string) (bool, error) {
	var exists bool
	err := repo.db.get(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM session WHERE academic_year = ? AND term = ? AND branch_id = ?)`,
		academicYear, term, branchID,
	)
	return exists, err
}

func (repo *sessionRepository) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	_, err := repo.db.namedExec(ctx, `INSERT INTO session (`+sessionColumns+`) VALUES (
		:id, :academic_year, :term, :branch_id, :is_result_entry_open, :publication_status,
		:created_by, :created_at, :updated_at)`, s)
	if isUniqueViolation(err) {
		return session.Session{}, session.ErrSessionExists
	}
	if err != nil {
		return session.Session{}, err
	}
	return s, nil
}

func (repo *sessionRepository) GetSessionByID(ctx context.Context, id string) (session.Session, error) {
	var s session.Session
	q := repo.db.forUpdate(ctx, `SELECT `+sessionColumns+` FROM session WHERE id = ?`)
	if err := repo.db.get(ctx, &s, q, id); err != nil {
		return session.Session{}, notFound(err, session.ErrNotFound)
	}
	return s, nil
}

func (repo *sessionRepository) FilterSessions(ctx context.Context, filter session.QueryFilter) ([]session.Session, error) {
	var w where
	w.eq("academic_year", filter.AcademicYear)
	w.eq("term", string(filter.Term))
	w.eq("branch_id", filter.BranchID)
	if filter.IsResultEntryOpen != nil {
		w.add("is_result_entry_open = ?", *filter.IsResultEntryOpen)
	}

	sessions := make([]session.Session, 0)
	q := `SELECT ` + sessionColumns + ` FROM session` + w.String() +
		orderBy(core.DBOrdering{Field: "created_at"}, core.DBOrdering{Field: "id", Ascending: true})
	if err := repo.db.sel(ctx, &sessions, q, w.args...); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, s session.Session) (session.Session, error) {
	res, err := repo.db.namedExec(ctx, `UPDATE session SET
		is_result_entry_open = :is_result_entry_open,
		publication_status = :publication_status,
		updated_at = :updated_at
		WHERE id = :id`, s)
	if err != nil {
		return session.Session{}, err
	}
	if err = checkAffected(res, session.ErrNotFound); err != nil {
		return session.Session{}, err
	}
	return s, nil
}
