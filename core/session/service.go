package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("session not found")
	ErrSessionExists = core.NewInvalidArgumentError("a session already exists for this academic year, term and branch")
	ErrArchived      = core.NewInvalidStateError("session is archived")

	NowFunc = time.Now // mockable
)

type Repository interface {
	// Exists reports whether a session exists for the (academicYear, term, branchID) triple.
	Exists(ctx context.Context, academicYear string, term Term, branchID string) (bool, error)
	// CreateSession returns ErrSessionExists when the (academicYear, term, branchID) triple is taken.
	CreateSession(ctx context.Context, s Session) (Session, error)
	// GetSessionByID locks the row for update when ctx carries a transaction.
	GetSessionByID(ctx context.Context, id string) (Session, error)
	FilterSessions(ctx context.Context, filter QueryFilter) ([]Session, error)
	UpdateSession(ctx context.Context, s Session) (Session, error)
}

type Service struct {
	repo   Repository
	tx     core.Transactor
	logger core.Logger
}

func NewService(repo Repository, tx core.Transactor, logger core.Logger) *Service {
	return &Service{repo: repo, tx: tx, logger: logger}
}

func (svc *Service) Create(ctx context.Context, ns NewSession, createdBy string) (Session, error) {
	if !ns.Term.IsValid() {
		return Session{}, core.NewValidationError(nil, core.FieldError{Field: "term", Error: termText})
	}
	now := NowFunc().UTC()
	sess := Session{
		ID:                uuid.New().String(),
		AcademicYear:      core.CleanString(ns.AcademicYear),
		Term:              ns.Term,
		BranchID:          core.CleanString(ns.BranchID),
		IsResultEntryOpen: false,
		PublicationStatus: NotReady,
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if sess.AcademicYear == "" {
		return Session{}, core.NewValidationError(nil, core.FieldError{Field: "academic_year", Error: "this field is required"})
	}

	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		exists, err := svc.repo.Exists(ctx, sess.AcademicYear, sess.Term, sess.BranchID)
		if err != nil {
			return errors.Wrap(err, "checking session uniqueness")
		}
		if !exists {
			sess, err = svc.repo.CreateSession(ctx, sess)
		}
		if exists || errors.Is(err, ErrSessionExists) {
			return core.NewValidationError(ErrSessionExists, core.FieldError{Field: "term", Error: ErrSessionExists.Error()})
		}
		return errors.Wrap(err, "creating session")
	})
	if err != nil {
		return Session{}, err
	}
	svc.logger.Info("session created", map[string]interface{}{"session": sess.ID, "year": sess.AcademicYear, "term": sess.Term})
	return sess, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Session, error) {
	return svc.repo.FilterSessions(ctx, filter)
}

// update runs mutate on the current persisted session inside a transaction.
func (svc *Service) update(ctx context.Context, id string, mutate func(s *Session) error) (Session, error) {
	var sess Session
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if sess, err = svc.repo.GetSessionByID(ctx, id); err != nil {
			return err
		}
		if err = mutate(&sess); err != nil {
			return err
		}
		sess.UpdatedAt = NowFunc().UTC()
		sess, err = svc.repo.UpdateSession(ctx, sess)
		return errors.Wrap(err, "updating session")
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// SetEntryOpen toggles the result-entry window. Existing results are not touched.
func (svc *Service) SetEntryOpen(ctx context.Context, id string, open bool) (Session, error) {
	sess, err := svc.update(ctx, id, func(s *Session) error {
		if open && s.IsArchived() {
			return ErrArchived
		}
		s.IsResultEntryOpen = open
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	svc.logger.Info("session result entry toggled", map[string]interface{}{"session": id, "open": open})
	return sess, nil
}

func (svc *Service) OpenEntry(ctx context.Context, id string) (Session, error) {
	return svc.SetEntryOpen(ctx, id, true)
}

func (svc *Service) CloseEntry(ctx context.Context, id string) (Session, error) {
	return svc.SetEntryOpen(ctx, id, false)
}

// Publish makes the session's results visible. Grading completeness is not checked.
func (svc *Service) Publish(ctx context.Context, id string) (Session, error) {
	sess, err := svc.update(ctx, id, func(s *Session) error {
		if s.IsArchived() {
			return ErrArchived
		}
		s.PublicationStatus = Published
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	svc.logger.Info("session published", map[string]interface{}{"session": id})
	return sess, nil
}

// Archive closes entry and marks the session as superseded.
func (svc *Service) Archive(ctx context.Context, id string) (Session, error) {
	sess, err := svc.update(ctx, id, func(s *Session) error {
		s.IsResultEntryOpen = false
		s.PublicationStatus = Archived
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	svc.logger.Info("session archived", map[string]interface{}{"session": id})
	return sess, nil
}

func (svc *Service) IsEntryOpen(ctx context.Context, id string) (bool, error) {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return false, err
	}
	return sess.IsResultEntryOpen, nil
}
