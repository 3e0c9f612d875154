package result

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("result not found")
	ErrAlreadyApproved = core.NewInvalidStateError("result is already approved")
	ErrEntryClosed     = core.NewEntryClosedError("result entry is closed for this session")
	ErrNotPublished    = core.NewInvalidStateError("results are not published for this session")

	NowFunc = time.Now // mockable
)

type Repository interface {
	// GetResultByID locks the row for update when ctx carries a transaction.
	GetResultByID(ctx context.Context, id string) (Result, error)
	// GetResultByKey returns the result of (studentID, subjectID, sessionID), or ErrNotFound.
	GetResultByKey(ctx context.Context, studentID, subjectID, sessionID string) (Result, error)
	CreateResult(ctx context.Context, res Result) (Result, error)
	UpdateResult(ctx context.Context, res Result) (Result, error)
	DeleteResult(ctx context.Context, id string) error
	FilterResults(ctx context.Context, filter QueryFilter) ([]Result, error)
}

// Sessions resolves the session a result belongs to.
type Sessions interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

type Service struct {
	repo     Repository
	sessions Sessions
	tx       core.Transactor
	locker   core.Locker
	logger   core.Logger
	conf     Config
}

func NewService(
	repo Repository,
	sessions Sessions,
	tx core.Transactor,
	locker core.Locker,
	logger core.Logger,
	conf Config,
) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		tx:       tx,
		locker:   locker,
		logger:   logger,
		conf:     conf,
	}
}

func (svc *Service) Scale() GradingScale { return svc.conf.Scale }

func (svc *Service) checkEntry(e Entry) error {
	var flds []core.FieldError
	for _, f := range [...]struct{ name, val string }{
		{"student_id", e.StudentID},
		{"subject_id", e.SubjectID},
		{"class_id", e.ClassID},
		{"session_id", e.SessionID},
	} {
		if f.val == "" {
			flds = append(flds, core.FieldError{Field: f.name, Error: "this field is required"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// clearClassRanking drops ranking output of a class once one of its results changes.
func (svc *Service) clearClassRanking(ctx context.Context, classID, sessionID string) error {
	results, err := svc.repo.FilterResults(ctx, QueryFilter{ClassID: classID, SessionID: sessionID})
	if err != nil {
		return errors.Wrap(err, "filtering results")
	}
	for _, res := range results {
		if res.Position == nil && res.Average == nil {
			continue
		}
		res.ClearRanking()
		if _, err = svc.repo.UpdateResult(ctx, res); err != nil {
			return errors.Wrap(err, "clearing ranking")
		}
	}
	return nil
}

func (svc *Service) openSession(ctx context.Context, id string) (session.Session, error) {
	sess, err := svc.sessions.Get(ctx, id)
	if err != nil {
		return session.Session{}, err
	}
	if !sess.IsResultEntryOpen {
		return session.Session{}, ErrEntryClosed
	}
	return sess, nil
}

// Upsert creates or updates the Draft result of (student, subject, session).
// Ranking output of the class is cleared since its averages are stale.
func (svc *Service) Upsert(ctx context.Context, e Entry, recordedBy string) (Result, error) {
	e.clean()
	if err := svc.checkEntry(e); err != nil {
		return Result{}, err
	}

	var res Result
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.openSession(ctx, e.SessionID); err != nil {
			return err
		}
		if err := svc.conf.Limits.Check(e.Components); err != nil {
			return err
		}

		now := NowFunc().UTC()
		existing, err := svc.repo.GetResultByKey(ctx, e.StudentID, e.SubjectID, e.SessionID)
		switch {
		case errors.Is(err, ErrNotFound):
			res = Result{
				ID:        uuid.New().String(),
				StudentID: e.StudentID,
				SubjectID: e.SubjectID,
				SessionID: e.SessionID,
				CreatedAt: now,
			}
		case err != nil:
			return errors.Wrap(err, "getting result")
		case existing.IsApproved():
			return ErrAlreadyApproved
		default:
			res = existing
			res.ClearRanking()
		}

		res.ClassID = e.ClassID
		res.BranchID = e.BranchID
		res.Components = e.Components
		res.Total = e.Components.Total()
		res.Grade = svc.conf.Scale.Grade(res.Total)
		res.Status = Draft
		res.Remarks = e.Remarks
		res.TeacherComment = e.TeacherComment
		res.RecordedBy = recordedBy
		res.UpdatedAt = now

		if existing.ID == "" {
			res, err = svc.repo.CreateResult(ctx, res)
			err = errors.Wrap(err, "creating result")
		} else {
			res, err = svc.repo.UpdateResult(ctx, res)
			err = errors.Wrap(err, "updating result")
		}
		if err != nil {
			return err
		}
		if existing.ID != "" && existing.ClassID != res.ClassID {
			if err = svc.clearClassRanking(ctx, existing.ClassID, res.SessionID); err != nil {
				return err
			}
		}
		return svc.clearClassRanking(ctx, res.ClassID, res.SessionID)
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Approve freezes a Draft result. Approval is allowed after entry closure.
func (svc *Service) Approve(ctx context.Context, id, approvedBy, comment string) (Result, error) {
	var res Result
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if res, err = svc.repo.GetResultByID(ctx, id); err != nil {
			return err
		}
		if res.IsApproved() {
			return ErrAlreadyApproved
		}
		now := NowFunc().UTC()
		res.Status = Approved
		res.ApprovedBy = approvedBy
		res.ApprovedAt = &now
		if comment = core.CleanString(comment); comment != "" {
			res.PrincipalComment = comment
		}
		res.UpdatedAt = now
		res, err = svc.repo.UpdateResult(ctx, res)
		return errors.Wrap(err, "updating result")
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// BulkUpsert upserts every row independently: a failing row never blocks its siblings.
// Concurrent batches for the same class & session are serialized.
func (svc *Service) BulkUpsert(ctx context.Context, be BulkEntry, recordedBy string) ([]RowOutcome, error) {
	unlock, err := svc.locker.Lock(ctx, ClassLockKey(be.ClassID, be.SessionID))
	if err != nil {
		return nil, errors.Wrap(err, "locking class")
	}
	defer unlock()

	outcomes := make([]RowOutcome, 0, len(be.Rows))
	var failed int
	for _, row := range be.Rows {
		res, err := svc.Upsert(ctx, Entry{
			StudentID:      row.StudentID,
			SubjectID:      be.SubjectID,
			ClassID:        be.ClassID,
			BranchID:       be.BranchID,
			SessionID:      be.SessionID,
			Components:     row.Components,
			Remarks:        row.Remarks,
			TeacherComment: row.TeacherComment,
		}, recordedBy)

		out := RowOutcome{StudentID: row.StudentID, Err: err}
		if err != nil {
			out.Error = err.Error()
			failed++
		} else {
			out.Result = &res
		}
		outcomes = append(outcomes, out)
	}

	svc.logger.Info("bulk results upserted", map[string]interface{}{
		"class":   be.ClassID,
		"subject": be.SubjectID,
		"session": be.SessionID,
		"rows":    len(be.Rows),
		"failed":  failed,
	})
	return outcomes, nil
}

// Delete removes a Draft result while entry is open.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		res, err := svc.repo.GetResultByID(ctx, id)
		if err != nil {
			return err
		}
		if res.IsApproved() {
			return ErrAlreadyApproved
		}
		if _, err = svc.openSession(ctx, res.SessionID); err != nil {
			return err
		}
		if err = svc.repo.DeleteResult(ctx, id); err != nil {
			return errors.Wrap(err, "deleting result")
		}
		return svc.clearClassRanking(ctx, res.ClassID, res.SessionID)
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Result, error) {
	return svc.repo.GetResultByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Result, error) {
	return svc.repo.FilterResults(ctx, filter)
}

// QueryPublished returns a student's results once their session is published.
func (svc *Service) QueryPublished(ctx context.Context, studentID, sessionID string) ([]Result, error) {
	sess, err := svc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsPublished() {
		return nil, ErrNotPublished
	}
	return svc.repo.FilterResults(ctx, QueryFilter{StudentID: studentID, SessionID: sessionID})
}

// ClassLockKey names the lock serializing class-wide batches of a session.
func ClassLockKey(classID, sessionID string) string {
	return core.LockKey("class", classID, sessionID)
}
