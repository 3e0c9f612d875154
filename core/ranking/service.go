package ranking

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/result"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("promotion record not found")
	ErrEntryOpen         = core.NewInvalidStateError("result entry must be closed before ranking")
	ErrNotRanked         = core.NewInvalidStateError("class has not been ranked for this session")
	ErrAlreadyOverridden = core.NewInvalidStateError("promotion record has already been overridden")

	NowFunc = time.Now // mockable
)

type Repository interface {
	// GetPromotionByID locks the row for update when ctx carries a transaction.
	GetPromotionByID(ctx context.Context, id string) (PromotionRecord, error)
	FilterPromotions(ctx context.Context, classID, sessionID string) ([]PromotionRecord, error)
	CreatePromotion(ctx context.Context, rec PromotionRecord) (PromotionRecord, error)
	UpdatePromotion(ctx context.Context, rec PromotionRecord) (PromotionRecord, error)
	DeletePromotion(ctx context.Context, id string) error
}

// ResultStore is the part of the result store the ranking pass reads & writes.
type ResultStore interface {
	FilterResults(ctx context.Context, filter result.QueryFilter) ([]result.Result, error)
	UpdateResult(ctx context.Context, res result.Result) (result.Result, error)
}

type Service struct {
	repo     Repository
	results  ResultStore
	sessions result.Sessions
	tx       core.Transactor
	locker   core.Locker
	logger   core.Logger
}

func NewService(
	repo Repository,
	results ResultStore,
	sessions result.Sessions,
	tx core.Transactor,
	locker core.Locker,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		results:  results,
		sessions: sessions,
		tx:       tx,
		locker:   locker,
		logger:   logger,
	}
}

// RankClass writes position & average onto every result of the class in the session,
// Approved ones included, and returns them ordered by position. Re-running it with unchanged
// results yields the same output.
func (svc *Service) RankClass(ctx context.Context, classID, sessionID string) ([]result.Result, error) {
	unlock, err := svc.locker.Lock(ctx, result.ClassLockKey(classID, sessionID))
	if err != nil {
		return nil, errors.Wrap(err, "locking class")
	}
	defer unlock()

	var ranked []result.Result
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		sess, err := svc.sessions.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.IsResultEntryOpen {
			return ErrEntryOpen
		}

		results, err := svc.results.FilterResults(ctx, result.QueryFilter{ClassID: classID, SessionID: sessionID})
		if err != nil {
			return errors.Wrap(err, "filtering results")
		}

		standings := make(map[string]Standing, len(results))
		for _, st := range Rank(results) {
			standings[st.StudentID] = st
		}

		ranked = make([]result.Result, 0, len(results))
		for _, res := range results {
			st := standings[res.StudentID]
			pos, avg := st.Position, st.Average
			res.Position = &pos
			res.Average = &avg
			if res, err = svc.results.UpdateResult(ctx, res); err != nil {
				return errors.Wrap(err, "updating result")
			}
			ranked = append(ranked, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if *a.Position != *b.Position {
			return *a.Position < *b.Position
		}
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.SubjectID < b.SubjectID
	})

	svc.logger.Info("class ranked", map[string]interface{}{"class": classID, "session": sessionID, "results": len(ranked)})
	return ranked, nil
}

// RunPromotion decides Promoted/Repeated for every ranked student of the class.
// Existing records are recomputed unless they were overridden.
func (svc *Service) RunPromotion(ctx context.Context, classID, sessionID string, threshold float64) ([]PromotionRecord, error) {
	if threshold < 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "threshold", Error: "threshold must be 0 or greater"})
	}

	unlock, err := svc.locker.Lock(ctx, result.ClassLockKey(classID, sessionID))
	if err != nil {
		return nil, errors.Wrap(err, "locking class")
	}
	defer unlock()

	var records []PromotionRecord
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.sessions.Get(ctx, sessionID); err != nil {
			return err
		}

		results, err := svc.results.FilterResults(ctx, result.QueryFilter{ClassID: classID, SessionID: sessionID})
		if err != nil {
			return errors.Wrap(err, "filtering results")
		}

		averages := make(map[string]float64)
		for _, res := range results {
			if res.Average == nil || res.Position == nil {
				return ErrNotRanked
			}
			averages[res.StudentID] = *res.Average
		}

		existing, err := svc.repo.FilterPromotions(ctx, classID, sessionID)
		if err != nil {
			return errors.Wrap(err, "filtering promotions")
		}
		byStudent := make(map[string]PromotionRecord, len(existing))
		for _, rec := range existing {
			byStudent[rec.StudentID] = rec
		}

		// students without results anymore lose their computed record
		for studentID, rec := range byStudent {
			if _, ok := averages[studentID]; ok || rec.Overridden {
				continue
			}
			if err = svc.repo.DeletePromotion(ctx, rec.ID); err != nil {
				return errors.Wrap(err, "deleting promotion")
			}
		}

		now := NowFunc().UTC()
		for studentID, avg := range averages {
			rec, ok := byStudent[studentID]
			if ok && rec.Overridden {
				continue
			}
			rec.FinalAverage = avg
			rec.Threshold = threshold
			rec.Status = Decide(avg, threshold)
			rec.UpdatedAt = now

			if ok {
				_, err = svc.repo.UpdatePromotion(ctx, rec)
				if err != nil {
					return errors.Wrap(err, "updating promotion")
				}
				continue
			}
			rec.ID = uuid.New().String()
			rec.StudentID = studentID
			rec.SessionID = sessionID
			rec.FromClassID = classID
			rec.CreatedAt = now
			if _, err = svc.repo.CreatePromotion(ctx, rec); err != nil {
				return errors.Wrap(err, "creating promotion")
			}
		}

		records, err = svc.repo.FilterPromotions(ctx, classID, sessionID)
		return errors.Wrap(err, "filtering promotions")
	})
	if err != nil {
		return nil, err
	}

	sortRecords(records)
	svc.logger.Info("promotion run", map[string]interface{}{
		"class":     classID,
		"session":   sessionID,
		"threshold": threshold,
		"records":   len(records),
	})
	return records, nil
}

// Decide returns Promoted when average reaches the threshold.
func Decide(average, threshold float64) PromotionStatus {
	if average >= threshold {
		return Promoted
	}
	return Repeated
}

// OverridePromotion sets a record's status by hand. A record can be overridden once and
// is never recomputed afterwards.
func (svc *Service) OverridePromotion(ctx context.Context, id string, ovr Override, by string) (PromotionRecord, error) {
	ovr.Comment = core.CleanString(ovr.Comment)
	if ovr.Comment == "" {
		return PromotionRecord{}, core.NewValidationError(nil, core.FieldError{Field: "comment", Error: "a comment is required to override a promotion"})
	}
	if !ovr.Status.IsValid() {
		return PromotionRecord{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: promotionStatusText})
	}

	var rec PromotionRecord
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if rec, err = svc.repo.GetPromotionByID(ctx, id); err != nil {
			return err
		}
		if rec.Overridden {
			return ErrAlreadyOverridden
		}
		now := NowFunc().UTC()
		rec.Status = ovr.Status
		rec.Overridden = true
		rec.OverrideComment = ovr.Comment
		rec.OverriddenBy = by
		rec.OverriddenAt = &now
		rec.UpdatedAt = now
		rec, err = svc.repo.UpdatePromotion(ctx, rec)
		return errors.Wrap(err, "updating promotion")
	})
	if err != nil {
		return PromotionRecord{}, err
	}
	svc.logger.Info("promotion overridden", map[string]interface{}{"record": id, "status": rec.Status, "by": by})
	return rec, nil
}

func (svc *Service) QueryPromotions(ctx context.Context, classID, sessionID string) ([]PromotionRecord, error) {
	records, err := svc.repo.FilterPromotions(ctx, classID, sessionID)
	if err != nil {
		return nil, err
	}
	sortRecords(records)
	return records, nil
}

// sortRecords orders by descending average, then student.
func sortRecords(records []PromotionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].FinalAverage != records[j].FinalAverage {
			return records[i].FinalAverage > records[j].FinalAverage
		}
		return records[i].StudentID < records[j].StudentID
	})
}
