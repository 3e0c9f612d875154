package testutil

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/fee"
	"github.com/trezcool/academia/core/ranking"
	"github.com/trezcool/academia/core/result"
	"github.com/trezcool/academia/core/session"
	emailsvc "github.com/trezcool/academia/services/email"
	locksvc "github.com/trezcool/academia/services/lock"
	logsvc "github.com/trezcool/academia/services/logger"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

// Env is a fully wired engine over the in-memory store.
type Env struct {
	Conf     *core.Config
	DB       *inmemdb.DB
	Logger   core.Logger
	Locker   core.Locker
	Mailer   *emailsvc.ConsoleServiceMock
	Students interface {
		fee.StudentDirectory
		AddStudents(ctx context.Context, students ...fee.Student)
	}

	SessionRepo   session.Repository
	ResultRepo    result.Repository
	PromotionRepo ranking.Repository
	FeeRepo       fee.Repository

	Sessions *session.Service
	Results  *result.Service
	Ranking  *ranking.Service
	Fees     *fee.Service
}

// NewConfig returns the default configuration in test mode.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	return conf
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := NewConfig()
	logger := logsvc.NewDiscardLogger()
	db := inmemdb.NewDB()

	env := &Env{
		Conf:          conf,
		DB:            db,
		Logger:        logger,
		Locker:        locksvc.NewLocalLocker(),
		Mailer:        emailsvc.NewConsoleServiceMock(conf, logger),
		Students:      inmemdb.NewStudentDirectory(db),
		SessionRepo:   inmemdb.NewSessionRepository(db),
		ResultRepo:    inmemdb.NewResultRepository(db),
		PromotionRepo: inmemdb.NewPromotionRepository(db),
		FeeRepo:       inmemdb.NewFeeRepository(db),
	}

	resConf, err := result.NewConfig(conf)
	if err != nil {
		t.Fatalf("result.NewConfig() failed: %v", err)
	}

	env.Sessions = session.NewService(env.SessionRepo, db, logger)
	env.Results = result.NewService(env.ResultRepo, env.Sessions, db, env.Locker, logger, resConf)
	env.Ranking = ranking.NewService(env.PromotionRepo, env.ResultRepo, env.Sessions, db, env.Locker, logger)
	env.Fees = fee.NewService(env.FeeRepo, env.Students, db, env.Locker, env.Mailer, logger)
	return env
}

// CreateSession creates a session, optionally opening its result entry.
func CreateSession(t *testing.T, env *Env, year string, term session.Term, open bool) session.Session {
	t.Helper()

	ctx := context.Background()
	sess, err := env.Sessions.Create(ctx, session.NewSession{AcademicYear: year, Term: term}, "admin")
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	if open {
		if sess, err = env.Sessions.OpenEntry(ctx, sess.ID); err != nil {
			t.Fatalf("CreateSession() failed: %v", err)
		}
	}
	return sess
}

// CreateResult records a Draft result; the session must be open.
func CreateResult(t *testing.T, env *Env, sessionID, classID, studentID, subjectID string, c result.Components) result.Result {
	t.Helper()

	res, err := env.Results.Upsert(context.Background(), result.Entry{
		StudentID:  studentID,
		SubjectID:  subjectID,
		ClassID:    classID,
		SessionID:  sessionID,
		Components: c,
	}, "teacher")
	if err != nil {
		t.Fatalf("CreateResult() failed: %v", err)
	}
	return res
}

// Exam returns components made of an exam mark only.
func Exam(mark float64) result.Components {
	return result.Components{Exam: mark}
}

// CreateFeeStructure seeds a fee structure from fee type/amount pairs.
func CreateFeeStructure(t *testing.T, env *Env, branchID, classLevelID, sessionID string, fees map[string]int64) fee.FeeStructure {
	t.Helper()

	items := make([]fee.FeeItem, 0, len(fees))
	for _, feeType := range sortedKeys(fees) {
		items = append(items, fee.FeeItem{FeeType: feeType, Amount: decimal.NewFromInt(fees[feeType])})
	}
	fs, err := env.Fees.CreateFeeStructure(context.Background(), fee.FeeStructure{
		BranchID:     branchID,
		ClassLevelID: classLevelID,
		SessionID:    sessionID,
		Fees:         items,
	})
	if err != nil {
		t.Fatalf("CreateFeeStructure() failed: %v", err)
	}
	return fs
}

// GenerateInvoice generates (or fetches) the invoice of a student.
func GenerateInvoice(t *testing.T, env *Env, studentID string, fs fee.FeeStructure) fee.Invoice {
	t.Helper()

	inv, _, err := env.Fees.GenerateInvoice(context.Background(), fee.NewInvoice{
		StudentID:      studentID,
		FeeStructureID: fs.ID,
		SessionID:      fs.SessionID,
		DueDate:        time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("GenerateInvoice() failed: %v", err)
	}
	return inv
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
