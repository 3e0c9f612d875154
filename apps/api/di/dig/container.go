package dig_container

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/fee"
	"github.com/trezcool/academia/core/ranking"
	"github.com/trezcool/academia/core/result"
	"github.com/trezcool/academia/core/session"
	emailsvc "github.com/trezcool/academia/services/email"
	locksvc "github.com/trezcool/academia/services/lock"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

const EngineMemory = "memory"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Store is every repository of the selected database engine.
type Store struct {
	dig.Out
	Tx         core.Transactor
	Sessions   session.Repository
	Results    result.Repository
	Promotions ranking.Repository
	Fees       fee.Repository
	Students   fee.StudentDirectory
	Closer     Closer
}

// Closer releases the database; a no-op for the in-memory engine.
type Closer func() error

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(os.Stdout, conf), "api", conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(os.Stdout, conf), "db", conf)
	logger.Enable(!conf.Debug)
	return logger
}

// NewStore opens the configured database engine, creating & migrating postgres when needed.
func NewStore(conf *core.Config, loggerParam DBLoggerParam) Store {
	if conf.Database.Engine == EngineMemory {
		db := inmemdb.NewDB()
		loggerParam.Logger.Warn("using the in-memory store: data is lost on exit")
		return Store{
			Tx:         db,
			Sessions:   inmemdb.NewSessionRepository(db),
			Results:    inmemdb.NewResultRepository(db),
			Promotions: inmemdb.NewPromotionRepository(db),
			Fees:       inmemdb.NewFeeRepository(db),
			Students:   inmemdb.NewStudentDirectory(db),
			Closer:     func() error { return nil },
		}
	}

	setUp := func() (*sqlxrepos.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return sqlxrepos.NewDB(db), nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal("setting up database", errors.Wrap(err, "setting up database"))
	}
	return Store{
		Tx:         db,
		Sessions:   sqlxrepos.NewSessionRepository(db),
		Results:    sqlxrepos.NewResultRepository(db),
		Promotions: sqlxrepos.NewPromotionRepository(db),
		Fees:       sqlxrepos.NewFeeRepository(db),
		Students:   sqlxrepos.NewStudentDirectory(db),
		Closer:     db.Close,
	}
}

func newLocker(conf *core.Config, logger core.Logger) core.Locker {
	if conf.Redis.Address == "" {
		return locksvc.NewLocalLocker()
	}
	rdb, err := locksvc.NewRedisClient(context.Background(), conf)
	if err != nil {
		logger.Fatal("setting up redis", err)
	}
	return locksvc.NewRedisLocker(rdb, conf, logger)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// NewValidator returns a validator knowing every domain tag.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	session.RegisterValidators(validate, translator)
	result.RegisterValidators(validate, translator)
	ranking.RegisterValidators(validate, translator)
	fee.RegisterValidators(validate, translator)
	return validate, translator
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	SessionSvc *session.Service
	ResultSvc  *result.Service
	RankingSvc *ranking.Service
	FeeSvc     *fee.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		SessionSvc: p.SessionSvc,
		ResultSvc:  p.ResultSvc,
		RankingSvc: p.RankingSvc,
		FeeSvc:     p.FeeSvc,
	})
}

// New returns a new dependency injection dig.Container.
// Providers run lazily: the server is only built when invoked.
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(NewStore))
	must(c.Provide(newLocker))
	must(c.Provide(newEmailService))
	must(c.Provide(NewValidator))
	must(c.Provide(result.NewConfig))
	must(c.Provide(func(svc *session.Service) result.Sessions { return svc }))
	must(c.Provide(func(repo result.Repository) ranking.ResultStore { return repo }))
	must(c.Provide(session.NewService))
	must(c.Provide(result.NewService))
	must(c.Provide(ranking.NewService))
	must(c.Provide(fee.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
