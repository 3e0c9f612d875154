package main

import (
	"expvar"
	"fmt"
	"net/http"
	"os"

	dig_container "github.com/trezcool/academia/apps/api/di/dig"
	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/fee"
	"github.com/trezcool/academia/core/ranking"
	"github.com/trezcool/academia/core/result"
	"github.com/trezcool/academia/core/session"
	emailsvc "github.com/trezcool/academia/services/email"
	locksvc "github.com/trezcool/academia/services/lock"
	logsvc "github.com/trezcool/academia/services/logger"
)

// startManual wires the same graph as startWithDig by hand.
func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(os.Stdout, conf), "api", conf)
	logger.Enable(!conf.Debug)
	dbLogger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(os.Stdout, conf), "db", conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	store := dig_container.NewStore(conf, dig_container.DBLoggerParam{Logger: dbLogger})
	defer func() {
		if err := store.Closer(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	locker := locksvc.NewLocalLocker() // single instance: no redis

	resConf, err := result.NewConfig(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing grading config: %v", err), err)
	}
	sessionSvc := session.NewService(store.Sessions, store.Tx, logger)
	resultSvc := result.NewService(store.Results, sessionSvc, store.Tx, locker, logger, resConf)
	rankingSvc := ranking.NewService(store.Promotions, store.Results, sessionSvc, store.Tx, locker, logger)
	feeSvc := fee.NewService(store.Fees, store.Students, store.Tx, locker, mailSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := dig_container.NewValidator()

	// =========================================================================
	// Start Debug Service

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		SessionSvc: sessionSvc,
		ResultSvc:  resultSvc,
		RankingSvc: rankingSvc,
		FeeSvc:     feeSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	awaitShutdown(conf, logger, server)
}
