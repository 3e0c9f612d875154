package logsvc

import (
	"context"
	"fmt"
	"io"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
)

// RollbarLogger reports to rollbar and mirrors every entry to logrus.
type RollbarLogger struct {
	std *logrus.Entry
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewStdLogger returns the logrus logger entries are mirrored to. Non-debug builds log JSON.
func NewStdLogger(out io.Writer, conf *core.Config) *logrus.Logger {
	std := logrus.New()
	std.SetOutput(out)
	if conf.Debug {
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		std.SetLevel(logrus.DebugLevel)
	} else {
		std.SetFormatter(&logrus.JSONFormatter{})
		std.SetLevel(logrus.InfoLevel)
	}
	return std
}

func NewRollbarLogger(std *logrus.Logger, component string, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std.WithField("component", component)}
}

// NewDiscardLogger logs nowhere; used by tests & tools.
func NewDiscardLogger() *RollbarLogger {
	std := logrus.New()
	std.SetOutput(io.Discard)
	rollbar.SetEnabled(false)
	return &RollbarLogger{std: logrus.NewEntry(std)}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// report is one log call, split for rollbar & logrus.
type report struct {
	ctx    context.Context // carries the rollbar person, if any
	err    error
	extras map[string]interface{}
	fields logrus.Fields
}

// expected fmt: msg | error, map[string]interface{}, *access.Principal
func (l RollbarLogger) prepare(args []interface{}) report {
	r := report{
		ctx:    context.Background(),
		extras: make(map[string]interface{}),
		fields: make(logrus.Fields),
	}
	var prnSet bool
	for _, arg := range args {
		switch a := arg.(type) {
		case *access.Principal:
			// the first caller wins
			if a != nil && !prnSet {
				r.ctx = rollbar.NewPersonContext(r.ctx, &rollbar.Person{Id: a.ID, Username: a.Name, Email: a.Email})
				r.fields["principal"] = a.ID
				prnSet = true
			}
		case error:
			if r.err == nil {
				r.err = a
			}
			r.fields[logrus.ErrorKey] = a
		case map[string]interface{}:
			for k, v := range a {
				r.fields[k] = v
				r.extras[k] = v
			}
		default:
			key := fmt.Sprintf("arg%d", len(r.fields))
			r.fields[key] = a
			r.extras[key] = a
		}
	}
	return r
}

func (l RollbarLogger) send(level, msg string, r report) {
	if r.err != nil {
		r.extras["message"] = msg
		rollbar.ErrorWithExtrasAndContext(r.ctx, level, r.err, r.extras)
		return
	}
	rollbar.MessageWithExtrasAndContext(r.ctx, level, msg, r.extras)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	r := l.prepare(args)
	l.send(rollbar.DEBUG, msg, r)
	l.std.WithFields(r.fields).Debug(msg)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	r := l.prepare(args)
	l.send(rollbar.INFO, msg, r)
	l.std.WithFields(r.fields).Info(msg)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	r := l.prepare(args)
	l.send(rollbar.WARN, msg, r)
	l.std.WithFields(r.fields).Warn(msg)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	r := l.prepare(args)
	l.send(rollbar.ERR, msg, r)
	l.std.WithFields(r.fields).Error(msg)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	r := l.prepare(args)
	l.send(rollbar.CRIT, msg, r)
	rollbar.Wait()
	l.std.WithFields(r.fields).Fatal(msg)
}
