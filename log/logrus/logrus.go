// Package logrus adapts a logrus entry to gridcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/gridcache"
)

var _ gridcache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New tags every entry with component=gridcache.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "gridcache")}
}

func (l Logger) Debug(msg string, f gridcache.Fields) { l.log(logrus.DebugLevel, msg, f) }
func (l Logger) Info(msg string, f gridcache.Fields)  { l.log(logrus.InfoLevel, msg, f) }
func (l Logger) Warn(msg string, f gridcache.Fields)  { l.log(logrus.WarnLevel, msg, f) }
func (l Logger) Error(msg string, f gridcache.Fields) { l.log(logrus.ErrorLevel, msg, f) }

func (l Logger) log(lvl logrus.Level, msg string, f gridcache.Fields) {
	if !l.E.Logger.IsLevelEnabled(lvl) {
		return
	}
	e := l.E
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		e = e.WithField(k, v)
	}
	e.Log(lvl, msg)
}
