// Package logrus adapts a logrus.Entry to the tiercache.Logger interface.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/defilytics/tiercache"
)

type Logger struct{ E *logrus.Entry }

var _ tiercache.Logger = Logger{}

func (l Logger) Debug(msg string, f tiercache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}

func (l Logger) Info(msg string, f tiercache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Info(msg)
}

func (l Logger) Warn(msg string, f tiercache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Warn(msg)
}

func (l Logger) Error(msg string, f tiercache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
