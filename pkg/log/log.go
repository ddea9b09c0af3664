// Package log provides the core's logging interface, backed by
// logrus. Nothing in the CPU/PPU/APU hot tick path logs; the core's
// only log call reports a failed battery backup in Core.LoadBattery,
// at Errorf.
package log

import "github.com/sirupsen/logrus"

type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type logger struct {
	entry *logrus.Entry
}

// New returns a Logger that writes structured fields through logrus
// at the given level.
func New(level logrus.Level) Logger {
	l := logrus.New()
	l.SetLevel(level)
	return &logger{entry: logrus.NewEntry(l)}
}

func (l *logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
