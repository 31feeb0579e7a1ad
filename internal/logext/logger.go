package logext

import "github.com/sirupsen/logrus"

// Logger is the facade StreamSocket and its sub-components hold onto. It is
// satisfied directly by *logrus.Entry; callers without a logger get Nop().
type Logger interface {
	WithField(key string, value interface{}) *logrus.Entry
	WithFields(fields logrus.Fields) *logrus.Entry
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Nop returns a Logger that discards everything, used when a caller does not
// wire a logger into Open.
func Nop() Logger {
	l := logrus.New()
	l.SetOutput(discard{})
	return l
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
