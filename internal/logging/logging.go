// Package logging adapts logrus to metadata.Logger, the structured
// logging interface the trusted metadata core calls into.
package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/tuf-go/coretuf/metadata"
)

// Logrus implements metadata.Logger on top of a *logrus.Logger.
type Logrus struct {
	log *logrus.Logger
}

// New returns a Logrus logger writing through l.
func New(l *logrus.Logger) *Logrus {
	return &Logrus{log: l}
}

// Info implements metadata.Logger.
func (l *Logrus) Info(msg string, kv ...any) {
	l.log.WithFields(fields(kv)).Info(msg)
}

// Error implements metadata.Logger.
func (l *Logrus) Error(err error, msg string, kv ...any) {
	l.log.WithFields(fields(kv)).WithError(err).Error(msg)
}

func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}

var _ metadata.Logger = (*Logrus)(nil)
