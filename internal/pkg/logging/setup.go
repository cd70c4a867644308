package logging

import (
	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger used by the application code.
func Setup(level string) *logrus.Logger {
	l := logrus.StandardLogger()
	l.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		l.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
