package logging

import (
	"fmt"
	"io"
	"os"

	glog "github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"
)

// SplitLogger is Echo's logger, emitting logrus JSON lines. Debug, Info,
// Warn and Print go to out; Error, Fatal and Panic go to err.
type SplitLogger struct {
	out    *logrus.Logger
	err    *logrus.Logger
	prefix string
	level  glog.Lvl
}

// NewSplitLogger creates a SplitLogger writing JSON lines to stdout and stderr.
func NewSplitLogger() *SplitLogger {
	return NewSplitLoggerTo(os.Stdout, os.Stderr)
}

func NewSplitLoggerTo(out, errw io.Writer) *SplitLogger {
	l := &SplitLogger{out: newJSONLogger(out), err: newJSONLogger(errw)}
	l.SetLevel(glog.INFO)
	return l
}

func newJSONLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l
}

// Output is the writer of the info-level logrus logger.
func (l *SplitLogger) Output() io.Writer { return l.out.Out }

// SetOutput points both logrus loggers at w, merging the two streams.
func (l *SplitLogger) SetOutput(w io.Writer) {
	l.out.SetOutput(w)
	l.err.SetOutput(w)
}

func (l *SplitLogger) Prefix() string { return l.prefix }
func (l *SplitLogger) SetPrefix(p string) { l.prefix = p }
func (l *SplitLogger) Level() glog.Lvl { return l.level }
func (l *SplitLogger) SetHeader(h string) {}

func (l *SplitLogger) SetLevel(v glog.Lvl) {
	l.level = v
	lv := toLogrusLevel(v)
	l.out.SetLevel(lv)
	l.err.SetLevel(lv)
}

func toLogrusLevel(v glog.Lvl) logrus.Level {
	switch v {
	case glog.DEBUG:
		return logrus.DebugLevel
	case glog.INFO:
		return logrus.InfoLevel
	case glog.WARN:
		return logrus.WarnLevel
	case glog.ERROR:
		return logrus.ErrorLevel
	case glog.OFF:
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *SplitLogger) entry(lg *logrus.Logger) *logrus.Entry {
	e := logrus.NewEntry(lg)
	if l.prefix != "" {
		e = e.WithField("prefix", l.prefix)
	}
	return e
}

func (l *SplitLogger) entryJ(lg *logrus.Logger, j glog.JSON) *logrus.Entry {
	return l.entry(lg).WithFields(logrus.Fields(j))
}

func (l *SplitLogger) Print(i ...interface{}) { l.entry(l.out).Info(fmt.Sprint(i...)) }
func (l *SplitLogger) Printf(format string, args ...interface{}) {
	l.entry(l.out).Infof(format, args...)
}
func (l *SplitLogger) Printj(j glog.JSON) { l.entryJ(l.out, j).Info() }

func (l *SplitLogger) Debug(i ...interface{}) { l.entry(l.out).Debug(i...) }
func (l *SplitLogger) Debugf(format string, args ...interface{}) {
	l.entry(l.out).Debugf(format, args...)
}
func (l *SplitLogger) Debugj(j glog.JSON) { l.entryJ(l.out, j).Debug() }

func (l *SplitLogger) Info(i ...interface{}) { l.entry(l.out).Info(i...) }
func (l *SplitLogger) Infof(format string, args ...interface{}) {
	l.entry(l.out).Infof(format, args...)
}
func (l *SplitLogger) Infoj(j glog.JSON) { l.entryJ(l.out, j).Info() }

func (l *SplitLogger) Warn(i ...interface{}) { l.entry(l.out).Warn(i...) }
func (l *SplitLogger) Warnf(format string, args ...interface{}) {
	l.entry(l.out).Warnf(format, args...)
}
func (l *SplitLogger) Warnj(j glog.JSON) { l.entryJ(l.out, j).Warn() }

func (l *SplitLogger) Error(i ...interface{}) { l.entry(l.err).Error(i...) }
func (l *SplitLogger) Errorf(format string, args ...interface{}) {
	l.entry(l.err).Errorf(format, args...)
}
func (l *SplitLogger) Errorj(j glog.JSON) { l.entryJ(l.err, j).Error() }

func (l *SplitLogger) Fatal(i ...interface{}) { l.entry(l.err).Fatal(i...) }
func (l *SplitLogger) Fatalj(j glog.JSON) { l.entryJ(l.err, j).Fatal() }
func (l *SplitLogger) Fatalf(format string, args ...interface{}) {
	l.entry(l.err).Fatalf(format, args...)
}

func (l *SplitLogger) Panic(i ...interface{}) { l.entry(l.err).Panic(i...) }
func (l *SplitLogger) Panicj(j glog.JSON) { l.entryJ(l.err, j).Panic() }
func (l *SplitLogger) Panicf(format string, args ...interface{}) {
	l.entry(l.err).Panicf(format, args...)
}
