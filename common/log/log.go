package log

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/config"
	"github.com/veridata-labs/marketplace-broker/common/errors"
)

// Logger is the logging interface passed through the broker. It wraps a
// logrus entry so components can attach structured fields without caring
// about the sink.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithFields(fields logrus.Fields) Logger
}

type logger struct {
	entry *logrus.Entry
}

func GetLogger(conf *config.LoggerConfig) (Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(conf.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "parse log level %q", conf.Level)
	}
	l.SetLevel(level)

	switch conf.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("unknown log format %q", conf.Format)
	}

	if conf.Path != "" {
		f, err := os.OpenFile(conf.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.Wrap(err, "open log file")
		}
		l.SetOutput(f)
	}

	return &logger{entry: logrus.NewEntry(l)}, nil
}

func (l *logger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *logger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *logger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *logger) Error(args ...interface{}) { l.entry.Error(args...) }

func (l *logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logger) WithFields(fields logrus.Fields) Logger {
	return &logger{entry: l.entry.WithFields(fields)}
}
