// Package logger provides context scoped, leveled logging. Nothing is written unless the
// context carries a level (see WithLevel) at or below the level of the message.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type Level int

const (
	OFF Level = iota
	TRACE
	DEBUG
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) String() string {
	switch l {
	case OFF:
		return "OFF"
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return ""
	}
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// ParseLevel converts a level name back into a Level.
func ParseLevel(s string) (Level, error) {
	for l := OFF; l <= FATAL; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return OFF, fmt.Errorf("unknown log level %q", s)
}

type key int

const (
	level key = iota
	values
)

type Pair struct {
	Key   string
	Value interface{}
}

// Logger receives every message that passes the level check.
type Logger interface {
	Log(l Level, message string, vals ...Pair) error
}

type LoggerFunc func(l Level, message string, vals ...Pair) error

func (lf LoggerFunc) Log(l Level, message string, vals ...Pair) error {
	return lf(l, message, vals...)
}

var impl Logger = Logrus(logrus.StandardLogger())
var rw sync.RWMutex

// Config replaces the logger that messages are written to.
func Config(i Logger) {
	rw.Lock()
	defer rw.Unlock()
	impl = i
}

func WithLevel(c context.Context, l Level) context.Context {
	return context.WithValue(c, level, l)
}

func LevelFromContext(c context.Context) (Level, bool) {
	l, ok := c.Value(level).(Level)
	return l, ok
}

func WithValues(c context.Context, vals ...Pair) context.Context {
	//if there are any existing pairs, copy them into this vals as well
	var pairs []Pair
	if curVals, ok := c.Value(values).([]Pair); ok {
		pairs = append(pairs, curVals...)
	}
	pairs = append(pairs, vals...)

	return context.WithValue(c, values, pairs)
}

// Enabled reports whether a message at l would be written for c.
func Enabled(c context.Context, l Level) bool {
	curLevel, ok := LevelFromContext(c)
	return ok && curLevel != OFF && curLevel <= l
}

func Log(c context.Context, l Level, message string, vals ...Pair) {
	if !Enabled(c, l) {
		return
	}
	var outVals []Pair
	if curVals, ok := c.Value(values).([]Pair); ok {
		outVals = append(outVals, curVals...)
	}
	outVals = append(outVals, vals...)

	rw.RLock()
	defer rw.RUnlock()
	impl.Log(l, message, outVals...)
}

type logrusLogger struct {
	l *logrus.Logger
}

// Logrus writes messages through a logrus logger. Pairs become logrus fields. Levels are
// filtered by the context, so the logrus logger's own level should be permissive enough
// to let them through.
func Logrus(l *logrus.Logger) Logger {
	return logrusLogger{l: l}
}

func (ll logrusLogger) Log(l Level, message string, vals ...Pair) error {
	fields := make(logrus.Fields, len(vals))
	for _, v := range vals {
		fields[v.Key] = v.Value
	}
	entry := ll.l.WithFields(fields)
	switch l {
	case TRACE:
		entry.Trace(message)
	case DEBUG:
		entry.Debug(message)
	case INFO:
		entry.Info(message)
	case WARN:
		entry.Warn(message)
	case ERROR:
		entry.Error(message)
	case FATAL:
		//a library must not exit the process
		entry.WithField("fatal", true).Error(message)
	}
	return nil
}
