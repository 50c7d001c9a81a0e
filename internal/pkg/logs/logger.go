package logs

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/labstack/gommon/log"
)

// Logger writes one JSON object per log line.
type Logger struct {
	*log.Logger
	fields []any
}

// NewLogger returns logger that writes to output with specified level.
func NewLogger(output io.Writer, level log.Lvl) *Logger {
	l := log.New("horus")
	l.SetOutput(output)
	l.SetLevel(level)
	l.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`)
	return &Logger{Logger: l}
}

// Discard returns logger that drops everything.
func Discard() *Logger {
	return NewLogger(io.Discard, log.OFF)
}

// With returns child logger with bound fields.
func (l *Logger) With(args ...any) *Logger {
	fields := make([]any, 0, len(l.fields)+len(args))
	fields = append(fields, l.fields...)
	fields = append(fields, args...)
	return &Logger{Logger: l.Logger, fields: fields}
}

func (l *Logger) Debug(args ...any) {
	l.write(log.DEBUG, args...)
}

func (l *Logger) Info(args ...any) {
	l.write(log.INFO, args...)
}

func (l *Logger) Warn(args ...any) {
	l.write(log.WARN, args...)
}

func (l *Logger) Error(args ...any) {
	l.write(log.ERROR, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.write(log.DEBUG, fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.write(log.INFO, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.write(log.WARN, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.write(log.ERROR, fmt.Sprintf(format, args...))
}

func (l *Logger) write(level log.Lvl, args ...any) {
	if l == nil || l.Logger == nil || level < l.Level() {
		return
	}
	line := log.JSON{}
	_, file, no, _ := runtime.Caller(2)
	line["file"] = fmt.Sprintf("%s:%d", file, no)
	setLogLine(line, l.fields...)
	setLogLine(line, args...)
	switch level {
	case log.DEBUG:
		l.Logger.Debugj(line)
	case log.INFO:
		l.Logger.Infoj(line)
	case log.WARN:
		l.Logger.Warnj(line)
	default:
		l.Logger.Errorj(line)
	}
}

// LogField represents named field of log line.
type LogField struct {
	Name  string
	Value any
}

func Any(name string, value any) LogField {
	return LogField{Name: name, Value: value}
}

func setLogLine(line log.JSON, args ...any) {
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case string:
			line["message"] = v
		case LogField:
			switch value := v.Value.(type) {
			case time.Duration:
				line[v.Name] = value.String()
			case error:
				line[v.Name] = value.Error()
			default:
				line[v.Name] = value
			}
		case error:
			line["error"] = v.Error()
		default:
			line["value"] = fmt.Sprint(v)
		}
	}
}
