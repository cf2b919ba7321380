/*************************************************************************
 * Copyright 2026 macrecon authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be
 * found in the LICENSE file.
 **************************************************************************/

// Package logging provides the leveled, structured logger macrecon's
// packages log through. It is adapted from gravwell's ingest/log package:
// same Level ladder and RFC5424 structured-field encoding, collapsed down to
// a single structured-call API since nothing in this engine needs printf-style
// formatting separately from field logging.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
	FATAL
)

func (l Level) String() string {
	switch l {
	case OFF:
		return "OFF"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l Level) valid() bool { return l >= OFF && l <= FATAL }

func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.User | rfc5424.Debug
	case INFO:
		return rfc5424.User | rfc5424.Info
	case WARN:
		return rfc5424.User | rfc5424.Warning
	case ERROR:
		return rfc5424.User | rfc5424.Error
	case CRITICAL:
		return rfc5424.User | rfc5424.Crit
	case FATAL:
		return rfc5424.User | rfc5424.Emergency
	default:
		return rfc5424.User | rfc5424.Debug
	}
}

func LevelFromString(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case "OFF":
		return OFF, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "CRITICAL":
		return CRITICAL, nil
	case "FATAL":
		return FATAL, nil
	default:
		return OFF, ErrInvalidLevel
	}
}

const (
	defaultCallDepth = 3
	structuredDataID = "mr@1"
	maxAppname       = 48
	maxHostname      = 255
)

var (
	ErrNotOpen      = errors.New("logger is not open")
	ErrInvalidLevel = errors.New("invalid log level")
)

// core holds the mutable, shared state of a Logger. Logger itself is a thin
// handle onto a core plus a prefix of fixed fields, so that With() can hand
// back another *Logger (sharing the core) instead of a parallel wrapper
// type -- gravwell's KVLogger is a second struct wrapping *Logger; we fold
// that wrapping into Logger directly.
type core struct {
	mtx      sync.Mutex
	wtrs     []io.WriteCloser
	lvl      Level
	hostname string
	appname  string
	open     bool
}

// Logger is a multi-writer, leveled, structured-field logger.
type Logger struct {
	c      *core
	fields []rfc5424.SDParam
}

// New builds a Logger at INFO level writing to wtr.
func New(wtr io.WriteCloser) *Logger {
	c := &core{wtrs: []io.WriteCloser{wtr}, lvl: INFO, open: true}
	l := &Logger{c: c}
	l.guessIdentity()
	return l
}

// NewFile opens (creating if needed, appending otherwise) f as the first
// writer of a new Logger.
func NewFile(f string) (*Logger, error) {
	fout, err := os.OpenFile(f, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, err
	}
	return New(fout), nil
}

// NewDiscard returns a Logger whose output goes nowhere; useful for tests
// and for components that accept an optional logger.
func NewDiscard() *Logger {
	return New(discardCloser{})
}

func (l *Logger) guessIdentity() {
	if h, err := os.Hostname(); err == nil {
		l.c.hostname = trimLen(maxHostname, h)
	}
	if len(os.Args) > 0 {
		exe := filepath.Base(os.Args[0])
		if ext := filepath.Ext(exe); ext != "" && len(ext) < len(exe) {
			exe = strings.TrimSuffix(exe, ext)
		}
		l.c.appname = trimLen(maxAppname, exe)
	}
}

func (l *Logger) SetAppname(name string) {
	l.c.mtx.Lock()
	l.c.appname = trimLen(maxAppname, name)
	l.c.mtx.Unlock()
}

func (l *Logger) SetLevel(lvl Level) error {
	if !lvl.valid() {
		return ErrInvalidLevel
	}
	l.c.mtx.Lock()
	l.c.lvl = lvl
	l.c.mtx.Unlock()
	return nil
}

func (l *Logger) SetLevelString(s string) error {
	lvl, err := LevelFromString(s)
	if err != nil {
		return err
	}
	return l.SetLevel(lvl)
}

func (l *Logger) GetLevel() Level {
	l.c.mtx.Lock()
	defer l.c.mtx.Unlock()
	return l.c.lvl
}

// AddWriter adds an additional destination for every subsequent log line.
func (l *Logger) AddWriter(wtr io.WriteCloser) error {
	if wtr == nil {
		return errors.New("nil writer")
	}
	l.c.mtx.Lock()
	defer l.c.mtx.Unlock()
	if !l.c.open {
		return ErrNotOpen
	}
	l.c.wtrs = append(l.c.wtrs, wtr)
	return nil
}

func (l *Logger) Close() error {
	l.c.mtx.Lock()
	defer l.c.mtx.Unlock()
	if !l.c.open {
		return ErrNotOpen
	}
	l.c.open = false
	var err error
	for _, w := range l.c.wtrs {
		if cerr := w.Close(); cerr != nil {
			err = cerr
		}
	}
	return err
}

// KV builds a structured-data field pair.
func KV(name string, value interface{}) rfc5424.SDParam {
	switch v := value.(type) {
	case string:
		return rfc5424.SDParam{Name: name, Value: v}
	default:
		return rfc5424.SDParam{Name: name, Value: fmt.Sprintf("%v", v)}
	}
}

// KVErr builds the conventional "error" field.
func KVErr(err error) rfc5424.SDParam { return KV("error", err) }

func (l *Logger) Debug(msg string, sds ...rfc5424.SDParam) error {
	return l.output(defaultCallDepth, DEBUG, msg, sds...)
}
func (l *Logger) Info(msg string, sds ...rfc5424.SDParam) error {
	return l.output(defaultCallDepth, INFO, msg, sds...)
}
func (l *Logger) Warn(msg string, sds ...rfc5424.SDParam) error {
	return l.output(defaultCallDepth, WARN, msg, sds...)
}
func (l *Logger) Error(msg string, sds ...rfc5424.SDParam) error {
	return l.output(defaultCallDepth, ERROR, msg, sds...)
}
func (l *Logger) Critical(msg string, sds ...rfc5424.SDParam) error {
	return l.output(defaultCallDepth, CRITICAL, msg, sds...)
}

// Fatal logs at FATAL and exits the process with code 1. Reserved for
// cmd/macrecon's top level -- library packages should never call it.
func (l *Logger) Fatal(msg string, sds ...rfc5424.SDParam) {
	l.output(defaultCallDepth, FATAL, msg, sds...)
	os.Exit(1)
}

// With returns a derived Logger, sharing this one's core, that prepends a
// fixed set of fields to every subsequent call. Grounded on gravwell's
// KVLogger, folded into Logger itself (sharing core state) rather than a
// parallel wrapper type wrapping *Logger.
func (l *Logger) With(sds ...rfc5424.SDParam) *Logger {
	fields := make([]rfc5424.SDParam, 0, len(l.fields)+len(sds))
	fields = append(fields, l.fields...)
	fields = append(fields, sds...)
	return &Logger{c: l.c, fields: fields}
}

func (l *Logger) output(depth int, lvl Level, msg string, sds ...rfc5424.SDParam) error {
	l.c.mtx.Lock()
	cur := l.c.lvl
	hostname, appname := l.c.hostname, l.c.appname
	l.c.mtx.Unlock()
	if cur == OFF || lvl < cur {
		return nil
	}
	all := sds
	if len(l.fields) > 0 {
		all = make([]rfc5424.SDParam, 0, len(l.fields)+len(sds))
		all = append(all, l.fields...)
		all = append(all, sds...)
	}
	ts := time.Now()
	msgID := callLoc(depth)
	b, err := rfcMessage(ts, lvl.priority(), hostname, appname, msgID, msg, all...)
	if err != nil {
		return err
	}
	return l.write(b)
}

func (l *Logger) write(b []byte) error {
	l.c.mtx.Lock()
	defer l.c.mtx.Unlock()
	if !l.c.open {
		return ErrNotOpen
	}
	var err error
	for _, w := range l.c.wtrs {
		if _, werr := w.Write(b); werr != nil {
			err = werr
			continue
		}
		if _, werr := io.WriteString(w, "\n"); werr != nil {
			err = werr
		}
	}
	return err
}

func rfcMessage(ts time.Time, prio rfc5424.Priority, hostname, appname, msgID, msg string, sds ...rfc5424.SDParam) ([]byte, error) {
	m := rfc5424.Message{
		Priority:  prio,
		Timestamp: ts,
		Hostname:  trimLen(maxHostname, hostname),
		AppName:   trimLen(maxAppname, appname),
		MessageID: trimLen(32, filepath.Base(msgID)),
		Message:   []byte(msg),
	}
	if len(sds) > 0 {
		m.StructuredData = []rfc5424.StructuredData{{ID: structuredDataID, Parameters: sds}}
	}
	return m.MarshalBinary()
}

func callLoc(depth int) string {
	if _, file, line, ok := runtime.Caller(depth); ok {
		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return ""
}

func trimLen(max int, s string) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

type discardCloser struct{}

func (discardCloser) Write(b []byte) (int, error) { return len(b), nil }
func (discardCloser) Close() error                { return nil }
