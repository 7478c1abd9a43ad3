// Package rlog wraps go-ethereum/log with the fixed set of status-tagged
// helpers the original Python service prints through BaseApp.Emoji/
// print_log: one short emoji-prefixed line per status, so operators scanning
// a scroll of log output can tell a dispatch from a wait from a failure at a
// glance without reading the whole line.
package rlog

import (
	"io"

	"github.com/ethereum/go-ethereum/log"
)

// SetDebug raises the root logger to debug verbosity when enabled, the Go
// counterpart of BaseApp's verbose flag threaded through every print_log
// call in the original Python service.
func SetDebug(enabled bool, w io.Writer) {
	handler := log.NewTerminalHandler(w, true)
	glogger := log.NewGlogHandler(handler)
	if enabled {
		glogger.Verbosity(log.LevelDebug)
	} else {
		glogger.Verbosity(log.LevelInfo)
	}
	log.SetDefault(log.NewLogger(glogger))
}

type Status string

const (
	Main          Status = "main"
	Receive       Status = "receive"
	Success       Status = "success"
	Info          Status = "info"
	Alert         Status = "alert"
	Fail          Status = "fail"
	Wait          Status = "wait"
	Emark         Status = "emark"
	SendTx        Status = "sendTx"
	ReceiveEvent  Status = "receiveEvent"
	BlockFinality Status = "blockFinality"
)

var emoji = map[Status]string{
	Main:          "\U0001F538 ",
	Receive:       "\U0001F4E9 ",
	Success:       "\U0001F7E2 ",
	Info:          "\U0001F535 ",
	Alert:         "\U0001F7E0 ",
	Fail:          "\U0001F534 ",
	Wait:          "⏳ ",
	Emark:         "❕ ",
	SendTx:        "\U0001F7E3 ",
	ReceiveEvent:  "\U0001F535 ",
	BlockFinality: "\U0001F7E1 ",
}

// Logger wraps a go-ethereum/log.Logger and prefixes every message with the
// given status's emoji tag before delegating to the leveled logger. One
// Logger per component, the way each class in base_logging.py gets its own
// named logger.
type Logger struct {
	inner log.Logger
}

// New creates a component logger, mirroring log.NewModuleLogger.
func New(component string) Logger {
	return Logger{inner: log.New("component", component)}
}

func (l Logger) Log(status Status, msg string, ctx ...interface{}) {
	l.inner.Info(emoji[status]+msg, ctx...)
}

func (l Logger) Debug(msg string, ctx ...interface{}) { l.inner.Debug(msg, ctx...) }
func (l Logger) Warn(status Status, msg string, ctx ...interface{}) {
	l.inner.Warn(emoji[status]+msg, ctx...)
}
func (l Logger) Error(status Status, msg string, ctx ...interface{}) {
	l.inner.Error(emoji[status]+msg, ctx...)
}
