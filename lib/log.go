package lib

import (
	"io"
	"os"
	"runtime"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	LogTimeFormat = "2006-01-02T15:04:05.000"
)

func consoleWriter() zerolog.ConsoleWriter {
	if runtime.GOOS == "windows" {
		return zerolog.ConsoleWriter{Out: colorable.NewColorableStderr(), TimeFormat: LogTimeFormat}
	}
	return zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false, TimeFormat: LogTimeFormat}
}

// ZeroConsoleLog logs human readable lines to stderr, keeping stdout for command output.
func ZeroConsoleLog() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(consoleWriter())
}

// ZeroJSONLog logs JSON lines to stderr.
func ZeroJSONLog() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// ZeroConsoleAndFileLog
func ZeroConsoleAndFileLog(filename string) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	logFile, err := os.OpenFile(filename, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		log.Error().Err(err).Msg("Error setting up log config")
		ZeroConsoleLog()
		return
	}

	mw := io.MultiWriter(logFile, consoleWriter())
	log.Logger = zerolog.New(mw).With().Timestamp().Logger()
}
