package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is shared by every package, scope it with WithField("scope", ...)
var Log = newLogger(os.Getenv("DEBUG") == "1")

func newLogger(debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:      true,
		DisableTimestamp: true,
	})

	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// Discard mutes the shared logger. Tests call it to keep output clean.
func Discard() {
	Log.SetOutput(io.Discard)
}
