package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Configure sets up the process-wide logger: level from the debug flag,
// output tee'd to stderr and an append-only transcript file so every run
// leaves a reviewable trace.
func Configure(logFile string, debug bool) (io.Closer, error) {
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	logrus.SetOutput(io.MultiWriter(os.Stderr, file))
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	return file, nil
}
