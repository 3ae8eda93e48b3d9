package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the shared application logger. JSON output so log lines
// stay machine-parseable when the server runs under a supervisor.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}
