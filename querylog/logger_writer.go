package querylog

import (
	"github.com/sirupsen/logrus"

	"github.com/dnstrail/dnstrail/log"
)

const loggerPrefixLoggerWriter = "query"

type LoggerWriter struct {
	logger *logrus.Entry
}

func NewLoggerWriter() *LoggerWriter {
	return &LoggerWriter{logger: log.PrefixedLog(loggerPrefixLoggerWriter)}
}

func (d *LoggerWriter) Write(entry *Entry) {
	d.logger.WithFields(
		logrus.Fields{
			"cli_ip":  entry.ClientIP,
			"domain":  entry.Domain,
			"mode":    entry.Mode,
			"rtype":   entry.ResponseType,
			"answer":  entry.Answer,
			"time_ms": entry.DurationMs,
		},
	).Infof("")
}

func (d *LoggerWriter) CleanUp() {
	// Nothing to do
}
