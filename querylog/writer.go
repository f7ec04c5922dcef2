package querylog

import (
	"time"

	"github.com/dnstrail/dnstrail/config"
)

type Entry struct {
	Start        time.Time
	ClientIP     string
	Domain       string
	Mode         string
	ResponseType string
	DurationMs   int64
	Answer       string
}

type Writer interface {
	Write(entry *Entry)
	CleanUp()
}

// NewWriter creates a query log writer for the configured backend
func NewWriter(cfg config.QueryLogConfig) Writer {
	switch cfg.Type {
	case config.QueryLogTypeDatabase:
		return NewDatabaseWriter(cfg.Target, cfg.LogRetentionDays)
	case config.QueryLogTypeLogger:
		return NewLoggerWriter()
	default:
		return NewNoneWriter()
	}
}
