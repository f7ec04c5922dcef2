package querylog

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dnstrail/dnstrail/log"
	"github.com/dnstrail/dnstrail/util"
)

type logEntry struct {
	RequestTS    *time.Time `gorm:"index"`
	ClientIP     string
	Domain       string `gorm:"index"`
	Mode         string
	ResponseType string `gorm:"index"`
	DurationMs   int64
	Answer       string
}

type DatabaseWriter struct {
	db               *gorm.DB
	logRetentionDays int
}

func NewDatabaseWriter(target string, logRetentionDays uint64) *DatabaseWriter {
	return newDatabaseWriter(sqlite.Open(target), logRetentionDays)
}

func newDatabaseWriter(target gorm.Dialector, logRetentionDays uint64) *DatabaseWriter {
	db, err := gorm.Open(target, &gorm.Config{})
	if err != nil {
		util.FatalOnError("can't create database connection", err)

		return nil
	}

	// Migrate the schema
	util.FatalOnError("can't perform auto migration", db.AutoMigrate(&logEntry{}))

	return &DatabaseWriter{
		db:               db,
		logRetentionDays: int(logRetentionDays),
	}
}

func (d *DatabaseWriter) Write(entry *Entry) {
	start := entry.Start

	d.db.Create(&logEntry{
		RequestTS:    &start,
		ClientIP:     entry.ClientIP,
		Domain:       entry.Domain,
		Mode:         entry.Mode,
		ResponseType: entry.ResponseType,
		DurationMs:   entry.DurationMs,
		Answer:       entry.Answer,
	})
}

func (d *DatabaseWriter) CleanUp() {
	deletionDate := time.Now().AddDate(0, 0, -d.logRetentionDays)

	log.PrefixedLog("database_writer").Debugf("deleting log entries with request_ts < %s", deletionDate)
	d.db.Where("request_ts < ?", deletionDate).Delete(&logEntry{})
}
