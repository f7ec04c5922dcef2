package querylog

import (
	"os"
	"path/filepath"
	"time"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"

	"github.com/dnstrail/dnstrail/config"
)

var _ = ginkgo.Describe("DatabaseWriter", func() {
	var (
		dir string
		sut *DatabaseWriter
	)

	ginkgo.BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "querylog")
		Expect(err).Should(Succeed())

		sut = newDatabaseWriter(sqlite.Open(filepath.Join(dir, "querylog.db")), 7)
	})

	ginkgo.AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	ginkgo.It("should persist written entries", func() {
		sut.Write(&Entry{
			Start:        time.Now(),
			ClientIP:     "192.0.2.1",
			Domain:       "example.com",
			Mode:         "recursive",
			ResponseType: "RESOLVED",
			DurationMs:   12,
			Answer:       "A (1.2.3.4)",
		})

		var count int64
		sut.db.Model(&logEntry{}).Count(&count)
		Expect(count).Should(Equal(int64(1)))
	})

	ginkgo.It("should delete entries past the retention period on cleanup", func() {
		old := time.Now().AddDate(0, 0, -10)
		sut.Write(&Entry{Start: old, Domain: "old.com"})
		sut.Write(&Entry{Start: time.Now(), Domain: "new.com"})

		sut.CleanUp()

		var count int64
		sut.db.Model(&logEntry{}).Count(&count)
		Expect(count).Should(Equal(int64(1)))

		var remaining logEntry
		sut.db.First(&remaining)
		Expect(remaining.Domain).Should(Equal("new.com"))
	})
})

var _ = ginkgo.Describe("Writer factory", func() {
	ginkgo.It("should create the none writer by default", func() {
		writer := NewWriter(config.QueryLogConfig{Type: config.QueryLogTypeNone})
		Expect(writer).Should(BeAssignableToTypeOf(&NoneWriter{}))
	})
	ginkgo.It("should create the logger writer", func() {
		writer := NewWriter(config.QueryLogConfig{Type: config.QueryLogTypeLogger})
		Expect(writer).Should(BeAssignableToTypeOf(&LoggerWriter{}))
	})
})
