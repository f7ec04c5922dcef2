package config

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	When("the config file is missing", func() {
		It("should start with defaults", func() {
			cfg, err := NewConfig("/does/not/exist.yml")
			Expect(err).Should(Succeed())

			Expect(cfg.Upstreams).Should(Equal([]string{"8.8.8.8:53", "1.1.1.1:53"}))
			Expect(cfg.HTTPPort).Should(Equal(uint16(4000)))
			Expect(cfg.QueryTimeout.ToDuration()).Should(Equal(3 * time.Second))
			Expect(cfg.Caching.DefaultTTL.ToDuration()).Should(Equal(time.Hour))
			Expect(cfg.Caching.NegativeTTL.ToDuration()).Should(Equal(5 * time.Minute))
			Expect(cfg.QueryLog.Type).Should(Equal(QueryLogTypeNone))
			Expect(cfg.LogLevel).Should(Equal("info"))
		})
		It("should keep the negative TTL shorter than the positive default", func() {
			cfg, err := NewConfig("/does/not/exist.yml")
			Expect(err).Should(Succeed())
			Expect(cfg.Caching.NegativeTTL.ToDuration()).
				Should(BeNumerically("<", cfg.Caching.DefaultTTL.ToDuration()))
		})
	})

	When("a config file is present", func() {
		var file *os.File

		AfterEach(func() {
			if file != nil {
				_ = os.Remove(file.Name())
			}
		})

		It("should read the values", func() {
			file = writeConfig(`
upstreams:
  - 9.9.9.9
httpPort: 5300
queryTimeout: 1s
caching:
  defaultTTL: 30m
  negativeTTL: 1m
blocking:
  denyFile: /tmp/deny.txt
queryLog:
  type: logger
`)
			cfg, err := NewConfig(file.Name())
			Expect(err).Should(Succeed())

			Expect(cfg.Upstreams).Should(Equal([]string{"9.9.9.9"}))
			Expect(cfg.HTTPPort).Should(Equal(uint16(5300)))
			Expect(cfg.QueryTimeout.ToDuration()).Should(Equal(time.Second))
			Expect(cfg.Caching.DefaultTTL.ToDuration()).Should(Equal(30 * time.Minute))
			Expect(cfg.Caching.NegativeTTL.ToDuration()).Should(Equal(time.Minute))
			Expect(cfg.Blocking.DenyFile).Should(Equal("/tmp/deny.txt"))
			Expect(cfg.QueryLog.Type).Should(Equal(QueryLogTypeLogger))
		})

		It("should reject an unknown key", func() {
			file = writeConfig("noSuchOption: true\n")
			_, err := NewConfig(file.Name())
			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).Should(ContainSubstring("wrong file structure"))
		})

		It("should reject a malformed duration", func() {
			file = writeConfig("queryTimeout: fast\n")
			_, err := NewConfig(file.Name())
			Expect(err).Should(HaveOccurred())
		})
	})

	Describe("Duration", func() {
		It("should parse duration strings", func() {
			var d Duration
			Expect(d.UnmarshalText([]byte("90s"))).Should(Succeed())
			Expect(d.ToDuration()).Should(Equal(90 * time.Second))
			Expect(d.SecondsU32()).Should(Equal(uint32(90)))
			Expect(d.IsAboveZero()).Should(BeTrue())
		})
		It("should render a human readable form", func() {
			d := Duration(5 * time.Minute)
			Expect(d.String()).Should(Equal("5 minutes"))
		})
	})
})

func writeConfig(content string) *os.File {
	f, err := os.CreateTemp("", "config")
	Expect(err).Should(Succeed())

	_, err = f.WriteString(content)
	Expect(err).Should(Succeed())

	return f
}
