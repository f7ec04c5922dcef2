package model

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Data types", func() {
	Describe("Mode", func() {
		It("should parse the known modes", func() {
			m, err := ParseMode("recursive")
			Expect(err).Should(Succeed())
			Expect(m).Should(Equal(ModeRecursive))

			m, err = ParseMode("iterative")
			Expect(err).Should(Succeed())
			Expect(m).Should(Equal(ModeIterative))

			m, err = ParseMode("Multi")
			Expect(err).Should(Succeed())
			Expect(m).Should(Equal(ModeMulti))
		})
		It("should default an empty mode to recursive", func() {
			m, err := ParseMode("")
			Expect(err).Should(Succeed())
			Expect(m).Should(Equal(ModeRecursive))
		})
		It("should reject an unknown mode", func() {
			_, err := ParseMode("turbo")
			Expect(err).Should(HaveOccurred())
		})
		It("should marshal to its external name", func() {
			data, err := json.Marshal(ModeIterative)
			Expect(err).Should(Succeed())
			Expect(string(data)).Should(Equal(`"iterative"`))
		})
	})

	Describe("ResponseType", func() {
		It("should render the terminal condition names", func() {
			Expect(ResponseTypeRESOLVED.String()).Should(Equal("RESOLVED"))
			Expect(ResponseTypeCACHED.String()).Should(Equal("CACHED"))
			Expect(ResponseTypeBLOCKED.String()).Should(Equal("BLOCKED"))
			Expect(ResponseTypeNXDOMAIN.String()).Should(Equal("NXDOMAIN"))
			Expect(ResponseTypeTIMEOUT.String()).Should(Equal("TIMEOUT"))
		})
	})

	Describe("Record table helpers", func() {
		It("should create an empty table with all known types", func() {
			records := EmptyRecords()
			Expect(records).Should(HaveLen(len(RecordTypes)))

			for _, rt := range RecordTypes {
				Expect(records[rt]).Should(BeEmpty())
				Expect(records[rt]).ShouldNot(BeNil())
			}
		})
		It("should normalize a partial table", func() {
			records := NormalizeRecords(Records{RecordTypeA: {"1.2.3.4"}})
			Expect(records[RecordTypeA]).Should(Equal([]string{"1.2.3.4"}))
			Expect(records[RecordTypeMX]).Should(BeEmpty())
			Expect(records).Should(HaveLen(len(RecordTypes)))
		})
		It("should render a compact log line", func() {
			records := Records{
				RecordTypeA:  {"1.2.3.4", "5.6.7.8"},
				RecordTypeMX: {"10 mail.example.com"},
			}
			Expect(RecordsToString(records)).
				Should(Equal("A (1.2.3.4, 5.6.7.8), MX (10 mail.example.com)"))
		})
		It("should pick the first address with A preferred", func() {
			Expect(FirstAddress(Records{
				RecordTypeA:    {"1.2.3.4"},
				RecordTypeAAAA: {"::1"},
			})).Should(Equal("1.2.3.4"))

			Expect(FirstAddress(Records{
				RecordTypeAAAA: {"::1"},
			})).Should(Equal("::1"))

			Expect(FirstAddress(EmptyRecords())).Should(BeEmpty())
		})
		It("should list present types in query order", func() {
			records := Records{
				RecordTypeTXT: {"v=spf1"},
				RecordTypeA:   {"1.2.3.4"},
			}
			Expect(PresentTypes(records)).Should(Equal([]RecordType{RecordTypeA, RecordTypeTXT}))
		})
	})
})
