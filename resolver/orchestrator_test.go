package resolver

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"

	"github.com/dnstrail/dnstrail/cache/resultcache"
	"github.com/dnstrail/dnstrail/config"
	"github.com/dnstrail/dnstrail/lists"
	"github.com/dnstrail/dnstrail/model"
)

var _ = Describe("Orchestrator", func() {
	var (
		dir        string
		cfg        config.Config
		gate       *lists.Gate
		cache      *resultcache.ResultCache
		mockClient *MockRecordClient
		sut        *Orchestrator
	)

	newRequest := func(domain string, mode model.Mode) *model.Request {
		return &model.Request{
			Domain:    domain,
			Mode:      mode,
			RequestTS: time.Now(),
		}
	}

	success := func(ttl uint32, values ...string) Outcome {
		return Outcome{Kind: OutcomeSuccess, Values: values, TTL: ttl}
	}

	stepNames := func(steps []model.Step) []string {
		names := make([]string, 0, len(steps))
		for _, s := range steps {
			names = append(names, s.Name)
		}

		return names
	}

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "orchestrator")
		Expect(err).Should(Succeed())

		cfg, err = config.NewConfig("/does/not/exist.yml")
		Expect(err).Should(Succeed())

		gate = lists.NewGate(config.BlockingConfig{
			DenyFile: filepath.Join(dir, "denylist.txt"),
		})
		cache = resultcache.New(filepath.Join(dir, "cache.json"))
		mockClient = &MockRecordClient{}

		sut = NewOrchestrator(&cfg, gate, cache, mockClient, nil)
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	Describe("Recursive mode", func() {
		BeforeEach(func() {
			mockClient.On("Query", "example.com", model.RecordTypeA).Return(success(120, "1.2.3.4"))
			mockClient.On("Query", mock.Anything, mock.Anything).Return(Outcome{Kind: OutcomeNoRecords})
		})

		It("should resolve a cache miss via the client", func() {
			response, err := sut.Resolve(newRequest("example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeRESOLVED))
			Expect(response.Cached).Should(BeFalse())
			Expect(response.Records[model.RecordTypeA]).Should(Equal([]string{"1.2.3.4"}))
			Expect(response.TTL).Should(Equal(uint32(120)))

			Expect(stepNames(response.Steps)).Should(Equal([]string{
				model.StepAccessControl,
				model.StepCacheLookup,
				model.StepDNSQuery,
				model.StepCacheUpdate,
			}))
			Expect(response.Steps[1].Status).Should(Equal(model.StatusMiss))

			Expect(response.Timings).Should(HaveKey(model.TimingTotal))
			Expect(response.Timings).Should(HaveKey(model.TimingDNSQuery))
			Expect(response.Timings).Should(HaveKey(model.TimingClientToAccess))
			Expect(response.Timings).Should(HaveKey(model.TimingAccessToCache))
		})

		It("should answer the second request from the cache", func() {
			_, err := sut.Resolve(newRequest("example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			response, err := sut.Resolve(newRequest("example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeCACHED))
			Expect(response.Cached).Should(BeTrue())
			Expect(response.Records[model.RecordTypeA]).Should(Equal([]string{"1.2.3.4"}))

			Expect(stepNames(response.Steps)).Should(Equal([]string{
				model.StepAccessControl,
				model.StepCacheLookup,
			}))
			Expect(response.Steps[1].Status).Should(Equal(model.StatusHit))
		})

		It("should report all record types in the response table", func() {
			response, err := sut.Resolve(newRequest("example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			Expect(response.Records).Should(HaveLen(len(model.RecordTypes)))
			Expect(response.Records[model.RecordTypeMX]).Should(BeEmpty())
		})
	})

	Describe("TTL selection", func() {
		It("should fall back to the default TTL without a usable answer TTL", func() {
			mockClient.On("Query", "example.com", model.RecordTypeA).Return(success(0, "1.2.3.4"))
			mockClient.On("Query", mock.Anything, mock.Anything).Return(Outcome{Kind: OutcomeNoRecords})

			response, err := sut.Resolve(newRequest("example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			Expect(response.TTL).Should(Equal(cfg.Caching.DefaultTTL.SecondsU32()))
		})
		It("should use the default TTL when only non-A types answered", func() {
			mockClient.On("Query", "example.com", model.RecordTypeA).Return(Outcome{Kind: OutcomeNoRecords})
			mockClient.On("Query", "example.com", model.RecordTypeTXT).Return(success(30, "v=spf1"))
			mockClient.On("Query", mock.Anything, mock.Anything).Return(Outcome{Kind: OutcomeNoRecords})

			response, err := sut.Resolve(newRequest("example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeRESOLVED))
			Expect(response.Records[model.RecordTypeTXT]).Should(Equal([]string{"v=spf1"}))
			Expect(response.TTL).Should(Equal(cfg.Caching.DefaultTTL.SecondsU32()))
		})
	})

	Describe("Blocked domain", func() {
		BeforeEach(func() {
			Expect(gate.Block("ads.example.com")).Should(Succeed())
		})

		It("should answer with a single access step and no records", func() {
			response, err := sut.Resolve(newRequest("ads.example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeBLOCKED))
			Expect(response.Blocked).Should(BeTrue())

			Expect(response.Steps).Should(HaveLen(1))
			Expect(response.Steps[0].Name).Should(Equal(model.StepAccessControl))
			Expect(response.Steps[0].Status).Should(Equal(model.StatusBlocked))

			for _, values := range response.Records {
				Expect(values).Should(BeEmpty())
			}
		})
		It("should not touch cache or client", func() {
			_, err := sut.Resolve(newRequest("ads.example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			Expect(cache.TotalCount()).Should(Equal(0))
			Expect(mockClient.Calls).Should(BeEmpty())
		})
	})

	Describe("NXDOMAIN", func() {
		BeforeEach(func() {
			mockClient.On("Query", mock.Anything, mock.Anything).Return(Outcome{Kind: OutcomeNameError})
		})

		It("should classify and cache the negative answer", func() {
			response, err := sut.Resolve(newRequest("gone.example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeNXDOMAIN))
			Expect(stepNames(response.Steps)).Should(ContainElement(model.StepCacheUpdate))

			entry, found := cache.Lookup("gone.example.com")
			Expect(found).Should(BeTrue())
			Expect(entry.Negative).Should(BeTrue())
		})
		It("should answer a repeated request from the negative cache", func() {
			_, err := sut.Resolve(newRequest("gone.example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			calls := len(mockClient.Calls)

			response, err := sut.Resolve(newRequest("gone.example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeNXDOMAIN))
			Expect(response.Cached).Should(BeTrue())
			Expect(mockClient.Calls).Should(HaveLen(calls))
		})
	})

	Describe("Timeout", func() {
		BeforeEach(func() {
			mockClient.On("Query", mock.Anything, mock.Anything).Return(Outcome{Kind: OutcomeTimeout})
		})

		It("should classify the timeout and leave the cache untouched", func() {
			response, err := sut.Resolve(newRequest("slow.example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeTIMEOUT))
			Expect(cache.TotalCount()).Should(Equal(0))
		})
		It("should not retry the query", func() {
			_, err := sut.Resolve(newRequest("slow.example.com", model.ModeRecursive))
			Expect(err).Should(Succeed())

			Expect(mockClient.Calls).Should(HaveLen(1))
		})
	})

	Describe("Iterative mode", func() {
		It("should trace the hierarchy hops with their timings", func() {
			mockClient.On("Query", "com.", model.RecordTypeNS).
				Return(success(0, "a.gtld-servers.net"))
			mockClient.On("Query", "example.com", model.RecordTypeNS).
				Return(success(0, "ns1.example.com"))
			mockClient.On("Query", "example.com", model.RecordTypeA).
				Return(success(240, "1.2.3.4"))
			mockClient.On("Query", mock.Anything, mock.Anything).
				Return(Outcome{Kind: OutcomeNoRecords})

			response, err := sut.Resolve(newRequest("example.com", model.ModeIterative))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeRESOLVED))
			Expect(response.TTL).Should(Equal(uint32(240)))
			Expect(response.Records[model.RecordTypeA]).Should(Equal([]string{"1.2.3.4"}))
			Expect(response.Records[model.RecordTypeNS]).Should(Equal([]string{"ns1.example.com"}))

			Expect(stepNames(response.Steps)).Should(Equal([]string{
				model.StepAccessControl,
				model.StepCacheLookup,
				model.StepRootQuery,
				model.StepTLDQuery,
				model.StepAuthQuery,
				model.StepDNSQuery,
				model.StepCacheUpdate,
			}))

			Expect(response.Timings).Should(HaveKey(model.TimingCacheToRoot))
			Expect(response.Timings).Should(HaveKey(model.TimingRootToTLD))
			Expect(response.Timings).Should(HaveKey(model.TimingTLDToAuth))
			Expect(response.Timings).Should(HaveKey(model.TimingAuthToIP))
		})

		It("should stop at the authoritative hop on NXDOMAIN", func() {
			mockClient.On("Query", "com.", model.RecordTypeNS).
				Return(success(0, "a.gtld-servers.net"))
			mockClient.On("Query", "gone.example.com", model.RecordTypeNS).
				Return(Outcome{Kind: OutcomeNoRecords})
			mockClient.On("Query", "gone.example.com", model.RecordTypeA).
				Return(Outcome{Kind: OutcomeNameError})

			response, err := sut.Resolve(newRequest("gone.example.com", model.ModeIterative))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeNXDOMAIN))

			names := stepNames(response.Steps)
			Expect(names).Should(ContainElement(model.StepAuthQuery))
			Expect(names).ShouldNot(ContainElement(model.StepDNSQuery))

			entry, found := cache.Lookup("gone.example.com")
			Expect(found).Should(BeTrue())
			Expect(entry.Negative).Should(BeTrue())
		})
	})

	Describe("Multi mode", func() {
		It("should report both families and the faster one", func() {
			mockClient.On("Query", "example.com", model.RecordTypeA).
				Return(success(120, "1.2.3.4"))
			mockClient.On("Query", "example.com", model.RecordTypeAAAA).
				Return(success(120, "2001:db8::1")).
				Run(func(mock.Arguments) { time.Sleep(30 * time.Millisecond) })
			mockClient.On("Query", mock.Anything, mock.Anything).
				Return(Outcome{Kind: OutcomeNoRecords})

			response, err := sut.Resolve(newRequest("example.com", model.ModeMulti))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeRESOLVED))
			Expect(response.Multi).ShouldNot(BeNil())
			Expect(response.Multi.A).Should(Equal([]string{"1.2.3.4"}))
			Expect(response.Multi.AAAA).Should(Equal([]string{"2001:db8::1"}))
			Expect(response.Multi.Faster).Should(Equal("A"))
			Expect(response.Multi.LatencyMs).Should(HaveKey("total"))

			Expect(response.Records[model.RecordTypeA]).Should(Equal([]string{"1.2.3.4"}))
			Expect(response.Records[model.RecordTypeAAAA]).Should(Equal([]string{"2001:db8::1"}))
		})

		It("should declare the sole succeeding family the winner", func() {
			mockClient.On("Query", "example.com", model.RecordTypeA).
				Return(Outcome{Kind: OutcomeNoRecords})
			mockClient.On("Query", "example.com", model.RecordTypeAAAA).
				Return(success(120, "2001:db8::1"))
			mockClient.On("Query", mock.Anything, mock.Anything).
				Return(Outcome{Kind: OutcomeNoRecords})

			response, err := sut.Resolve(newRequest("example.com", model.ModeMulti))
			Expect(err).Should(Succeed())

			Expect(response.Multi.Faster).Should(Equal("AAAA"))
		})

		It("should resolve when only one family signals NXDOMAIN", func() {
			mockClient.On("Query", "example.com", model.RecordTypeA).
				Return(Outcome{Kind: OutcomeNameError})
			mockClient.On("Query", "example.com", model.RecordTypeAAAA).
				Return(success(120, "2001:db8::1"))
			mockClient.On("Query", mock.Anything, mock.Anything).
				Return(Outcome{Kind: OutcomeNoRecords})

			response, err := sut.Resolve(newRequest("example.com", model.ModeMulti))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeRESOLVED))
			Expect(response.Records[model.RecordTypeAAAA]).Should(Equal([]string{"2001:db8::1"}))
		})

		It("should classify NXDOMAIN when both families are negative", func() {
			mockClient.On("Query", mock.Anything, mock.Anything).
				Return(Outcome{Kind: OutcomeNameError})

			response, err := sut.Resolve(newRequest("gone.example.com", model.ModeMulti))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeNXDOMAIN))
			Expect(response.Multi).ShouldNot(BeNil())
			Expect(response.Multi.Faster).Should(BeEmpty())

			entry, found := cache.Lookup("gone.example.com")
			Expect(found).Should(BeTrue())
			Expect(entry.Negative).Should(BeTrue())
		})

		It("should classify TIMEOUT when both families time out", func() {
			mockClient.On("Query", mock.Anything, mock.Anything).
				Return(Outcome{Kind: OutcomeTimeout})

			response, err := sut.Resolve(newRequest("slow.example.com", model.ModeMulti))
			Expect(err).Should(Succeed())

			Expect(response.RType).Should(Equal(model.ResponseTypeTIMEOUT))
			Expect(cache.TotalCount()).Should(Equal(0))
		})
	})

	Describe("Configuration", func() {
		It("should list the supported modes", func() {
			c := sut.Configuration()
			Expect(c).Should(ContainElement("- recursive"))
			Expect(c).Should(ContainElement("- iterative"))
			Expect(c).Should(ContainElement("- multi"))
		})
	})
})
