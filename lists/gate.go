// Package lists implements the access gate: a membership test of domains
// against deny/allow lists with idempotent runtime mutations.
package lists

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dnstrail/dnstrail/config"
	"github.com/dnstrail/dnstrail/evt"
	"github.com/dnstrail/dnstrail/log"
	"github.com/dnstrail/dnstrail/util"
)

// Decision is the result of one gate check
type Decision struct {
	Blocked bool
	Reason  string
}

// Gate checks domains against the current deny/allow snapshot. If the allow
// set is non-empty, only listed domains pass, otherwise any domain not on the
// deny set passes.
type Gate struct {
	lock sync.RWMutex

	// local carries the persisted deny file plus runtime block/unblock
	// mutations, static carries the read-only configured sources
	local  map[string]struct{}
	static map[string]struct{}
	allow  map[string]struct{}

	cfg config.BlockingConfig
}

func logger() *logrus.Entry {
	return log.PrefixedLog("access_gate")
}

// NewGate creates a gate instance, seeds it from the deny file and the
// configured sources and starts the periodic source refresh.
func NewGate(cfg config.BlockingConfig) *Gate {
	g := &Gate{
		local:  make(map[string]struct{}),
		static: make(map[string]struct{}),
		allow:  make(map[string]struct{}),
		cfg:    cfg,
	}

	g.loadLocal()
	g.RefreshLists()

	if cfg.RefreshPeriod.IsAboveZero() {
		go periodicRefresh(g, cfg.RefreshPeriod.ToDuration())
	}

	return g
}

func periodicRefresh(g *Gate, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		<-ticker.C
		g.RefreshLists()
	}
}

func (g *Gate) loadLocal() {
	entries, err := readSource(g.cfg.DenyFile, g.cfg)
	if err != nil {
		logger().Warnf("can't read deny file '%s', starting empty: %v", g.cfg.DenyFile, err)

		return
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	for _, domain := range entries {
		g.local[domain] = struct{}{}
	}
}

// RefreshLists re-imports the configured deny/allow sources without dropping
// runtime additions.
func (g *Gate) RefreshLists() {
	static := importSources(g.cfg.DenySources, g.cfg)
	allow := importSources(g.cfg.AllowSources, g.cfg)

	g.lock.Lock()
	g.static = static
	g.allow = allow
	count := len(g.local) + len(g.static)
	g.lock.Unlock()

	evt.Bus().Publish(evt.BlockingListChanged, count)
}

func importSources(sources []string, cfg config.BlockingConfig) map[string]struct{} {
	result := make(map[string]struct{})

	for _, source := range sources {
		entries, err := readSource(source, cfg)
		if err != nil {
			logger().Warnf("can't import source '%s', keeping previous entries: %v", source, err)

			continue
		}

		for _, domain := range entries {
			result[domain] = struct{}{}
		}

		logger().WithFields(logrus.Fields{
			"source": source,
			"count":  len(entries),
		}).Info("list source imported")
	}

	return result
}

// Check tests the domain against the current snapshot. It is evaluated before
// any cache or network access, a blocked domain never gets further.
func (g *Gate) Check(domain string) Decision {
	domain = util.NormalizeDomain(domain)

	g.lock.RLock()
	defer g.lock.RUnlock()

	if len(g.allow) > 0 && !matches(domain, g.allow) {
		return Decision{Blocked: true, Reason: "not-allowlisted"}
	}

	if matches(domain, g.local) || matches(domain, g.static) {
		return Decision{Blocked: true, Reason: "denylist"}
	}

	return Decision{}
}

// matches reports whether the domain equals an entry or is a subdomain of one
func matches(domain string, set map[string]struct{}) bool {
	if len(set) == 0 {
		return false
	}

	labels := strings.Split(domain, ".")
	for i := range labels {
		if _, found := set[strings.Join(labels[i:], ".")]; found {
			return true
		}
	}

	return false
}

// Block adds the domain to the deny list. Blocking an already blocked domain
// succeeds silently.
func (g *Gate) Block(domain string) error {
	domain = util.NormalizeDomain(domain)
	if domain == "" {
		return nil
	}

	g.lock.Lock()

	if _, found := g.local[domain]; found {
		g.lock.Unlock()

		return nil
	}

	g.local[domain] = struct{}{}
	err := g.persistLocal()
	count := len(g.local) + len(g.static)
	g.lock.Unlock()

	evt.Bus().Publish(evt.BlockingListChanged, count)

	return err
}

// Unblock removes the domain from the deny list. Unblocking an absent domain
// succeeds silently.
func (g *Gate) Unblock(domain string) error {
	domain = util.NormalizeDomain(domain)

	g.lock.Lock()

	if _, found := g.local[domain]; !found {
		g.lock.Unlock()

		return nil
	}

	delete(g.local, domain)
	err := g.persistLocal()
	count := len(g.local) + len(g.static)
	g.lock.Unlock()

	evt.Bus().Publish(evt.BlockingListChanged, count)

	return err
}

// persistLocal writes the runtime deny set to the deny file, callers must
// hold the write lock
func (g *Gate) persistLocal() error {
	var sb strings.Builder

	for _, domain := range util.SortedKeys(g.local) {
		sb.WriteString(domain)
		sb.WriteString("\n")
	}

	return util.WriteFileAtomic(g.cfg.DenyFile, []byte(sb.String()))
}

// BlockedDomains returns all deny entries in lexical order
func (g *Gate) BlockedDomains() []string {
	g.lock.RLock()
	defer g.lock.RUnlock()

	union := make(map[string]struct{}, len(g.local)+len(g.static))
	for domain := range g.local {
		union[domain] = struct{}{}
	}

	for domain := range g.static {
		union[domain] = struct{}{}
	}

	return util.SortedKeys(union)
}

// Configuration returns the current gate configuration and stats
func (g *Gate) Configuration() (result []string) {
	g.lock.RLock()
	defer g.lock.RUnlock()

	result = append(result, "deny file = "+g.cfg.DenyFile)

	if g.cfg.RefreshPeriod.IsAboveZero() {
		result = append(result, "refresh period = "+g.cfg.RefreshPeriod.String())
	} else {
		result = append(result, "refresh: disabled")
	}

	result = append(result,
		fmt.Sprintf("deny entries = %d", len(g.local)+len(g.static)),
		fmt.Sprintf("allow entries = %d", len(g.allow)))

	return
}
