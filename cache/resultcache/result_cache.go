// Package resultcache implements the TTL based resolution cache: an in-memory
// LRU keyed by domain, mirrored to a durable JSON file with atomic replacement.
package resultcache

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/dnstrail/dnstrail/evt"
	"github.com/dnstrail/dnstrail/log"
	"github.com/dnstrail/dnstrail/model"
	"github.com/dnstrail/dnstrail/util"
)

const (
	defaultMaxSize     = 10_000
	defaultNegativeTTL = 5 * time.Minute
)

// Entry is one cached resolution result. An entry is valid iff
// now < FetchedAt + TTL, an expired entry is treated as a miss.
type Entry struct {
	Records   model.Records `json:"records"`
	FetchedAt int64         `json:"timestamp"`
	TTL       uint32        `json:"ttl"`

	// Negative marks a remembered NXDOMAIN: no records because the name does
	// not exist, as opposed to no records of a type being present
	Negative bool `json:"negative,omitempty"`
}

// ExpiresAt returns the absolute expiry time in epoch seconds
func (e *Entry) ExpiresAt() int64 {
	return e.FetchedAt + int64(e.TTL)
}

// RemainingSeconds returns the seconds until expiry, floored at 0
func (e *Entry) RemainingSeconds(now time.Time) int64 {
	remaining := e.ExpiresAt() - now.Unix()
	if remaining < 0 {
		return 0
	}

	return remaining
}

func (e *Entry) isValid(now time.Time) bool {
	return now.Unix() < e.ExpiresAt()
}

// EntrySummary is the administrative view of one valid cache entry
type EntrySummary struct {
	Domain           string             `json:"domain"`
	FirstValue       string             `json:"first_ip"`
	RemainingSeconds int64              `json:"remaining_seconds"`
	TTL              uint32             `json:"ttl"`
	ExpiresAt        int64              `json:"expires_at"`
	Types            []model.RecordType `json:"types"`
}

// ResultCache is the domain keyed TTL cache with write-through persistence.
// Concurrent readers are allowed, mutations are serialized, one writer at a
// time against the durable file.
type ResultCache struct {
	lock        sync.RWMutex
	entries     *lru.Cache
	filePath    string
	negativeTTL time.Duration
	now         func() time.Time
}

// Option configures the cache instance
type Option func(c *ResultCache)

// WithMaxSize limits the number of resident entries
func WithMaxSize(size uint) Option {
	return func(c *ResultCache) {
		if size > 0 {
			l, _ := lru.New(int(size))
			c.entries = l
		}
	}
}

// WithNegativeTTL sets the TTL for remembered NXDOMAIN entries
func WithNegativeTTL(ttl time.Duration) Option {
	return func(c *ResultCache) {
		if ttl > 0 {
			c.negativeTTL = ttl
		}
	}
}

// WithClock overrides the time source, used in tests
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) {
		c.now = now
	}
}

func logger() *logrus.Entry {
	return log.PrefixedLog("result_cache")
}

// New creates a cache instance and seeds it from the durable file. An absent
// or unparseable file starts an empty cache, startup never fails on it.
func New(filePath string, options ...Option) *ResultCache {
	l, _ := lru.New(defaultMaxSize)
	c := &ResultCache{
		entries:     l,
		filePath:    filePath,
		negativeTTL: defaultNegativeTTL,
		now:         time.Now,
	}

	for _, opt := range options {
		opt(c)
	}

	c.load()

	return c
}

func (c *ResultCache) load() {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger().Warnf("can't read cache file '%s', starting empty: %v", c.filePath, err)
		}

		return
	}

	var stored map[string]*Entry
	if err := json.Unmarshal(data, &stored); err != nil {
		logger().Warnf("can't parse cache file '%s', starting empty: %v", c.filePath, err)

		return
	}

	now := c.now()
	count := 0

	for domain, entry := range stored {
		if entry != nil && entry.isValid(now) {
			c.entries.Add(util.NormalizeDomain(domain), entry)
			count++
		}
	}

	logger().Infof("loaded %d valid entries from '%s'", count, c.filePath)
}

// Lookup returns the entry for the domain. A hit requires the entry to exist
// and to be valid, an expired entry is reported as a miss even though it may
// still be resident.
func (c *ResultCache) Lookup(domain string) (*Entry, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	val, found := c.entries.Get(util.NormalizeDomain(domain))
	if !found {
		return nil, false
	}

	entry := val.(*Entry)
	if !entry.isValid(c.now()) {
		return nil, false
	}

	return entry, true
}

// Store replaces any prior entry for the domain unconditionally, last writer
// wins, record types are never merged across calls.
func (c *ResultCache) Store(domain string, records model.Records, ttl uint32) {
	c.put(util.NormalizeDomain(domain), &Entry{
		Records:   records,
		FetchedAt: c.now().Unix(),
		TTL:       ttl,
	})
}

// StoreNegative remembers an NXDOMAIN answer with the short negative TTL
func (c *ResultCache) StoreNegative(domain string) {
	c.put(util.NormalizeDomain(domain), &Entry{
		Records:   model.EmptyRecords(),
		FetchedAt: c.now().Unix(),
		TTL:       uint32(c.negativeTTL.Seconds()),
		Negative:  true,
	})
}

func (c *ResultCache) put(domain string, entry *Entry) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.evictExpired()
	c.entries.Add(domain, entry)

	c.persist()

	evt.Bus().Publish(evt.CachingResultCacheChanged, c.entries.Len())
}

// Clear drops all entries, in memory and on durable storage
func (c *ResultCache) Clear() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	count := c.entries.Len()
	c.entries.Purge()

	c.persist()

	evt.Bus().Publish(evt.CachingResultCacheChanged, 0)

	return count
}

// Snapshot returns summaries of all currently valid entries
func (c *ResultCache) Snapshot() []EntrySummary {
	c.lock.RLock()
	defer c.lock.RUnlock()

	now := c.now()

	var result []EntrySummary

	for _, key := range c.entries.Keys() {
		val, found := c.entries.Peek(key)
		if !found {
			continue
		}

		entry := val.(*Entry)
		if !entry.isValid(now) {
			continue
		}

		result = append(result, EntrySummary{
			Domain:           key.(string),
			FirstValue:       model.FirstAddress(entry.Records),
			RemainingSeconds: entry.RemainingSeconds(now),
			TTL:              entry.TTL,
			ExpiresAt:        entry.ExpiresAt(),
			Types:            model.PresentTypes(entry.Records),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Domain < result[j].Domain
	})

	return result
}

// TotalCount returns the number of resident entries, expired ones included
func (c *ResultCache) TotalCount() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.entries.Len()
}

// Flush persists the current state, used on shutdown
func (c *ResultCache) Flush() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.persistErr()
}

// evictExpired drops expired entries, callers must hold the write lock
func (c *ResultCache) evictExpired() {
	now := c.now()

	for _, key := range c.entries.Keys() {
		if val, found := c.entries.Peek(key); found {
			if !val.(*Entry).isValid(now) {
				c.entries.Remove(key)
			}
		}
	}
}

// persist mirrors the memory state to the durable file. A failure is logged
// and never fails the in-flight request, the in-memory copy stays
// authoritative until the next successful write.
func (c *ResultCache) persist() {
	util.LogOnError("can't persist result cache: ", c.persistErr())
}

func (c *ResultCache) persistErr() error {
	now := c.now()
	stored := make(map[string]*Entry, c.entries.Len())

	for _, key := range c.entries.Keys() {
		if val, found := c.entries.Peek(key); found {
			if entry := val.(*Entry); entry.isValid(now) {
				stored[key.(string)] = entry
			}
		}
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	return util.WriteFileAtomic(c.filePath, data)
}

// Configuration returns the current cache configuration and stats
func (c *ResultCache) Configuration() []string {
	return []string{
		"file = " + c.filePath,
		"negativeTTL = " + c.negativeTTL.String(),
	}
}
