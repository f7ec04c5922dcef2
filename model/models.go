package model

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Mode is the resolution strategy requested by the client
type Mode int

const (
	// ModeRecursive resolves all record types sequentially (default)
	ModeRecursive Mode = iota

	// ModeIterative walks the hierarchy hop by hop with per-hop timings
	ModeIterative

	// ModeMulti races the A and AAAA queries concurrently
	ModeMulti
)

func (m Mode) String() string {
	names := [...]string{
		"recursive",
		"iterative",
		"multi"}

	return names[m]
}

// ParseMode converts the external mode string, an empty string means recursive
func ParseMode(mode string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "recursive":
		return ModeRecursive, nil
	case "iterative":
		return ModeIterative, nil
	case "multi":
		return ModeMulti, nil
	}

	return ModeRecursive, fmt.Errorf("unknown resolution mode '%s'", mode)
}

// MarshalText implements `encoding.TextMarshaler`
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements `encoding.TextUnmarshaler`
func (m *Mode) UnmarshalText(data []byte) error {
	mode, err := ParseMode(string(data))
	if err != nil {
		return err
	}

	*m = mode

	return nil
}

// RecordType is the tag of a DNS record set ("A", "MX", ...)
type RecordType string

const (
	RecordTypeA     RecordType = "A"
	RecordTypeAAAA  RecordType = "AAAA"
	RecordTypeCNAME RecordType = "CNAME"
	RecordTypeMX    RecordType = "MX"
	RecordTypeNS    RecordType = "NS"
	RecordTypeTXT   RecordType = "TXT"
	RecordTypeSRV   RecordType = "SRV"
	RecordTypeCAA   RecordType = "CAA"
)

// RecordTypes is the fixed query order, the primary address family comes first
// nolint:gochecknoglobals
var RecordTypes = []RecordType{
	RecordTypeA,
	RecordTypeAAAA,
	RecordTypeCNAME,
	RecordTypeMX,
	RecordTypeNS,
	RecordTypeTXT,
	RecordTypeSRV,
	RecordTypeCAA,
}

// Records maps a record type to its ordered value list
type Records map[RecordType][]string

// ResponseType classifies the terminal state of a resolution
type ResponseType int

const (
	// ResponseTypeRESOLVED the domain was resolved via upstream queries
	ResponseTypeRESOLVED ResponseType = iota

	// ResponseTypeCACHED the result was answered from the cache
	ResponseTypeCACHED

	// ResponseTypeBLOCKED the domain was denied by the access gate
	ResponseTypeBLOCKED

	// ResponseTypeNXDOMAIN the domain does not exist
	ResponseTypeNXDOMAIN

	// ResponseTypeTIMEOUT the upstream did not answer within its bound
	ResponseTypeTIMEOUT
)

func (t ResponseType) String() string {
	names := [...]string{
		"RESOLVED",
		"CACHED",
		"BLOCKED",
		"NXDOMAIN",
		"TIMEOUT"}

	return names[t]
}

// MarshalText implements `encoding.TextMarshaler`
func (t ResponseType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Step is one externally visible stage of the resolution journey
type Step struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Info   string `json:"info,omitempty"`
}

// step names
const (
	StepAccessControl = "access_control"
	StepCacheLookup   = "cache_lookup"
	StepDNSQuery      = "dns_query"
	StepCacheUpdate   = "cache_update"
	StepRootQuery     = "root_query"
	StepTLDQuery      = "tld_query"
	StepAuthQuery     = "auth_query"
)

// step statuses
const (
	StatusAllowed  = "allowed"
	StatusBlocked  = "blocked"
	StatusHit      = "hit"
	StatusMiss     = "miss"
	StatusSuccess  = "success"
	StatusTimeout  = "timeout"
	StatusNxDomain = "nxdomain"
	StatusDone     = "done"
)

// timing names
const (
	TimingClientToAccess = "client_to_access_ms"
	TimingAccessToCache  = "access_to_cache_ms"
	TimingDNSQuery       = "dns_query_ms"
	TimingCacheToRoot    = "cache_to_root_ms"
	TimingRootToTLD      = "root_to_tld_ms"
	TimingTLDToAuth      = "tld_to_auth_ms"
	TimingAuthToIP       = "auth_to_ip_ms"
	TimingTotal          = "total_ms"
)

// Request represents one client resolution request
type Request struct {
	Domain    string
	Mode      Mode
	ClientIP  net.IP
	Log       *logrus.Entry
	RequestTS time.Time
}

// MultiReport is the per-family breakdown of a multi mode resolution
type MultiReport struct {
	A         []string         `json:"A"`
	AAAA      []string         `json:"AAAA"`
	Faster    string           `json:"faster,omitempty"`
	LatencyMs map[string]int64 `json:"latency_ms"`
}

// Response is the externally visible resolution result including its trace
type Response struct {
	Domain  string           `json:"domain"`
	Blocked bool             `json:"blocked"`
	Cached  bool             `json:"cached"`
	Mode    Mode             `json:"mode"`
	RType   ResponseType     `json:"responseType"`
	Records Records          `json:"records"`
	TTL     uint32           `json:"ttl"`
	Steps   []Step           `json:"steps"`
	Timings map[string]int64 `json:"timings,omitempty"`
	Multi   *MultiReport     `json:"multi,omitempty"`
	Message string           `json:"message,omitempty"`
}
