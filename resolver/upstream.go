package resolver

import (
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/mroth/weightedrand"

	"github.com/dnstrail/dnstrail/model"
)

// nolint:gochecknoglobals
var recordTypeToDNS = map[model.RecordType]uint16{
	model.RecordTypeA:     dns.TypeA,
	model.RecordTypeAAAA:  dns.TypeAAAA,
	model.RecordTypeCNAME: dns.TypeCNAME,
	model.RecordTypeMX:    dns.TypeMX,
	model.RecordTypeNS:    dns.TypeNS,
	model.RecordTypeTXT:   dns.TypeTXT,
	model.RecordTypeSRV:   dns.TypeSRV,
	model.RecordTypeCAA:   dns.TypeCAA,
}

// UpstreamClient sends record queries to external DNS servers. One of the
// configured upstreams is picked per query by weighted random, recently
// failed upstreams get a lower weight.
type UpstreamClient struct {
	upstreams []*upstreamStatus
	client    *dns.Client
}

type upstreamStatus struct {
	address       string
	lastErrorTime time.Time
}

// NewUpstreamClient creates a client instance for the passed upstream
// addresses (host or host:port) with the given per-query timeout
func NewUpstreamClient(upstreams []string, timeout time.Duration) *UpstreamClient {
	statuses := make([]*upstreamStatus, 0, len(upstreams))

	for _, u := range upstreams {
		address := strings.TrimSpace(u)
		if address == "" {
			continue
		}

		if !strings.Contains(address, ":") {
			address = net.JoinHostPort(address, "53")
		}

		statuses = append(statuses, &upstreamStatus{
			address:       address,
			lastErrorTime: time.Unix(0, 0),
		})
	}

	return &UpstreamClient{
		upstreams: statuses,
		client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
	}
}

// pickUpstream picks one upstream by weighted random, an upstream with a
// recent error is less likely to be picked
func (c *UpstreamClient) pickUpstream() *upstreamStatus {
	if len(c.upstreams) == 1 {
		return c.upstreams[0]
	}

	var choices []weightedrand.Choice

	for _, u := range c.upstreams {
		var weight float64 = 60

		if time.Since(u.lastErrorTime) < time.Hour {
			weight = math.Max(1, weight-(60-time.Since(u.lastErrorTime).Minutes()))
		}

		choices = append(choices, weightedrand.Choice{
			Item:   u,
			Weight: uint(weight),
		})
	}

	chooser, _ := weightedrand.NewChooser(choices...)

	return chooser.Pick().(*upstreamStatus)
}

// Query performs one record query. The outcome kind is derived from the
// response code and the error type, a timeout is terminal and not retried.
func (c *UpstreamClient) Query(domain string, rType model.RecordType) Outcome {
	upstream := c.pickUpstream()

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), recordTypeToDNS[rType])
	msg.RecursionDesired = true

	resp, rtt, err := c.client.Exchange(msg, upstream.address)
	if err != nil {
		upstream.lastErrorTime = time.Now()

		var netErr net.Error
		timedOut := errors.As(err, &netErr) && netErr.Timeout()

		logger("upstream_client").WithFields(map[string]interface{}{
			"upstream": upstream.address,
			"domain":   domain,
			"type":     rType,
			"timeout":  timedOut,
		}).Warnf("query failed: %v", err)

		return Outcome{Kind: OutcomeTimeout}
	}

	logger("upstream_client").Debugf("query %s %s via %s took %s", domain, rType, upstream.address, rtt)

	switch resp.Rcode {
	case dns.RcodeSuccess:
		values, ttl := extractValues(rType, resp.Answer)
		if len(values) == 0 {
			return Outcome{Kind: OutcomeNoRecords}
		}

		return Outcome{Kind: OutcomeSuccess, Values: values, TTL: ttl}
	case dns.RcodeNameError:
		return Outcome{Kind: OutcomeNameError}
	default:
		logger("upstream_client").Debugf("unexpected response code %s for %s %s",
			dns.RcodeToString[resp.Rcode], domain, rType)

		return Outcome{Kind: OutcomeNoRecords}
	}
}

// Configuration returns the current client configuration
func (c *UpstreamClient) Configuration() (result []string) {
	result = append(result, "upstreams:")
	for _, u := range c.upstreams {
		result = append(result, fmt.Sprintf("- %s", u.address))
	}

	result = append(result, fmt.Sprintf("query timeout = %s", c.client.Timeout))

	return
}

// extractValues renders the answer records of the requested type in their
// external string form and returns the TTL of the first matching record
func extractValues(rType model.RecordType, answer []dns.RR) (values []string, ttl uint32) {
	for _, rr := range answer {
		// e.g. an A query may carry CNAME records in its answer section
		if rr.Header().Rrtype != recordTypeToDNS[rType] {
			continue
		}

		var value string

		switch v := rr.(type) {
		case *dns.A:
			value = v.A.String()
		case *dns.AAAA:
			value = v.AAAA.String()
		case *dns.CNAME:
			value = strings.TrimSuffix(v.Target, ".")
		case *dns.MX:
			value = fmt.Sprintf("%d %s", v.Preference, strings.TrimSuffix(v.Mx, "."))
		case *dns.NS:
			value = strings.TrimSuffix(v.Ns, ".")
		case *dns.TXT:
			value = strings.Join(v.Txt, "")
		case *dns.SRV:
			value = fmt.Sprintf("%d %d %d %s", v.Priority, v.Weight, v.Port, strings.TrimSuffix(v.Target, "."))
		case *dns.CAA:
			value = fmt.Sprintf("%d %s %q", v.Flag, v.Tag, v.Value)
		default:
			continue
		}

		if len(values) == 0 {
			ttl = rr.Header().Ttl
		}

		values = append(values, value)
	}

	return values, ttl
}
