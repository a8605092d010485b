package membership

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/burrowlabs/picket/pkg/log"
	"github.com/miekg/dns"
	"github.com/rs/zerolog"
)

// Family selects which address records a DNS source asks for
type Family string

const (
	// FamilyDual queries both A and AAAA records (the default)
	FamilyDual Family = "dual"

	// FamilyIPv4 queries A records only
	FamilyIPv4 Family = "ipv4"

	// FamilyIPv6 queries AAAA records only
	FamilyIPv6 Family = "ipv6"
)

// DNSConfig configures a DNS-backed membership source
type DNSConfig struct {
	// Name is the DNS name to resolve (service name or SRV record)
	Name string

	// Server is the DNS server to query (host:port)
	Server string

	// Port is appended to resolved A/AAAA addresses to form endpoints.
	// Ignored for SRV queries, which carry their own ports.
	Port int

	// SRV selects SRV resolution instead of address records
	SRV bool

	// Family restricts address resolution to one IP family
	// (default: dual-stack A + AAAA)
	Family Family

	// Interval is the time between re-resolutions
	Interval time.Duration

	// Timeout is the per-query timeout
	Timeout time.Duration
}

// DNSSource periodically resolves a DNS name and diffs the answer set into
// add/remove membership events. Endpoints are host:port strings.
type DNSSource struct {
	config DNSConfig
	client *dns.Client
	logger zerolog.Logger

	events chan Event[string]
	known  map[string]bool
	stopCh chan struct{}
}

// NewDNSSource creates a DNS membership source
func NewDNSSource(config DNSConfig) *DNSSource {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	return &DNSSource{
		config: config,
		client: &dns.Client{Timeout: config.Timeout},
		logger: log.WithComponent("membership.dns"),
		events: make(chan Event[string], 64),
		known:  make(map[string]bool),
		stopCh: make(chan struct{}),
	}
}

// Events returns the membership stream fed by this source
func (s *DNSSource) Events() <-chan Event[string] {
	return s.events
}

// Start begins the resolution loop
func (s *DNSSource) Start() {
	go s.run()
}

// Stop stops the resolution loop and completes the event stream
func (s *DNSSource) Stop() {
	close(s.stopCh)
}

// run resolves immediately and then on every interval tick
func (s *DNSSource) run() {
	defer close(s.events)

	s.resolveOnce()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.resolveOnce()
		case <-s.stopCh:
			return
		}
	}
}

// resolveOnce performs one query and emits the diff against the known set
func (s *DNSSource) resolveOnce() {
	endpoints, err := s.resolve()
	if err != nil {
		// Keep the previous membership on resolution errors; a transient
		// DNS outage must not tear down a healthy pool.
		s.logger.Warn().
			Err(err).
			Str("name", s.config.Name).
			Msg("DNS resolution failed, keeping previous membership")
		return
	}

	current := make(map[string]bool, len(endpoints))
	for _, endpoint := range endpoints {
		current[endpoint] = true
		if !s.known[endpoint] {
			s.known[endpoint] = true
			s.emit(Add(endpoint))
		}
	}

	for endpoint := range s.known {
		if !current[endpoint] {
			delete(s.known, endpoint)
			s.emit(Remove(endpoint))
		}
	}
}

// resolve queries the configured server and returns host:port endpoints.
// Address resolution is dual-stack unless the family narrows it; a failure
// of any query fails the whole resolution so a half-answered cycle cannot
// masquerade as a membership shrink.
func (s *DNSSource) resolve() ([]string, error) {
	var qtypes []uint16
	switch {
	case s.config.SRV:
		qtypes = []uint16{dns.TypeSRV}
	case s.config.Family == FamilyIPv4:
		qtypes = []uint16{dns.TypeA}
	case s.config.Family == FamilyIPv6:
		qtypes = []uint16{dns.TypeAAAA}
	default:
		qtypes = []uint16{dns.TypeA, dns.TypeAAAA}
	}

	var endpoints []string
	for _, qtype := range qtypes {
		answers, err := s.query(qtype)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, answers...)
	}

	// Stable order keeps the diff deterministic for logging and tests
	sort.Strings(endpoints)
	return endpoints, nil
}

// query performs one question against the configured server
func (s *DNSSource) query(qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(s.config.Name), qtype)

	resp, _, err := s.client.Exchange(msg, s.config.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.config.Server, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query for %s returned rcode %d", s.config.Name, resp.Rcode)
	}

	var endpoints []string
	for _, rr := range resp.Answer {
		switch record := rr.(type) {
		case *dns.A:
			endpoints = append(endpoints, net.JoinHostPort(record.A.String(), strconv.Itoa(s.config.Port)))
		case *dns.AAAA:
			endpoints = append(endpoints, net.JoinHostPort(record.AAAA.String(), strconv.Itoa(s.config.Port)))
		case *dns.SRV:
			host := dns.Fqdn(record.Target)
			endpoints = append(endpoints, net.JoinHostPort(host[:len(host)-1], strconv.Itoa(int(record.Port))))
		}
	}
	return endpoints, nil
}

// emit delivers an event without blocking the resolution loop forever
func (s *DNSSource) emit(event Event[string]) {
	select {
	case s.events <- event:
	case <-s.stopCh:
	}
}
