package services

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/PatrizioAcquadro/castelloMongivetto/internal/antispam"
)

// Deliverability reason codes.
const (
	ReasonDomainFormat     = "domain-format"
	ReasonDisposableDomain = "disposable-domain"
	ReasonMXRecord         = "mx"
	ReasonARecord          = "a"
	ReasonAAAARecord       = "aaaa"
	ReasonDNSMissing       = "dns-missing"
)

// DNSResolver is the subset of net.Resolver used by the deliverability
// checker.
type DNSResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// DNSDeliverabilityChecker verifies that an email domain is well formed, not
// a known throwaway provider, and has mail-relevant DNS records. DNS lookups
// fail open: only an authoritative not-found counts against the domain, so a
// resolver outage never rejects legitimate senders.
type DNSDeliverabilityChecker struct {
	rules    *antispam.Provider
	resolver DNSResolver
}

// DeliverabilityOption tweaks checker construction.
type DeliverabilityOption func(*DNSDeliverabilityChecker)

// WithResolver substitutes the DNS resolver, for tests.
func WithResolver(resolver DNSResolver) DeliverabilityOption {
	return func(c *DNSDeliverabilityChecker) {
		if resolver != nil {
			c.resolver = resolver
		}
	}
}

// NewDNSDeliverabilityChecker builds a checker backed by the given rule
// provider and the default system resolver.
func NewDNSDeliverabilityChecker(rules *antispam.Provider, opts ...DeliverabilityOption) *DNSDeliverabilityChecker {
	if rules == nil {
		rules = antispam.NewProvider(nil)
	}
	checker := &DNSDeliverabilityChecker{rules: rules, resolver: net.DefaultResolver}
	for _, opt := range opts {
		opt(checker)
	}
	return checker
}

// Check probes the domain. The reason names the first record type that
// proved presence, or why the domain was rejected.
func (c *DNSDeliverabilityChecker) Check(ctx context.Context, domainName string) DomainCheck {
	if len(domainName) < 3 || !strings.Contains(domainName, ".") {
		return DomainCheck{Valid: false, Reason: ReasonDomainFormat}
	}
	if c.rules.Rules().Disposable(domainName) {
		return DomainCheck{Valid: false, Reason: ReasonDisposableDomain}
	}

	if c.hasMX(ctx, domainName) {
		return DomainCheck{Valid: true, Reason: ReasonMXRecord}
	}
	if c.hasIP(ctx, "ip4", domainName) {
		return DomainCheck{Valid: true, Reason: ReasonARecord}
	}
	if c.hasIP(ctx, "ip6", domainName) {
		return DomainCheck{Valid: true, Reason: ReasonAAAARecord}
	}
	return DomainCheck{Valid: false, Reason: ReasonDNSMissing}
}

func (c *DNSDeliverabilityChecker) hasMX(ctx context.Context, domainName string) bool {
	records, err := c.resolver.LookupMX(ctx, domainName)
	if err != nil {
		return !authoritativeMiss(err)
	}
	return len(records) > 0
}

func (c *DNSDeliverabilityChecker) hasIP(ctx context.Context, network, domainName string) bool {
	addrs, err := c.resolver.LookupIP(ctx, network, domainName)
	if err != nil {
		return !authoritativeMiss(err)
	}
	return len(addrs) > 0
}

// authoritativeMiss reports whether the lookup error means the record
// definitively does not exist, as opposed to a transient resolver failure.
func authoritativeMiss(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}
