// Package dnscheck verifies that a tenant's custom domain points at this
// service.
package dnscheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/rpggio/statuspage/internal/hostname"
)

// DefaultServer is the resolver queried when none is configured.
const DefaultServer = "1.1.1.1:53"

// Validation statuses.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusError   = "error"
)

// Result describes what DNS says about a domain.
type Result struct {
	Domain           string   `json:"domain"`
	ExpectedTarget   string   `json:"expectedTarget"`
	ValidFormat      bool     `json:"validFormat"`
	Resolves         bool     `json:"resolves"`
	PointsToExpected *bool    `json:"pointsToExpected"`
	CNAMERecords     []string `json:"cnameRecords"`
	ARecords         []string `json:"aRecords"`
	AAAARecords      []string `json:"aaaaRecords"`
	Status           string   `json:"status"`
	Notes            []string `json:"notes"`
}

// Resolver answers single record type queries.
type Resolver interface {
	Lookup(ctx context.Context, host string, qtype uint16) ([]string, error)
}

// Client resolves records against one DNS server.
type Client struct {
	server string
	client *dns.Client
}

// NewClient creates a client for server ("host:port").
func NewClient(server string, timeout time.Duration) *Client {
	if server == "" {
		server = DefaultServer
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{server: server, client: &dns.Client{Timeout: timeout}}
}

// Lookup returns the records of qtype for host. CNAME targets are returned
// without the trailing dot.
func (c *Client) Lookup(ctx context.Context, host string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	resp, _, err := c.client.ExchangeContext(ctx, msg, c.server)
	if err != nil {
		return nil, fmt.Errorf("querying %s %s: %w", dns.TypeToString[qtype], host, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("querying %s %s: %s", dns.TypeToString[qtype], host, dns.RcodeToString[resp.Rcode])
	}

	var out []string
	for _, rr := range resp.Answer {
		switch v := rr.(type) {
		case *dns.CNAME:
			if qtype == dns.TypeCNAME {
				out = append(out, strings.TrimSuffix(v.Target, "."))
			}
		case *dns.A:
			if qtype == dns.TypeA {
				out = append(out, v.A.String())
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				out = append(out, v.AAAA.String())
			}
		}
	}
	return out, nil
}

// Validator checks custom domains against an expected target host.
type Validator struct {
	resolver Resolver
	target   string
}

// NewValidator creates a validator. target is the host custom domains are
// expected to point at; it may be empty.
func NewValidator(resolver Resolver, target string) *Validator {
	return &Validator{resolver: resolver, target: target}
}

// Target returns the configured expected target.
func (v *Validator) Target() string {
	return hostname.Normalize(v.target)
}

// Validate inspects domain. An empty expectedTarget falls back to the
// configured target. Lookup failures count as missing records.
func (v *Validator) Validate(ctx context.Context, domain, expectedTarget string) Result {
	host := hostname.Normalize(domain)
	if expectedTarget == "" {
		expectedTarget = v.target
	}
	target := hostname.Normalize(expectedTarget)
	result := Result{
		Domain:         host,
		ExpectedTarget: target,
		ValidFormat:    hostname.IsValid(host),
		CNAMERecords:   []string{},
		ARecords:       []string{},
		AAAARecords:    []string{},
		Status:         StatusError,
		Notes:          []string{},
	}
	if !result.ValidFormat {
		result.Notes = append(result.Notes, "Invalid domain format")
		return result
	}

	for _, cname := range v.lookup(ctx, host, dns.TypeCNAME) {
		if n := hostname.Normalize(cname); n != "" {
			result.CNAMERecords = append(result.CNAMERecords, n)
		}
	}
	result.ARecords = append(result.ARecords, v.lookup(ctx, host, dns.TypeA)...)
	result.AAAARecords = append(result.AAAARecords, v.lookup(ctx, host, dns.TypeAAAA)...)
	result.Resolves = len(result.CNAMERecords) > 0 || len(result.ARecords) > 0 || len(result.AAAARecords) > 0

	if !result.Resolves {
		result.Notes = append(result.Notes, "No DNS records found")
		return result
	}
	if target == "" {
		result.Status = StatusOK
		result.Notes = append(result.Notes, "DNS resolves (expected target not configured on server)")
		return result
	}

	points := contains(result.CNAMERecords, target)
	if !points {
		expected := map[string]bool{}
		for _, ip := range v.lookup(ctx, target, dns.TypeA) {
			expected[ip] = true
		}
		for _, ip := range v.lookup(ctx, target, dns.TypeAAAA) {
			expected[ip] = true
		}
		for _, ip := range append(append([]string{}, result.ARecords...), result.AAAARecords...) {
			if expected[ip] {
				points = true
				break
			}
		}
	}

	result.PointsToExpected = &points
	if points {
		result.Status = StatusOK
		result.Notes = append(result.Notes, "DNS points to expected target")
	} else {
		result.Status = StatusWarning
		result.Notes = append(result.Notes, "DNS resolves but does not yet match expected target")
	}
	return result
}

func (v *Validator) lookup(ctx context.Context, host string, qtype uint16) []string {
	records, err := v.resolver.Lookup(ctx, host, qtype)
	if err != nil {
		return nil
	}
	return records
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
