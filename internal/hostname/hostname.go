// Package hostname normalizes and validates the domain names tenants attach
// to their status pages.
package hostname

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

const maxHostLength = 253

var labelPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// Normalize reduces a host, host:port or URL to its lowercase ASCII hostname
// without trailing dots. It returns "" when nothing usable remains.
func Normalize(value string) string {
	input := strings.ToLower(strings.TrimSpace(value))
	if input == "" {
		return ""
	}
	if !strings.Contains(input, "://") {
		input = "http://" + input
	}

	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.TrimRight(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}
	return host
}

// SplitInput splits comma or whitespace separated domain input into its
// non-empty parts.
func SplitInput(values ...string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
		})...)
	}
	return out
}

// NormalizeList normalizes every entry, dropping empties and duplicates while
// keeping first-seen order.
func NormalizeList(values []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(values))
	for _, raw := range SplitInput(values...) {
		host := Normalize(raw)
		if host == "" {
			continue
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		out = append(out, host)
	}
	return out
}

// IsValid reports whether host is an IP address, localhost or a dotted DNS
// name made of valid labels.
func IsValid(host string) bool {
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil || host == "localhost" {
		return true
	}
	if len(host) > maxHostLength || !strings.Contains(host, ".") {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if !labelPattern.MatchString(label) {
			return false
		}
	}
	return true
}

// Primary normalizes a custom domain, returning "" when it is not a valid host.
func Primary(value string) string {
	host := Normalize(value)
	if host == "" || !IsValid(host) {
		return ""
	}
	return host
}

// Redirects normalizes a redirect domain list, dropping invalid hosts and the
// primary domain itself.
func Redirects(primary string, values []string) []string {
	out := []string{}
	for _, host := range NormalizeList(values) {
		if host == primary || !IsValid(host) {
			continue
		}
		out = append(out, host)
	}
	return out
}
