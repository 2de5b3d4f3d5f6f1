// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package hostname resolves the canonical server name of an installation
// record reported by a cluster.
package hostname

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultServerNamePattern matches the names of servers managed by the scanner.
const DefaultServerNamePattern = `(?i)ocp4-hypershift`

var macAddressRegexp = regexp.MustCompile(`(?i)^(?:[0-9a-f]{2}[:-]){5}[0-9a-f]{2}$|^[0-9a-f]{12}$`)

// Record carries the name-bearing fields of an installation record. The
// specified fields come from the spec of the object, the observed ones from
// its status. Any field may be nil.
type Record struct {
	// Source identifies the object the record was read from, e.g. "namespace/name".
	Source string

	SpecHostname              *string
	SpecRequestedHostname     *string
	ObservedHostname          *string
	ObservedRequestedHostname *string
}

// Hostname returns the hostname candidate of the record.
func (r Record) Hostname() string {
	return firstNonEmpty(r.SpecHostname, r.ObservedHostname)
}

// RequestedHostname returns the requested-hostname candidate of the record.
func (r Record) RequestedHostname() string {
	return firstNonEmpty(r.SpecRequestedHostname, r.ObservedRequestedHostname)
}

// firstNonEmpty returns the specified value if set, otherwise the observed one.
func firstNonEmpty(specified, observed *string) string {
	if specified != nil {
		if v := strings.TrimSpace(*specified); v != "" {
			return v
		}
	}
	if observed != nil {
		return strings.TrimSpace(*observed)
	}
	return ""
}

// IsMACAddress reports whether value is a MAC address in colon, dash or bare
// hex notation.
func IsMACAddress(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	return macAddressRegexp.MatchString(value)
}

// Resolver decides the canonical server name of installation records.
type Resolver struct {
	pattern *regexp.Regexp
}

// NewResolver returns a Resolver accepting names matching pattern. An empty
// pattern selects DefaultServerNamePattern.
func NewResolver(pattern string) (*Resolver, error) {
	if pattern == "" {
		pattern = DefaultServerNamePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid server name pattern %q: %w", pattern, err)
	}
	return &Resolver{pattern: re}, nil
}

// MustNewResolver is like NewResolver but panics on an invalid pattern.
func MustNewResolver(pattern string) *Resolver {
	r, err := NewResolver(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// IsServerName reports whether name matches the server name pattern.
func (r *Resolver) IsServerName(name string) bool {
	return name != "" && r.pattern.MatchString(name)
}

// Resolve returns the canonical server name of the record. A real hostname
// always wins. A MAC-shaped hostname is a placeholder emitted before the host
// got its name, so the requested hostname is used instead. The second return
// value is false if the record does not name a server.
func (r *Resolver) Resolve(record Record) (string, bool) {
	hostname := record.Hostname()
	requested := record.RequestedHostname()

	hostnameIsMAC := IsMACAddress(hostname)
	if hostname != "" && !hostnameIsMAC && r.IsServerName(hostname) {
		return hostname, true
	}
	if hostname != "" && hostnameIsMAC && r.IsServerName(requested) {
		return requested, true
	}
	if r.IsServerName(requested) {
		return requested, true
	}
	return "", false
}
