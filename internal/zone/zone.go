// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package zone derives the logical zone of a server from its canonical name.
package zone

import (
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Patterns are tried in order, the first match wins. The zone token is matched
// lazily so that trailing "-<number>" and "-l4" suffixes are not part of it.
var zonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ocp4-hypershift-data-?([a-z0-9-]+?)-(?:\d+|l4)`),
	regexp.MustCompile(`(?i)ocp4-hypershift-h100-([a-z0-9-]+?)-(?:\d+|l4)`),
	regexp.MustCompile(`(?i)ocp4-hypershift-v100-([a-z0-9-]+?)-(?:\d+|l4)`),
	regexp.MustCompile(`(?i)ocp4-hypershift-([a-z0-9-]+?)-(?:\d+|l4)`),
	regexp.MustCompile(`(?i)ocp4-hypershift-([a-z0-9]+)-`),
}

// Extract returns the zone encoded in name, lower-cased. The second return
// value is false if name carries no zone.
func Extract(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, re := range zonePatterns {
		if m := re.FindStringSubmatch(name); m != nil {
			return strings.ToLower(m[1]), true
		}
	}
	return "", false
}

// FromNames returns the sorted, de-duplicated zones of names.
func FromNames(names []string) []string {
	zones := sets.New[string]()
	for _, name := range names {
		if z, ok := Extract(name); ok {
			zones.Insert(z)
		}
	}
	return sets.List(zones)
}

// Normalize returns the canonical form of a zone name used for comparisons.
func Normalize(zone string) string {
	return strings.ToLower(strings.TrimSpace(zone))
}

// Allowlist restricts an inventory to a set of zones. The zero value allows
// every zone.
type Allowlist struct {
	zones sets.Set[string]
}

// ParseAllowlist parses a comma-separated list of zone names. Blank entries
// are ignored.
func ParseAllowlist(value string) Allowlist {
	return NewAllowlist(strings.Split(value, ",")...)
}

// NewAllowlist returns an Allowlist of the given zones.
func NewAllowlist(zones ...string) Allowlist {
	s := sets.New[string]()
	for _, z := range zones {
		if z = Normalize(z); z != "" {
			s.Insert(z)
		}
	}
	return Allowlist{zones: s}
}

// Active reports whether the allowlist restricts anything.
func (a Allowlist) Active() bool {
	return a.zones.Len() > 0
}

// Allows reports whether zone passes the allowlist. An inactive allowlist
// allows everything, an active one never allows the empty zone.
func (a Allowlist) Allows(zone string) bool {
	if !a.Active() {
		return true
	}
	zone = Normalize(zone)
	return zone != "" && a.zones.Has(zone)
}

// Zones returns the sorted zones of the allowlist.
func (a Allowlist) Zones() []string {
	return sets.List(a.zones)
}

// String returns the allowlist in the form accepted by ParseAllowlist.
func (a Allowlist) String() string {
	return strings.Join(a.Zones(), ",")
}
