// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package reconciler merges vendor server profiles with the servers installed
// in clusters into a zone-grouped inventory.
package reconciler

import (
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
	"github.com/ironcore-dev/server-scanner/internal/cluster"
	"github.com/ironcore-dev/server-scanner/internal/zone"
)

// Options control which servers are part of the zone grouping. They never
// affect the summary totals or the duplicate report.
type Options struct {
	// Allowlist restricts the grouping to the listed zones.
	Allowlist zone.Allowlist
	// ShowAll includes installed servers in the grouping.
	ShowAll bool
	// KeepZoneless groups servers without zone into inventory.UnknownZone
	// unless the allowlist is active.
	KeepZoneless bool
}

// InstalledLookup maps each installed server name to the cluster it is
// installed in. A name installed in several clusters maps to the
// lexicographically smallest cluster name.
func InstalledLookup(installed cluster.Installed) map[string]string {
	clusters := make([]string, 0, len(installed.Sets))
	for name := range installed.Sets {
		clusters = append(clusters, name)
	}
	slices.Sort(clusters)

	lookup := map[string]string{}
	for _, c := range clusters {
		for name := range installed.Sets[c] {
			if _, ok := lookup[name]; !ok {
				lookup[name] = c
			}
		}
	}
	return lookup
}

// Classify returns the reconciled view of a single profile.
func Classify(profile inventory.ServerProfile, lookup map[string]string) inventory.ServerInfo {
	info := inventory.ServerInfo{
		Name:         profile.Name,
		Vendor:       profile.Vendor,
		Status:       inventory.StatusAvailable,
		MACAddress:   profile.MACAddress,
		BMCAddress:   profile.BMCAddress,
		Model:        profile.Model,
		SerialNumber: profile.SerialNumber,
	}
	if z, ok := zone.Extract(profile.Name); ok {
		info.Zone = z
	}
	if c, ok := lookup[profile.Name]; ok {
		info.Status = inventory.StatusInstalled
		info.Cluster = c
	}
	return info
}

// Reconcile classifies profiles as installed or available and groups them by
// zone and vendor. Profiles keep the order they were passed in within their
// vendor bucket. Repeated (name, vendor) pairs are counted once. The result
// depends only on its inputs, not on map iteration order.
func Reconcile(profiles []inventory.ServerProfile, installed cluster.Installed, opts Options) inventory.Inventory {
	lookup := InstalledLookup(installed)

	result := inventory.Inventory{
		Duplicates: Duplicates(profiles),
		Clusters:   Stats(installed),
		Summary: inventory.Summary{
			TotalClusters: len(installed.Order),
			PerVendor:     map[inventory.Vendor]int{},
		},
		Errors: slices.Clone(installed.Errors),
	}

	buckets := map[string]*inventory.ZoneData{}
	seen := sets.New[inventory.ProfileKey]()
	for _, p := range profiles {
		if seen.Has(p.Key()) {
			continue
		}
		seen.Insert(p.Key())

		info := Classify(p, lookup)
		result.Summary.TotalProfiles++
		result.Summary.PerVendor[p.Vendor]++
		if info.Status == inventory.StatusInstalled {
			result.Summary.TotalInstalled++
		} else {
			result.Summary.TotalAvailable++
		}
		if info.Zone == "" {
			result.Summary.TotalZoneless++
		}

		bucket, ok := bucketOf(info, opts)
		if !ok {
			continue
		}
		data, ok := buckets[bucket]
		if !ok {
			data = &inventory.ZoneData{Zone: bucket, Vendors: map[inventory.Vendor][]inventory.ServerInfo{}}
			buckets[bucket] = data
		}
		data.Vendors[info.Vendor] = append(data.Vendors[info.Vendor], info)
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	slices.Sort(names)
	result.Zones = make([]inventory.ZoneData, 0, len(names))
	for _, name := range names {
		result.Zones = append(result.Zones, *buckets[name])
	}
	result.Summary.TotalZones = len(result.Zones)
	return result
}

// bucketOf returns the zone bucket of info, or false if info is not grouped.
func bucketOf(info inventory.ServerInfo, opts Options) (string, bool) {
	if info.Status == inventory.StatusInstalled && !opts.ShowAll {
		return "", false
	}
	if info.Zone == "" {
		if opts.KeepZoneless && !opts.Allowlist.Active() {
			return inventory.UnknownZone, true
		}
		return "", false
	}
	return info.Zone, opts.Allowlist.Allows(info.Zone)
}

// Duplicates returns the names reported by more than one vendor together with
// the vendors in the order they were first seen.
func Duplicates(profiles []inventory.ServerProfile) map[string][]inventory.Vendor {
	vendors := map[string][]inventory.Vendor{}
	for _, p := range profiles {
		if !slices.Contains(vendors[p.Name], p.Vendor) {
			vendors[p.Name] = append(vendors[p.Name], p.Vendor)
		}
	}
	duplicates := map[string][]inventory.Vendor{}
	for name, vs := range vendors {
		if len(vs) > 1 {
			duplicates[name] = vs
		}
	}
	return duplicates
}

// Stats returns the statistics of every cluster in configuration order.
func Stats(installed cluster.Installed) []inventory.ClusterStats {
	stats := make([]inventory.ClusterStats, 0, len(installed.Order))
	for _, name := range installed.Order {
		servers := sets.List(installed.Sets[name])
		stats = append(stats, inventory.ClusterStats{
			ClusterName:    name,
			InstalledCount: len(servers),
			Servers:        servers,
			Reachable:      installed.Reachable(name),
		})
	}
	return stats
}
