// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package reconciler

import (
	"maps"
	"slices"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
)

// Full are the options producing an inventory that Filter can narrow down to
// any other options.
var Full = Options{ShowAll: true, KeepZoneless: true}

// Filter narrows an inventory reconciled with Full to opts. The result equals
// reconciling the same input with opts and shares no mutable state with inv.
func Filter(inv inventory.Inventory, opts Options) inventory.Inventory {
	out := inv
	out.Zones = make([]inventory.ZoneData, 0, len(inv.Zones))
	for _, z := range inv.Zones {
		filtered := inventory.ZoneData{Zone: z.Zone, Vendors: map[inventory.Vendor][]inventory.ServerInfo{}}
		for v, servers := range z.Vendors {
			var kept []inventory.ServerInfo
			for _, s := range servers {
				if bucket, ok := bucketOf(s, opts); ok && bucket == z.Zone {
					kept = append(kept, s)
				}
			}
			if len(kept) > 0 {
				filtered.Vendors[v] = kept
			}
		}
		if len(filtered.Vendors) > 0 {
			out.Zones = append(out.Zones, filtered)
		}
	}
	out.Duplicates = maps.Clone(inv.Duplicates)
	for name, vendors := range out.Duplicates {
		out.Duplicates[name] = slices.Clone(vendors)
	}
	out.Clusters = slices.Clone(inv.Clusters)
	for i := range out.Clusters {
		out.Clusters[i].Servers = slices.Clone(out.Clusters[i].Servers)
	}
	out.Errors = slices.Clone(inv.Errors)
	out.Summary.PerVendor = maps.Clone(inv.Summary.PerVendor)
	out.Summary.TotalZones = len(out.Zones)
	return out
}
