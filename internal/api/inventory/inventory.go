// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"time"
)

// Status is the installation status of a server.
type Status string

const (
	// StatusAvailable means no queried cluster reports the server as installed.
	StatusAvailable Status = "available"
	// StatusInstalled means at least one cluster reports the server as installed.
	StatusInstalled Status = "installed"
)

// UnknownZone is the bucket name used for profiles without an extractable zone
// when zone-less profiles are retained. Extracted zones never contain
// parentheses, so it cannot collide with a real zone.
const UnknownZone = "(unknown)"

// ServerInfo is a reconciled server with its zone and installation status.
type ServerInfo struct {
	Name         string `json:"name"`
	Vendor       Vendor `json:"vendor"`
	Zone         string `json:"zone,omitempty"`
	Status       Status `json:"status"`
	Cluster      string `json:"cluster,omitempty"`
	MACAddress   string `json:"macAddress,omitempty"`
	BMCAddress   string `json:"bmcAddress,omitempty"`
	Model        string `json:"model,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
}

// ZoneData holds the servers of one zone grouped by vendor. The order of the
// servers within a vendor is the order the vendor returned them in.
type ZoneData struct {
	Zone    string                  `json:"zone"`
	Vendors map[Vendor][]ServerInfo `json:"vendors"`
}

// ClusterStats describes the installed servers found in one cluster.
type ClusterStats struct {
	ClusterName    string   `json:"clusterName"`
	InstalledCount int      `json:"installedCount"`
	Servers        []string `json:"servers"`
	Reachable      bool     `json:"reachable"`
}

// Summary holds the totals of a reconciliation run. Totals count all profiles
// returned by the vendors, including those filtered from the zone grouping.
type Summary struct {
	TotalProfiles  int            `json:"totalProfiles"`
	TotalAvailable int            `json:"totalAvailable"`
	TotalInstalled int            `json:"totalInstalled"`
	TotalZoneless  int            `json:"totalZoneless"`
	TotalClusters  int            `json:"totalClusters"`
	TotalZones     int            `json:"totalZones"`
	PerVendor      map[Vendor]int `json:"perVendor,omitempty"`
}

// Inventory is the result of a reconciliation run.
type Inventory struct {
	ScanID      string              `json:"scanID,omitempty"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Zones       []ZoneData          `json:"zones"`
	Duplicates  map[string][]Vendor `json:"duplicates,omitempty"`
	Clusters    []ClusterStats      `json:"clusters,omitempty"`
	Summary     Summary             `json:"summary"`
	Errors      []SourceError       `json:"errors,omitempty"`
}

// Zone returns the zone with the given name.
func (i *Inventory) Zone(name string) (ZoneData, bool) {
	for _, z := range i.Zones {
		if z.Zone == name {
			return z, true
		}
	}
	return ZoneData{}, false
}

// ZoneNames returns the names of all zones in order.
func (i *Inventory) ZoneNames() []string {
	names := make([]string, 0, len(i.Zones))
	for _, z := range i.Zones {
		names = append(names, z.Zone)
	}
	return names
}

// CacheInfo describes the age of a cached inventory.
type CacheInfo struct {
	Cached             bool   `json:"cached"`
	AgeSeconds         int64  `json:"ageSeconds"`
	NextRefreshSeconds int64  `json:"nextRefreshSeconds"`
	Stale              bool   `json:"stale,omitempty"`
	LastError          string `json:"lastError,omitempty"`
}

// DashboardData is the payload of the `/api/servers` endpoint.
type DashboardData struct {
	Inventory `json:",inline"`
	CacheInfo CacheInfo `json:"cacheInfo"`
}
