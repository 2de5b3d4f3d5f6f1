// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
)

var (
	scanDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "server_scanner_scan_duration_seconds",
		Help:    "Duration of complete inventory scans.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"result"})

	sourceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "server_scanner_source_duration_seconds",
		Help:    "Duration of the queries against a single vendor or cluster.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"kind", "source"})

	sourceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "server_scanner_source_errors_total",
		Help: "Number of vendor and cluster queries that failed.",
	}, []string{"kind", "source", "reason"})
)

func init() {
	metrics.Registry.MustRegister(scanDuration, sourceDuration, sourceErrors)
}

// InventoryCollector exports the most recent inventory as gauges.
type InventoryCollector struct {
	mux        sync.RWMutex
	inv        *inventory.Inventory
	serverDesc *prometheus.Desc
	zoneless   *prometheus.Desc
	installed  *prometheus.Desc
	reachable  *prometheus.Desc
	duplicates *prometheus.Desc
	lastScan   *prometheus.Desc
}

// NewInventoryCollector returns an InventoryCollector registered with reg.
// A nil reg registers with the controller-runtime metrics registry.
func NewInventoryCollector(reg prometheus.Registerer) *InventoryCollector {
	c := &InventoryCollector{
		serverDesc: prometheus.NewDesc(
			"server_scanner_servers",
			"Number of servers per zone, vendor and installation status.",
			[]string{"zone", "vendor", "status"},
			nil,
		),
		zoneless: prometheus.NewDesc(
			"server_scanner_zoneless_servers",
			"Number of server profiles without zone.",
			nil, nil,
		),
		installed: prometheus.NewDesc(
			"server_scanner_cluster_installed_servers",
			"Number of servers installed per cluster.",
			[]string{"cluster"},
			nil,
		),
		reachable: prometheus.NewDesc(
			"server_scanner_cluster_reachable",
			"Whether a cluster could be read during the last scan.",
			[]string{"cluster"},
			nil,
		),
		duplicates: prometheus.NewDesc(
			"server_scanner_duplicate_names",
			"Number of server names reported by more than one vendor.",
			nil, nil,
		),
		lastScan: prometheus.NewDesc(
			"server_scanner_last_scan_timestamp_seconds",
			"Time the exported inventory was generated.",
			nil, nil,
		),
	}
	if reg == nil {
		reg = metrics.Registry
	}
	reg.MustRegister(c)
	return c
}

// Update replaces the exported inventory.
func (c *InventoryCollector) Update(inv inventory.Inventory) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.inv = &inv
}

// Describe implements prometheus.Collector.
func (c *InventoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.serverDesc
	ch <- c.zoneless
	ch <- c.installed
	ch <- c.reachable
	ch <- c.duplicates
	ch <- c.lastScan
}

// Collect implements prometheus.Collector.
func (c *InventoryCollector) Collect(ch chan<- prometheus.Metric) {
	c.mux.RLock()
	defer c.mux.RUnlock()
	if c.inv == nil {
		return
	}

	type key struct {
		zone   string
		vendor inventory.Vendor
		status inventory.Status
	}
	counts := map[key]int{}
	for _, z := range c.inv.Zones {
		for v, servers := range z.Vendors {
			for _, s := range servers {
				counts[key{zone: z.Zone, vendor: v, status: s.Status}]++
			}
		}
	}
	for k, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.serverDesc, prometheus.GaugeValue, float64(n), k.zone, string(k.vendor), string(k.status))
	}
	ch <- prometheus.MustNewConstMetric(c.zoneless, prometheus.GaugeValue, float64(c.inv.Summary.TotalZoneless))
	for _, cs := range c.inv.Clusters {
		ch <- prometheus.MustNewConstMetric(c.installed, prometheus.GaugeValue, float64(cs.InstalledCount), cs.ClusterName)
		reachable := 0.0
		if cs.Reachable {
			reachable = 1
		}
		ch <- prometheus.MustNewConstMetric(c.reachable, prometheus.GaugeValue, reachable, cs.ClusterName)
	}
	ch <- prometheus.MustNewConstMetric(c.duplicates, prometheus.GaugeValue, float64(len(c.inv.Duplicates)))
	if !c.inv.GeneratedAt.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.lastScan, prometheus.GaugeValue, float64(c.inv.GeneratedAt.Unix()))
	}
}
