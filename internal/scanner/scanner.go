// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package scanner runs inventory scans across vendors and clusters.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
	"github.com/ironcore-dev/server-scanner/internal/cluster"
	"github.com/ironcore-dev/server-scanner/internal/reconciler"
	"github.com/ironcore-dev/server-scanner/internal/vendor"
	"github.com/ironcore-dev/server-scanner/internal/zone"
)

const logoutTimeout = 10 * time.Second

var (
	// ErrNoVendors is returned if a scan has no vendor to query.
	ErrNoVendors = errors.New("no vendor configured")
	// ErrNotFound is returned if no vendor knows a server.
	ErrNotFound = errors.New("server not found")
)

// AdapterFunc creates the adapter of a vendor.
type AdapterFunc func(v inventory.Vendor, opts vendor.Options) (vendor.Adapter, error)

// Scanner queries the configured vendors and clusters and reconciles their
// results.
type Scanner struct {
	// Vendors holds the options of every configured vendor.
	Vendors map[inventory.Vendor]vendor.Options
	// Clusters are the clusters installed servers are read from.
	Clusters []cluster.Config
	// Resolver reads the installed servers. Clusters are skipped if nil.
	Resolver *cluster.Resolver
	// Pattern selects the vendor profiles. Defaults to vendor.DefaultProfilePattern.
	Pattern *regexp.Regexp
	// NewAdapter creates vendor adapters. Defaults to vendor.New.
	NewAdapter AdapterFunc
	// Clock stamps inventories. Defaults to the wall clock.
	Clock clock.PassiveClock
	// Collector exports every successful scan if set.
	Collector *InventoryCollector
}

// Request parameterises a scan.
type Request struct {
	// Vendors restricts the scan. All configured vendors are queried if empty.
	Vendors []inventory.Vendor
	// Options control the zone grouping of the result.
	Options reconciler.Options
	// Pattern overrides Scanner.Pattern if set.
	Pattern *regexp.Regexp
}

// ConfiguredVendors returns the configured vendors in canonical order.
func (s *Scanner) ConfiguredVendors() []inventory.Vendor {
	var vendors []inventory.Vendor
	for _, v := range inventory.Vendors {
		if _, ok := s.Vendors[v]; ok {
			vendors = append(vendors, v)
		}
	}
	return vendors
}

func (s *Scanner) selectVendors(requested []inventory.Vendor) ([]inventory.Vendor, error) {
	configured := s.ConfiguredVendors()
	if len(requested) == 0 {
		if len(configured) == 0 {
			return nil, ErrNoVendors
		}
		return configured, nil
	}
	var selected []inventory.Vendor
	for _, v := range configured {
		if slices.Contains(requested, v) {
			selected = append(selected, v)
		}
	}
	for _, v := range requested {
		if !slices.Contains(configured, v) {
			return nil, fmt.Errorf("vendor %s is not configured", v)
		}
	}
	return selected, nil
}

func (s *Scanner) pattern(override *regexp.Regexp) *regexp.Regexp {
	if override != nil {
		return override
	}
	if s.Pattern != nil {
		return s.Pattern
	}
	return regexp.MustCompile(vendor.DefaultProfilePattern)
}

func (s *Scanner) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

// Scan queries vendors and clusters in parallel and reconciles the results.
// Failing sources are reported in the Errors of the inventory. Scan fails if
// every queried vendor failed.
func (s *Scanner) Scan(ctx context.Context, req Request) (inventory.Inventory, error) {
	log := ctrl.LoggerFrom(ctx).WithName("scanner")
	start := time.Now()

	vendors, err := s.selectVendors(req.Vendors)
	if err != nil {
		return inventory.Inventory{}, err
	}
	scanID := uuid.NewString()
	log = log.WithValues("scanID", scanID)
	log.Info("Starting scan", "vendors", vendors, "clusters", len(s.Clusters))

	profiles, vendorErrs, installed := s.collect(ctrl.LoggerInto(ctx, log), vendors, s.pattern(req.Pattern))
	if len(vendorErrs) == len(vendors) {
		scanDuration.WithLabelValues("failure").Observe(time.Since(start).Seconds())
		return inventory.Inventory{}, allFailed(vendorErrs)
	}

	inv := reconciler.Reconcile(profiles, installed, req.Options)
	inv.ScanID = scanID
	inv.GeneratedAt = s.now()
	inv.Errors = append(vendorErrs, inv.Errors...)

	scanDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	if s.Collector != nil {
		s.Collector.Update(inv)
	}
	log.Info("Finished scan",
		"profiles", inv.Summary.TotalProfiles,
		"available", inv.Summary.TotalAvailable,
		"installed", inv.Summary.TotalInstalled,
		"zones", inv.Summary.TotalZones,
		"duplicates", len(inv.Duplicates),
		"errors", len(inv.Errors),
		"duration", time.Since(start))
	return inv, nil
}

// Describe looks up a single server by name in all configured vendors and
// reports its installation status. The returned source errors describe the
// sources that could not be queried.
func (s *Scanner) Describe(ctx context.Context, name string) ([]inventory.ServerInfo, []inventory.SourceError, error) {
	vendors, err := s.selectVendors(nil)
	if err != nil {
		return nil, nil, err
	}

	profiles, vendorErrs, installed := s.collect(ctx, vendors, vendor.ExactNamePattern(name))
	sourceErrs := append(vendorErrs, installed.Errors...)
	if len(profiles) == 0 {
		if len(vendorErrs) == len(vendors) {
			return nil, sourceErrs, fmt.Errorf("failed to look up %s: all vendors failed", name)
		}
		return nil, sourceErrs, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	lookup := reconciler.InstalledLookup(installed)
	servers := make([]inventory.ServerInfo, 0, len(profiles))
	for _, p := range profiles {
		servers = append(servers, reconciler.Classify(p, lookup))
	}
	return servers, sourceErrs, nil
}

// Zones returns the zones of the profiles of the requested vendors. All
// configured vendors are queried if requested is empty.
func (s *Scanner) Zones(ctx context.Context, requested []inventory.Vendor) ([]string, []inventory.SourceError, error) {
	vendors, err := s.selectVendors(requested)
	if err != nil {
		return nil, nil, err
	}
	profiles, vendorErrs := s.CollectProfiles(ctx, vendors, s.pattern(nil))
	if len(vendorErrs) == len(vendors) {
		return nil, vendorErrs, allFailed(vendorErrs)
	}
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	return zone.FromNames(names), vendorErrs, nil
}

func allFailed(vendorErrs []inventory.SourceError) error {
	errs := make([]error, 0, len(vendorErrs))
	for _, e := range vendorErrs {
		errs = append(errs, e)
	}
	return fmt.Errorf("all vendors failed: %w", errors.Join(errs...))
}

// collect runs the vendor queries and the cluster queries concurrently.
func (s *Scanner) collect(ctx context.Context, vendors []inventory.Vendor, pattern *regexp.Regexp) ([]inventory.ServerProfile, []inventory.SourceError, cluster.Installed) {
	var (
		profiles   []inventory.ServerProfile
		vendorErrs []inventory.SourceError
		installed  cluster.Installed
	)
	g := &errgroup.Group{}
	g.Go(func() error {
		profiles, vendorErrs = s.CollectProfiles(ctx, vendors, pattern)
		return nil
	})
	g.Go(func() error {
		installed = s.resolveInstalled(ctx)
		return nil
	})
	_ = g.Wait()
	return profiles, vendorErrs, installed
}

func (s *Scanner) resolveInstalled(ctx context.Context) cluster.Installed {
	if s.Resolver == nil || len(s.Clusters) == 0 {
		return cluster.Installed{}
	}
	start := time.Now()
	installed := s.Resolver.ResolveInstalled(ctx, s.Clusters)
	for _, name := range installed.Order {
		sourceDuration.WithLabelValues(string(inventory.SourceKindCluster), name).Observe(time.Since(start).Seconds())
	}
	for _, e := range installed.Errors {
		sourceErrors.WithLabelValues(string(e.Kind), e.Source, string(e.Reason)).Inc()
	}
	return installed
}

// CollectProfiles queries vendors in parallel. The profiles are returned in
// vendor order, each vendor in the order it reported them. A failing vendor
// contributes no profiles and a SourceError.
func (s *Scanner) CollectProfiles(ctx context.Context, vendors []inventory.Vendor, pattern *regexp.Regexp) ([]inventory.ServerProfile, []inventory.SourceError) {
	results := make([][]inventory.ServerProfile, len(vendors))
	errs := make([]*inventory.SourceError, len(vendors))

	g := &errgroup.Group{}
	for i, v := range vendors {
		g.Go(func() error {
			results[i], errs[i] = s.queryVendor(ctx, v, pattern)
			return nil
		})
	}
	_ = g.Wait()

	var profiles []inventory.ServerProfile
	var sourceErrs []inventory.SourceError
	for i := range vendors {
		profiles = append(profiles, results[i]...)
		if errs[i] != nil {
			sourceErrs = append(sourceErrs, *errs[i])
		}
	}
	return profiles, sourceErrs
}

func (s *Scanner) queryVendor(ctx context.Context, v inventory.Vendor, pattern *regexp.Regexp) ([]inventory.ServerProfile, *inventory.SourceError) {
	log := ctrl.LoggerFrom(ctx).WithValues("vendor", v)
	ctx = ctrl.LoggerInto(ctx, log)
	start := time.Now()
	defer func() {
		sourceDuration.WithLabelValues(string(inventory.SourceKindVendor), string(v)).Observe(time.Since(start).Seconds())
	}()

	newAdapter := s.NewAdapter
	if newAdapter == nil {
		newAdapter = vendor.New
	}

	fail := func(err error) ([]inventory.ServerProfile, *inventory.SourceError) {
		reason := vendor.Reason(err)
		sourceErrors.WithLabelValues(string(inventory.SourceKindVendor), string(v), string(reason)).Inc()
		log.Error(err, "Failed to query vendor", "reason", reason)
		return nil, &inventory.SourceError{
			Kind:    inventory.SourceKindVendor,
			Source:  string(v),
			Reason:  reason,
			Message: err.Error(),
		}
	}

	adapter, err := newAdapter(v, s.Vendors[v])
	if err != nil {
		return fail(err)
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()
		if err := adapter.Close(logoutCtx); err != nil {
			log.Error(err, "Failed to close vendor session")
		}
	}()

	profiles, err := adapter.GetServerProfiles(ctx, pattern)
	if err != nil {
		return fail(err)
	}
	log.V(1).Info("Queried vendor", "profiles", len(profiles))
	return profiles, nil
}
