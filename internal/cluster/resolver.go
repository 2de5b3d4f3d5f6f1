// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
	"github.com/ironcore-dev/server-scanner/internal/hostname"
)

// Installed holds the canonical names of the servers installed per cluster.
type Installed struct {
	// Sets maps each cluster to the names installed in it. Failed clusters
	// map to an empty set.
	Sets map[string]sets.Set[string]
	// Order lists the clusters in configuration order.
	Order []string
	// Errors describes the clusters that could not be read.
	Errors []inventory.SourceError
}

// Reachable reports whether the cluster was read successfully.
func (i Installed) Reachable(cluster string) bool {
	for _, e := range i.Errors {
		if e.Source == cluster {
			return false
		}
	}
	_, ok := i.Sets[cluster]
	return ok
}

// Count returns the number of distinct installed names across all clusters.
func (i Installed) Count() int {
	all := sets.New[string]()
	for _, s := range i.Sets {
		all = all.Union(s)
	}
	return all.Len()
}

// ResolverOptions configure a Resolver.
type ResolverOptions struct {
	// Timeout bounds the queries against a single cluster.
	Timeout time.Duration
	// Concurrency is the number of clusters queried in parallel.
	Concurrency int
	// Backoff controls the retries of transient API errors.
	Backoff *wait.Backoff
}

// Resolver resolves the servers installed in a set of clusters.
type Resolver struct {
	hostnames   *hostname.Resolver
	newLister   ListerFunc
	timeout     time.Duration
	concurrency int
	backoff     wait.Backoff
}

// NewResolver returns a Resolver naming records with hostnames and reading
// them through the listers created by newLister.
func NewResolver(hostnames *hostname.Resolver, newLister ListerFunc, opts ResolverOptions) *Resolver {
	r := &Resolver{
		hostnames:   hostnames,
		newLister:   newLister,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		backoff:     retry.DefaultBackoff,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.concurrency <= 0 {
		r.concurrency = DefaultConcurrency
	}
	if opts.Backoff != nil {
		r.backoff = *opts.Backoff
	}
	return r
}

type clusterResult struct {
	names sets.Set[string]
	err   *inventory.SourceError
}

// ResolveInstalled reads all clusters in parallel. A cluster that fails
// contributes an empty set and an entry in Installed.Errors.
func (r *Resolver) ResolveInstalled(ctx context.Context, clusters []Config) Installed {
	log := ctrl.LoggerFrom(ctx).WithName("cluster")

	results := make([]clusterResult, len(clusters))
	g := &errgroup.Group{}
	g.SetLimit(r.concurrency)
	for i, c := range clusters {
		g.Go(func() error {
			results[i] = r.resolve(ctx, log.WithValues("cluster", c.Name), c)
			return nil
		})
	}
	_ = g.Wait()

	installed := Installed{Sets: make(map[string]sets.Set[string], len(clusters))}
	for i, c := range clusters {
		res := results[i]
		if existing, ok := installed.Sets[c.Name]; ok {
			installed.Sets[c.Name] = existing.Union(res.names)
		} else {
			installed.Order = append(installed.Order, c.Name)
			installed.Sets[c.Name] = res.names
		}
		if res.err != nil {
			installed.Errors = append(installed.Errors, *res.err)
		}
	}
	log.Info("Resolved installed servers", "clusters", len(installed.Order), "installed", installed.Count(), "failed", len(installed.Errors))
	return installed
}

func (r *Resolver) resolve(ctx context.Context, log logr.Logger, c Config) clusterResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fail := func(err error) clusterResult {
		reason := Reason(err)
		if reason == inventory.ReasonUnknown && ctx.Err() != nil {
			reason = inventory.ReasonTimeout
		}
		log.Error(err, "Failed to read installation records", "endpoint", c.Endpoint(), "reason", reason)
		return clusterResult{
			names: sets.New[string](),
			err: &inventory.SourceError{
				Kind:    inventory.SourceKindCluster,
				Source:  c.Name,
				Reason:  reason,
				Message: err.Error(),
			},
		}
	}

	lister, err := r.newLister(c)
	if err != nil {
		return fail(err)
	}

	var records []hostname.Record
	err = retry.OnError(r.backoff, func(err error) bool {
		return ctx.Err() == nil && isTransient(err)
	}, func() error {
		var err error
		records, err = lister.ListRecords(ctx)
		return err
	})
	if err != nil {
		return fail(err)
	}

	names := sets.New[string]()
	for _, record := range records {
		name, ok := r.hostnames.Resolve(record)
		if !ok {
			log.V(1).Info("Skipping installation record without server name", "record", record.Source)
			continue
		}
		names.Insert(name)
	}
	log.V(1).Info("Read installation records", "records", len(records), "installed", names.Len())
	return clusterResult{names: names}
}
