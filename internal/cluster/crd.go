// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
)

// CRDName returns the name of the CustomResourceDefinition of the records
// read from the source.
func (s Source) CRDName() string {
	switch s {
	case SourceBareMetalHosts:
		return "baremetalhosts.metal3.io"
	default:
		return "agents.agent-install.openshift.io"
	}
}

// Health describes the ability of the scanner to read a cluster.
type Health struct {
	Cluster  string `json:"cluster"`
	Endpoint string `json:"endpoint"`
	// Reachable is true if the API server answered with valid credentials.
	Reachable bool `json:"reachable"`
	// CRD is the name of the record CustomResourceDefinition.
	CRD string `json:"crd"`
	// ServedVersions are the versions of the CRD served by the cluster. It
	// is empty if the CRD is not installed.
	ServedVersions []string `json:"servedVersions,omitempty"`
	// Records is the number of installation records in the cluster.
	Records int                    `json:"records"`
	Reason  inventory.SourceReason `json:"reason,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// Installed reports whether the record CRD is served by the cluster.
func (h Health) Installed() bool {
	return len(h.ServedVersions) > 0
}

// ServedVersions returns the served versions of the CRD name. A CRD that is
// not installed has no served versions and no error.
func ServedVersions(ctx context.Context, c client.Reader, name string) ([]string, error) {
	crd := &apiextensionsv1.CustomResourceDefinition{}
	if err := c.Get(ctx, client.ObjectKey{Name: name}, crd); err != nil {
		if Reason(err) == inventory.ReasonNotInstalled {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get crd %s: %w", name, err)
	}
	var versions []string
	for _, v := range crd.Spec.Versions {
		if v.Served {
			versions = append(versions, v.Name)
		}
	}
	return versions, nil
}

// CheckHealth probes the CRD and the records of a cluster through c.
func CheckHealth(ctx context.Context, c client.Reader, cluster Config, opts KubeOptions) Health {
	h := Health{Cluster: cluster.Name, Endpoint: cluster.Endpoint(), CRD: opts.Source.CRDName()}
	fail := func(err error) Health {
		h.Reason = Reason(err)
		h.Message = err.Error()
		return h
	}

	versions, err := ServedVersions(ctx, c, h.CRD)
	if err != nil {
		return fail(err)
	}
	h.Reachable = true
	h.ServedVersions = versions
	if !h.Installed() {
		h.Reason = inventory.ReasonNotInstalled
		h.Message = fmt.Sprintf("crd %s is not installed", h.CRD)
		return h
	}

	lister, err := NewLister(c, opts)
	if err != nil {
		return fail(err)
	}
	records, err := lister.ListRecords(ctx)
	if err != nil {
		return fail(err)
	}
	h.Records = len(records)
	return h
}

// ReaderFunc creates the client of a cluster.
type ReaderFunc func(cluster Config) (client.Reader, error)

// NewKubeReaderFunc returns a ReaderFunc creating controller-runtime clients
// for the API server of each cluster.
func NewKubeReaderFunc(opts KubeOptions) ReaderFunc {
	return func(cluster Config) (client.Reader, error) {
		return client.New(RESTConfig(cluster, opts), client.Options{Scheme: scheme})
	}
}

// CheckClusters checks the health of all clusters in parallel and returns the
// results in the order of clusters.
func CheckClusters(ctx context.Context, clusters []Config, newReader ReaderFunc, opts KubeOptions, resolverOpts ResolverOptions) []Health {
	timeout, concurrency := resolverOpts.Timeout, resolverOpts.Concurrency
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	res := make([]Health, len(clusters))
	g := &errgroup.Group{}
	g.SetLimit(concurrency)
	for i, c := range clusters {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			reader, err := newReader(c)
			if err != nil {
				res[i] = Health{Cluster: c.Name, Endpoint: c.Endpoint(), CRD: opts.Source.CRDName(),
					Reason: inventory.ReasonUnknown, Message: err.Error()}
				return nil
			}
			res[i] = CheckHealth(ctx, reader, c, opts)
			return nil
		})
	}
	_ = g.Wait()
	return res
}
