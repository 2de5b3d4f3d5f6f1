// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package cluster determines which servers are installed by reading
// installation records from Kubernetes clusters.
package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/ironcore-dev/server-scanner/internal/hostname"
)

// Source selects the kind of installation record read from a cluster.
type Source string

const (
	// SourceAgents reads agent-install.openshift.io Agents.
	SourceAgents Source = "agents"
	// SourceBareMetalHosts reads metal3.io BareMetalHosts.
	SourceBareMetalHosts Source = "baremetalhosts"
)

// ParseSource parses the name of a record source.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceAgents, SourceBareMetalHosts:
		return Source(s), nil
	case "":
		return SourceAgents, nil
	}
	return "", fmt.Errorf("unknown installed source %q, must be one of [%s %s]", s, SourceAgents, SourceBareMetalHosts)
}

const (
	// DefaultTimeout bounds the queries against a single cluster.
	DefaultTimeout = 30 * time.Second
	// DefaultConcurrency is the number of clusters queried in parallel.
	DefaultConcurrency = 4
	// APIServerPort is the port of the cluster API servers.
	APIServerPort = 6443
)

// Config identifies a cluster and the credentials used to read from it.
type Config struct {
	Name   string
	Domain string
	Token  string
}

// Endpoint returns the URL of the API server of the cluster.
func (c Config) Endpoint() string {
	return fmt.Sprintf("https://api.%s.%s:%d", c.Name, c.Domain, APIServerPort)
}

// RecordLister lists the installation records of one cluster.
type RecordLister interface {
	ListRecords(ctx context.Context) ([]hostname.Record, error)
}

// ListerFunc creates the RecordLister of a cluster.
type ListerFunc func(cluster Config) (RecordLister, error)
