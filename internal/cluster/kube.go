// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"fmt"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/rest"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	agentv1beta1 "github.com/ironcore-dev/server-scanner/api/v1beta1"
	"github.com/ironcore-dev/server-scanner/internal/hostname"
)

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(agentv1beta1.AddToScheme(scheme))
	utilruntime.Must(apiextensionsv1.AddToScheme(scheme))
}

// Scheme returns the scheme knowing the installation record types.
func Scheme() *runtime.Scheme {
	return scheme
}

// BareMetalHostListGVK is the kind of the list of metal3.io BareMetalHosts.
var BareMetalHostListGVK = schema.GroupVersionKind{Group: "metal3.io", Version: "v1alpha1", Kind: "BareMetalHostList"}

// KubeOptions configure the access to the cluster API servers.
type KubeOptions struct {
	// Source selects the kind of installation record.
	Source Source
	// Namespace restricts the records to one namespace. All namespaces are
	// read if empty.
	Namespace string
	// CAFile verifies the API server certificates. Verification is disabled
	// if empty.
	CAFile string
}

// RESTConfig returns the client configuration of a cluster.
func RESTConfig(cluster Config, opts KubeOptions) *rest.Config {
	cfg := &rest.Config{
		Host:        cluster.Endpoint(),
		BearerToken: cluster.Token,
		UserAgent:   "server-scanner",
	}
	if opts.CAFile != "" {
		cfg.TLSClientConfig = rest.TLSClientConfig{CAFile: opts.CAFile}
	} else {
		cfg.TLSClientConfig = rest.TLSClientConfig{Insecure: true}
	}
	return cfg
}

// NewKubeListerFunc returns a ListerFunc creating controller-runtime clients
// for the API server of each cluster.
func NewKubeListerFunc(opts KubeOptions) ListerFunc {
	return func(cluster Config) (RecordLister, error) {
		c, err := client.New(RESTConfig(cluster, opts), client.Options{Scheme: scheme})
		if err != nil {
			return nil, fmt.Errorf("failed creating client: %w", err)
		}
		return NewLister(c, opts)
	}
}

// NewLister returns the RecordLister of opts.Source reading through c.
func NewLister(c client.Reader, opts KubeOptions) (RecordLister, error) {
	switch opts.Source {
	case SourceAgents, "":
		return &AgentLister{client: c, namespace: opts.Namespace}, nil
	case SourceBareMetalHosts:
		return &BareMetalHostLister{client: c, namespace: opts.Namespace}, nil
	default:
		return nil, fmt.Errorf("unsupported installed source %q", opts.Source)
	}
}

// AgentLister reads installation records from Agents.
type AgentLister struct {
	client    client.Reader
	namespace string
}

func (l *AgentLister) ListRecords(ctx context.Context) ([]hostname.Record, error) {
	agents := &agentv1beta1.AgentList{}
	if err := l.client.List(ctx, agents, client.InNamespace(l.namespace)); err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	records := make([]hostname.Record, 0, len(agents.Items))
	for _, agent := range agents.Items {
		records = append(records, hostname.Record{
			Source:                    client.ObjectKeyFromObject(&agent).String(),
			SpecHostname:              agent.Spec.Hostname,
			SpecRequestedHostname:     agent.Spec.RequestedHostname,
			ObservedHostname:          agent.Status.Inventory.Hostname,
			ObservedRequestedHostname: agent.Status.RequestedHostname,
		})
	}
	return records, nil
}

// BareMetalHostLister reads installation records from BareMetalHosts. The
// name of a host is its specified hostname.
type BareMetalHostLister struct {
	client    client.Reader
	namespace string
}

func (l *BareMetalHostLister) ListRecords(ctx context.Context) ([]hostname.Record, error) {
	hosts := &unstructured.UnstructuredList{}
	hosts.SetGroupVersionKind(BareMetalHostListGVK)
	if err := l.client.List(ctx, hosts, client.InNamespace(l.namespace)); err != nil {
		return nil, fmt.Errorf("failed to list baremetalhosts: %w", err)
	}
	records := make([]hostname.Record, 0, len(hosts.Items))
	for _, host := range hosts.Items {
		records = append(records, hostname.Record{
			Source:       client.ObjectKeyFromObject(&host).String(),
			SpecHostname: ptr.To(host.GetName()),
		})
	}
	return records, nil
}
