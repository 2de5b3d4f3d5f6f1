// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package cluster_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/ptr"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
	"github.com/ironcore-dev/server-scanner/internal/cluster"
	"github.com/ironcore-dev/server-scanner/internal/hostname"
)

type listerFunc func(ctx context.Context) ([]hostname.Record, error)

func (f listerFunc) ListRecords(ctx context.Context) ([]hostname.Record, error) {
	return f(ctx)
}

func records(names ...string) listerFunc {
	return func(context.Context) ([]hostname.Record, error) {
		var recs []hostname.Record
		for _, name := range names {
			recs = append(recs, hostname.Record{Source: name, SpecHostname: ptr.To(name)})
		}
		return recs, nil
	}
}

func failing(err error) listerFunc {
	return func(context.Context) ([]hostname.Record, error) {
		return nil, err
	}
}

var agentResource = schema.GroupResource{Group: "agent-install.openshift.io", Resource: "agents"}

var _ = Describe("Resolver", func() {
	var (
		listers  map[string]cluster.RecordLister
		resolver *cluster.Resolver
	)

	clusters := func(names ...string) []cluster.Config {
		var cs []cluster.Config
		for _, name := range names {
			cs = append(cs, cluster.Config{Name: name, Domain: "example.com", Token: "token-" + name})
		}
		return cs
	}

	BeforeEach(func() {
		listers = map[string]cluster.RecordLister{}
		resolver = cluster.NewResolver(hostname.MustNewResolver(""), func(c cluster.Config) (cluster.RecordLister, error) {
			if l, ok := listers[c.Name]; ok {
				return l, nil
			}
			return nil, errors.New("no lister")
		}, cluster.ResolverOptions{
			Timeout: 200 * time.Millisecond,
			Backoff: &wait.Backoff{Steps: 5, Duration: time.Millisecond},
		})
	})

	It("should resolve the installed names per cluster", func(ctx SpecContext) {
		listers["a"] = listerFunc(func(context.Context) ([]hostname.Record, error) {
			return []hostname.Record{
				{SpecHostname: ptr.To("ocp4-hypershift-zone-a-01")},
				{SpecHostname: ptr.To("00:1a:2b:3c:4d:5e"), SpecRequestedHostname: ptr.To("ocp4-hypershift-zone-a-02")},
				{ObservedHostname: ptr.To("00:1a:2b:3c:4d:5f")},
				{SpecHostname: ptr.To("bootstrap")},
			}, nil
		})
		listers["b"] = records("ocp4-hypershift-zone-b-01", "ocp4-hypershift-zone-b-01")

		installed := resolver.ResolveInstalled(ctx, clusters("a", "b"))
		Expect(installed.Order).To(Equal([]string{"a", "b"}))
		Expect(installed.Errors).To(BeEmpty())
		Expect(installed.Sets).To(Equal(map[string]sets.Set[string]{
			"a": sets.New("ocp4-hypershift-zone-a-01", "ocp4-hypershift-zone-a-02"),
			"b": sets.New("ocp4-hypershift-zone-b-01"),
		}))
		Expect(installed.Count()).To(Equal(3))
		Expect(installed.Reachable("a")).To(BeTrue())
	})

	It("should tolerate failing clusters", func(ctx SpecContext) {
		listers["ok"] = records("ocp4-hypershift-zone-a-01")
		listers["unauthorized"] = failing(apierrors.NewUnauthorized("token expired"))
		listers["forbidden"] = failing(apierrors.NewForbidden(agentResource, "", errors.New("no access")))
		listers["no-crd"] = failing(&meta.NoKindMatchError{
			GroupKind:        schema.GroupKind{Group: "agent-install.openshift.io", Kind: "Agent"},
			SearchedVersions: []string{"v1beta1"},
		})

		installed := resolver.ResolveInstalled(ctx, clusters("ok", "unauthorized", "forbidden", "no-crd", "missing"))
		Expect(installed.Order).To(Equal([]string{"ok", "unauthorized", "forbidden", "no-crd", "missing"}))
		Expect(installed.Sets["ok"].UnsortedList()).To(ConsistOf("ocp4-hypershift-zone-a-01"))
		for _, name := range []string{"unauthorized", "forbidden", "no-crd", "missing"} {
			Expect(installed.Sets).To(HaveKeyWithValue(name, BeEmpty()))
			Expect(installed.Reachable(name)).To(BeFalse())
		}

		reasons := map[string]inventory.SourceReason{}
		for _, e := range installed.Errors {
			Expect(e.Kind).To(Equal(inventory.SourceKindCluster))
			Expect(e.Message).NotTo(BeEmpty())
			reasons[e.Source] = e.Reason
		}
		Expect(reasons).To(Equal(map[string]inventory.SourceReason{
			"unauthorized": inventory.ReasonUnauthorized,
			"forbidden":    inventory.ReasonForbidden,
			"no-crd":       inventory.ReasonNotInstalled,
			"missing":      inventory.ReasonUnknown,
		}))
	})

	It("should retry transient errors", func(ctx SpecContext) {
		var calls atomic.Int32
		listers["a"] = listerFunc(func(ctx context.Context) ([]hostname.Record, error) {
			if calls.Add(1) < 3 {
				return nil, apierrors.NewServiceUnavailable("restarting")
			}
			return records("ocp4-hypershift-zone-a-01")(ctx)
		})

		installed := resolver.ResolveInstalled(ctx, clusters("a"))
		Expect(installed.Errors).To(BeEmpty())
		Expect(installed.Sets["a"].Has("ocp4-hypershift-zone-a-01")).To(BeTrue())
		Expect(calls.Load()).To(BeNumerically("==", 3))
	})

	It("should not retry permanent errors", func(ctx SpecContext) {
		var calls atomic.Int32
		listers["a"] = listerFunc(func(context.Context) ([]hostname.Record, error) {
			calls.Add(1)
			return nil, apierrors.NewUnauthorized("token expired")
		})

		installed := resolver.ResolveInstalled(ctx, clusters("a"))
		Expect(installed.Errors).To(HaveLen(1))
		Expect(calls.Load()).To(BeNumerically("==", 1))
	})

	It("should bound each cluster by the timeout", func(ctx SpecContext) {
		listers["slow"] = listerFunc(func(ctx context.Context) ([]hostname.Record, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		listers["fast"] = records("ocp4-hypershift-zone-a-01")

		installed := resolver.ResolveInstalled(ctx, clusters("slow", "fast"))
		Expect(installed.Sets["fast"].Len()).To(Equal(1))
		Expect(installed.Errors).To(ConsistOf(HaveField("Reason", inventory.ReasonTimeout)))
	}, SpecTimeout(5*time.Second))

	It("should merge clusters configured twice", func(ctx SpecContext) {
		listers["a"] = records("ocp4-hypershift-zone-a-01")
		installed := resolver.ResolveInstalled(ctx, clusters("a", "a"))
		Expect(installed.Order).To(Equal([]string{"a"}))
		Expect(installed.Sets["a"].Len()).To(Equal(1))
	})

	It("should return nothing without clusters", func(ctx SpecContext) {
		installed := resolver.ResolveInstalled(ctx, nil)
		Expect(installed.Order).To(BeEmpty())
		Expect(installed.Sets).To(BeEmpty())
		Expect(installed.Errors).To(BeEmpty())
	})
})
