// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package cache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
	"github.com/ironcore-dev/server-scanner/internal/cache"
)

var _ = Describe("Cache", func() {
	const ttl = time.Hour

	var (
		clk   *testingclock.FakeClock
		c     *cache.Cache
		calls atomic.Int32
		fail  atomic.Bool
	)

	refresh := func(context.Context) (inventory.Inventory, error) {
		n := calls.Add(1)
		if fail.Load() {
			return inventory.Inventory{}, errors.New("vendors unreachable")
		}
		return inventory.Inventory{ScanID: fmt.Sprintf("scan-%d", n)}, nil
	}

	BeforeEach(func() {
		calls.Store(0)
		fail.Store(false)
		clk = testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		c = cache.New(ttl, clk)
	})

	It("should start empty", func() {
		_, md, ok := c.Get()
		Expect(ok).To(BeFalse())
		Expect(md.Cached).To(BeFalse())
		Expect(c.Status().CacheInfo()).To(Equal(inventory.CacheInfo{}))
		Expect(c.TTL()).To(Equal(ttl))
	})

	It("should serve the inventory until it expires", func(ctx SpecContext) {
		inv, md, err := c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.ScanID).To(Equal("scan-1"))
		Expect(md.Cached).To(BeTrue())
		Expect(md.Stale).To(BeFalse())
		Expect(md.ScanID).To(Equal("scan-1"))

		clk.Step(10 * time.Minute)
		inv, md, err = c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.ScanID).To(Equal("scan-1"))
		Expect(md.CacheInfo()).To(Equal(inventory.CacheInfo{Cached: true, AgeSeconds: 600, NextRefreshSeconds: 3000}))
		Expect(calls.Load()).To(BeNumerically("==", 1))

		clk.Step(50 * time.Minute)
		inv, md, err = c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.ScanID).To(Equal("scan-2"))
		Expect(md.Age).To(BeZero())
		Expect(calls.Load()).To(BeNumerically("==", 2))
	})

	It("should keep the inventory and its timestamp if a refresh fails", func(ctx SpecContext) {
		_, first, err := c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())

		clk.Step(2 * ttl)
		fail.Store(true)
		inv, md, err := c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.ScanID).To(Equal("scan-1"))
		Expect(md.UpdatedAt).To(Equal(first.UpdatedAt))
		Expect(md.Stale).To(BeTrue())
		Expect(md.LastError).To(Equal("vendors unreachable"))
		Expect(md.NextRefresh).To(BeZero())

		inv, md, ok := c.Get()
		Expect(ok).To(BeTrue())
		Expect(inv.ScanID).To(Equal("scan-1"))
		Expect(md.UpdatedAt).To(Equal(first.UpdatedAt))

		fail.Store(false)
		clk.Step(cache.DefaultRetryBackoff)
		inv, md, err = c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.ScanID).To(Equal("scan-3"))
		Expect(md.LastError).To(BeEmpty())
		Expect(md.Stale).To(BeFalse())
	})

	It("should not retry a failed refresh before the backoff has passed", func(ctx SpecContext) {
		_, _, err := c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())

		clk.Step(2 * ttl)
		fail.Store(true)
		_, _, err = c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(BeNumerically("==", 2))

		clk.Step(cache.DefaultRetryBackoff / 2)
		inv, md, err := c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.ScanID).To(Equal("scan-1"))
		Expect(md.Stale).To(BeTrue())
		Expect(md.LastError).To(Equal("vendors unreachable"))
		Expect(calls.Load()).To(BeNumerically("==", 2))

		clk.Step(cache.DefaultRetryBackoff / 2)
		_, _, err = c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(BeNumerically("==", 3))

		By("refreshing explicitly regardless of the backoff")
		fail.Store(false)
		inv, md, err = c.Refresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.ScanID).To(Equal("scan-4"))
		Expect(md.LastError).To(BeEmpty())
		Expect(calls.Load()).To(BeNumerically("==", 4))
	})

	It("should retry on every call without a backoff", func(ctx SpecContext) {
		c.RetryBackoff = 0
		_, _, err := c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())

		clk.Step(2 * ttl)
		fail.Store(true)
		for range 3 {
			_, md, err := c.GetOrRefresh(ctx, refresh)
			Expect(err).NotTo(HaveOccurred())
			Expect(md.Stale).To(BeTrue())
		}
		Expect(calls.Load()).To(BeNumerically("==", 4))
	})

	It("should return the error if there is nothing to serve", func(ctx SpecContext) {
		fail.Store(true)
		_, md, err := c.GetOrRefresh(ctx, refresh)
		Expect(err).To(MatchError("vendors unreachable"))
		Expect(md.Cached).To(BeFalse())
		Expect(md.LastError).To(Equal("vendors unreachable"))

		_, _, ok := c.Get()
		Expect(ok).To(BeFalse())
	})

	It("should refresh on demand", func(ctx SpecContext) {
		_, _, err := c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		inv, _, err := c.Refresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.ScanID).To(Equal("scan-2"))
	})

	It("should drop the inventory on clear", func(ctx SpecContext) {
		_, _, err := c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		c.Clear()
		_, md, ok := c.Get()
		Expect(ok).To(BeFalse())
		Expect(md).To(Equal(cache.Metadata{}))

		inv, _, err := c.GetOrRefresh(ctx, refresh)
		Expect(err).NotTo(HaveOccurred())
		Expect(inv.ScanID).To(Equal("scan-2"))
	})

	It("should let concurrent callers share one refresh", func(ctx SpecContext) {
		release := make(chan struct{})
		blocking := func(ctx context.Context) (inventory.Inventory, error) {
			<-release
			return refresh(ctx)
		}

		const callers = 5
		results := make([]string, callers)
		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				inv, _, err := c.GetOrRefresh(ctx, blocking)
				Expect(err).NotTo(HaveOccurred())
				results[i] = inv.ScanID
			}()
		}
		close(release)
		wg.Wait()

		Expect(calls.Load()).To(BeNumerically("==", 1))
		for _, id := range results {
			Expect(id).To(Equal("scan-1"))
		}
	}, SpecTimeout(5*time.Second))
})
