// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package cache holds the most recent inventory of the process.
package cache

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
)

// DefaultTTL is the time an inventory is served before it is refreshed.
const DefaultTTL = time.Hour

// DefaultRetryBackoff is the time a stale inventory is served after a failed
// refresh before the next refresh is attempted.
const DefaultRetryBackoff = time.Minute

// RefreshFunc produces a new inventory.
type RefreshFunc func(ctx context.Context) (inventory.Inventory, error)

// Metadata describes the cached inventory.
type Metadata struct {
	// Cached is true if an inventory is held.
	Cached bool
	// UpdatedAt is the time the held inventory was stored.
	UpdatedAt time.Time
	// Age is the time since UpdatedAt.
	Age time.Duration
	// NextRefresh is the time until the inventory expires.
	NextRefresh time.Duration
	// Stale is true if the held inventory has expired.
	Stale bool
	// LastError is the error of the last refresh if it failed.
	LastError string
	// ScanID identifies the scan that produced the held inventory.
	ScanID string
}

// CacheInfo returns the metadata in its wire representation.
func (m Metadata) CacheInfo() inventory.CacheInfo {
	return inventory.CacheInfo{
		Cached:             m.Cached,
		AgeSeconds:         int64(m.Age / time.Second),
		NextRefreshSeconds: int64(m.NextRefresh / time.Second),
		Stale:              m.Stale,
		LastError:          m.LastError,
	}
}

// Cache holds one inventory and the time it was stored. A failed refresh
// never replaces or clears the held inventory.
type Cache struct {
	// RetryBackoff is the time GetOrRefresh serves a stale inventory after a
	// failed refresh without retrying. Zero retries on every call.
	RetryBackoff time.Duration

	ttl   time.Duration
	clock clock.PassiveClock

	// refreshMu serialises refreshes.
	refreshMu sync.Mutex

	mu        sync.RWMutex
	value     *inventory.Inventory
	updatedAt time.Time
	lastErr   error
	failedAt  time.Time
}

// New returns an empty Cache expiring entries after ttl. A nil clock uses
// the wall clock.
func New(ttl time.Duration, clk clock.PassiveClock) *Cache {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Cache{RetryBackoff: DefaultRetryBackoff, ttl: ttl, clock: clk}
}

// TTL returns the time an inventory is served before it is refreshed.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the held inventory without refreshing it. The last return
// value is false if the cache is empty.
func (c *Cache) Get() (inventory.Inventory, Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value == nil {
		return inventory.Inventory{}, c.metadataLocked(), false
	}
	return *c.value, c.metadataLocked(), true
}

// Status returns the metadata of the held inventory.
func (c *Cache) Status() Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metadataLocked()
}

// Clear drops the held inventory.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	c.updatedAt = time.Time{}
	c.lastErr = nil
	c.failedAt = time.Time{}
}

// GetOrRefresh returns the held inventory if it has not expired and refreshes
// it otherwise. Callers arriving during a refresh wait for it and receive its
// result. If the refresh fails the previous inventory is returned with the
// error recorded in the metadata, and no further refresh is attempted for
// RetryBackoff. The error is only returned if there is no previous inventory.
func (c *Cache) GetOrRefresh(ctx context.Context, refresh RefreshFunc) (inventory.Inventory, Metadata, error) {
	if inv, md, ok := c.fresh(); ok {
		return inv, md, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if inv, md, ok := c.fresh(); ok {
		return inv, md, nil
	}
	return c.refreshLocked(ctx, refresh)
}

// Refresh refreshes the inventory regardless of its age, with the failure
// semantics of GetOrRefresh.
func (c *Cache) Refresh(ctx context.Context, refresh RefreshFunc) (inventory.Inventory, Metadata, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshLocked(ctx, refresh)
}

func (c *Cache) fresh() (inventory.Inventory, Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value == nil || (c.expiredLocked() && !c.backingOffLocked()) {
		return inventory.Inventory{}, Metadata{}, false
	}
	return *c.value, c.metadataLocked(), true
}

func (c *Cache) refreshLocked(ctx context.Context, refresh RefreshFunc) (inventory.Inventory, Metadata, error) {
	inv, err := refresh(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		c.failedAt = c.clock.Now()
		if c.value == nil {
			return inventory.Inventory{}, c.metadataLocked(), err
		}
		return *c.value, c.metadataLocked(), nil
	}
	c.value = &inv
	c.updatedAt = c.clock.Now()
	c.lastErr = nil
	c.failedAt = time.Time{}
	return inv, c.metadataLocked(), nil
}

func (c *Cache) expiredLocked() bool {
	return c.clock.Since(c.updatedAt) >= c.ttl
}

func (c *Cache) backingOffLocked() bool {
	return c.lastErr != nil && c.RetryBackoff > 0 && c.clock.Since(c.failedAt) < c.RetryBackoff
}

func (c *Cache) metadataLocked() Metadata {
	md := Metadata{}
	if c.lastErr != nil {
		md.LastError = c.lastErr.Error()
	}
	if c.value == nil {
		return md
	}
	md.Cached = true
	md.UpdatedAt = c.updatedAt
	md.ScanID = c.value.ScanID
	md.Age = c.clock.Since(c.updatedAt)
	md.NextRefresh = max(c.ttl-md.Age, 0)
	md.Stale = c.expiredLocked()
	return md
}
