// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package dashboard serves the cached inventory over HTTP.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/wait"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
	"github.com/ironcore-dev/server-scanner/internal/cache"
	"github.com/ironcore-dev/server-scanner/internal/reconciler"
	"github.com/ironcore-dev/server-scanner/internal/scanner"
	"github.com/ironcore-dev/server-scanner/internal/zone"
)

const shutdownTimeout = 10 * time.Second

// Scanner produces inventories.
type Scanner interface {
	Scan(ctx context.Context, req scanner.Request) (inventory.Inventory, error)
}

// Options configure a Server.
type Options struct {
	// Addr is the address the server listens on.
	Addr string
	// Defaults are the reconciliation options of requests without query
	// parameters.
	Defaults reconciler.Options
	// ScanInterval is the period of the background rescan. Only the initial
	// scan runs if zero.
	ScanInterval time.Duration
	// Clusters are the names of the configured clusters.
	Clusters []string
}

// Server holds the HTTP server's state.
type Server struct {
	addr     string
	mux      *http.ServeMux
	log      logr.Logger
	scanner  Scanner
	cache    *cache.Cache
	defaults reconciler.Options
	interval time.Duration
	clusters []string
}

// NewServer initializes and returns a new Server instance. The server caches
// the full inventory and narrows it per request.
func NewServer(log logr.Logger, s Scanner, c *cache.Cache, opts Options) *Server {
	server := &Server{
		addr:     opts.Addr,
		mux:      http.NewServeMux(),
		log:      log,
		scanner:  s,
		cache:    c,
		defaults: opts.Defaults,
		interval: opts.ScanInterval,
		clusters: opts.Clusters,
	}
	server.routes()
	return server
}

// routes registers the server's routes.
func (s *Server) routes() {
	s.handle("GET /api/servers", s.serversHandler)
	s.handle("GET /api/zones", s.zonesHandler)
	s.handle("GET /api/clusters", s.clustersHandler)
	s.handle("GET /api/duplicates", s.duplicatesHandler)
	s.handle("GET /api/cache/status", s.cacheStatusHandler)
	s.handle("POST /api/cache/clear", s.cacheClearHandler)
	s.handle("POST /api/scan/trigger", s.scanTriggerHandler)
	s.handle("GET /healthz", s.healthzHandler)
	s.handle("GET /readyz", s.readyzHandler)
	s.mux.Handle("GET /metrics", instrument(s.log, "/metrics",
		promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
}

func (s *Server) handle(pattern string, handler http.HandlerFunc) {
	s.mux.Handle(pattern, instrument(s.log, pattern, handler))
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) refresh(ctx context.Context) (inventory.Inventory, error) {
	return s.scanner.Scan(ctx, scanner.Request{Options: reconciler.Full})
}

// requestOptions derives the reconciliation options of a request from its
// query parameters.
func (s *Server) requestOptions(r *http.Request) (reconciler.Options, bool, error) {
	q := r.URL.Query()
	opts := s.defaults
	if q.Has("zones") {
		opts.Allowlist = zone.ParseAllowlist(q.Get("zones"))
	}
	var errs []error
	parseBool := func(name string, dst *bool) {
		if !q.Has(name) {
			return
		}
		v, err := strconv.ParseBool(q.Get(name))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid value of %s: %q", name, q.Get(name)))
			return
		}
		*dst = v
	}
	forceRefresh := false
	parseBool("show_all", &opts.ShowAll)
	parseBool("keep_zoneless", &opts.KeepZoneless)
	parseBool("force_refresh", &forceRefresh)
	return opts, forceRefresh, errors.Join(errs...)
}

// serversHandler handles the /api/servers endpoint.
func (s *Server) serversHandler(w http.ResponseWriter, r *http.Request) {
	opts, forceRefresh, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		inv inventory.Inventory
		md  cache.Metadata
	)
	if forceRefresh {
		inv, md, err = s.cache.Refresh(r.Context(), s.refresh)
	} else {
		inv, md, err = s.cache.GetOrRefresh(r.Context(), s.refresh)
	}
	if err != nil {
		s.log.Error(err, "Failed to scan servers")
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("error scanning servers: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, inventory.DashboardData{
		Inventory: reconciler.Filter(inv, opts),
		CacheInfo: md.CacheInfo(),
	})
}

type zonesResponse struct {
	Zones  []string `json:"zones"`
	Cached bool     `json:"cached"`
}

// zonesHandler handles the /api/zones endpoint.
func (s *Server) zonesHandler(w http.ResponseWriter, r *http.Request) {
	inv, cached, err := s.inventory(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("error getting zones: %w", err))
		return
	}
	zones := make([]string, 0, len(inv.Zones))
	for _, name := range inv.ZoneNames() {
		if name != inventory.UnknownZone {
			zones = append(zones, name)
		}
	}
	s.writeJSON(w, http.StatusOK, zonesResponse{Zones: zones, Cached: cached})
}

type clustersResponse struct {
	Clusters []string                 `json:"clusters"`
	Stats    []inventory.ClusterStats `json:"stats,omitempty"`
}

// clustersHandler handles the /api/clusters endpoint. Statistics are only
// reported once an inventory is cached.
func (s *Server) clustersHandler(w http.ResponseWriter, _ *http.Request) {
	resp := clustersResponse{Clusters: s.clusters}
	if resp.Clusters == nil {
		resp.Clusters = []string{}
	}
	if inv, _, ok := s.cache.Get(); ok {
		resp.Stats = inv.Clusters
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type duplicatesResponse struct {
	Count      int                           `json:"count"`
	Duplicates map[string][]inventory.Vendor `json:"duplicates"`
}

// duplicatesHandler handles the /api/duplicates endpoint.
func (s *Server) duplicatesHandler(w http.ResponseWriter, r *http.Request) {
	inv, _, err := s.inventory(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("error getting duplicates: %w", err))
		return
	}
	resp := duplicatesResponse{Count: len(inv.Duplicates), Duplicates: inv.Duplicates}
	if resp.Duplicates == nil {
		resp.Duplicates = map[string][]inventory.Vendor{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// inventory returns the cached inventory, scanning if there is none. The
// second return value reports whether the inventory was cached before.
func (s *Server) inventory(ctx context.Context) (inventory.Inventory, bool, error) {
	if inv, _, ok := s.cache.Get(); ok {
		return inv, true, nil
	}
	inv, _, err := s.cache.GetOrRefresh(ctx, s.refresh)
	return inv, false, err
}

type cacheStatusResponse struct {
	TTLSeconds int64 `json:"cacheTTLSeconds"`
	inventory.CacheInfo
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	ScanID    string     `json:"scanID,omitempty"`
}

// cacheStatusHandler handles the /api/cache/status endpoint.
func (s *Server) cacheStatusHandler(w http.ResponseWriter, _ *http.Request) {
	md := s.cache.Status()
	resp := cacheStatusResponse{
		TTLSeconds: int64(s.cache.TTL() / time.Second),
		CacheInfo:  md.CacheInfo(),
		ScanID:     md.ScanID,
	}
	if md.Cached {
		resp.UpdatedAt = &md.UpdatedAt
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type statusResponse struct {
	Status string `json:"status"`
	ScanID string `json:"scanID,omitempty"`
	Error  string `json:"error,omitempty"`
}

// cacheClearHandler handles the /api/cache/clear endpoint.
func (s *Server) cacheClearHandler(w http.ResponseWriter, _ *http.Request) {
	s.cache.Clear()
	s.log.Info("Cleared cache")
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "cache cleared"})
}

// scanTriggerHandler handles the /api/scan/trigger endpoint.
func (s *Server) scanTriggerHandler(w http.ResponseWriter, r *http.Request) {
	_, md, err := s.cache.Refresh(r.Context(), s.refresh)
	switch {
	case err != nil:
		s.writeError(w, http.StatusServiceUnavailable, err)
	case md.LastError != "":
		s.writeJSON(w, http.StatusInternalServerError, statusResponse{Status: "scan failed", ScanID: md.ScanID, Error: md.LastError})
	default:
		s.writeJSON(w, http.StatusOK, statusResponse{Status: "scan completed", ScanID: md.ScanID})
	}
}

func (s *Server) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// readyzHandler reports ready once an inventory is cached.
func (s *Server) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	if _, _, ok := s.cache.Get(); !ok {
		s.writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "no inventory cached"})
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error(err, "Error encoding response")
	}
}

// rescan refreshes the cache. Failures are recorded in the cache metadata.
func (s *Server) rescan(ctx context.Context) {
	log := s.log.WithName("rescan")
	inv, md, err := s.cache.Refresh(ctrl.LoggerInto(ctx, log), s.refresh)
	switch {
	case err != nil:
		log.Error(err, "Background scan failed")
	case md.LastError != "":
		log.Info("Background scan failed, serving previous inventory", "error", md.LastError, "scanID", md.ScanID)
	default:
		log.Info("Background scan completed", "scanID", inv.ScanID, "profiles", inv.Summary.TotalProfiles)
	}
}

// Start runs the server and the background rescan until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.serve(ctx)
	})
	g.Go(func() error {
		if s.interval <= 0 {
			s.rescan(ctx)
			return nil
		}
		wait.UntilWithContext(ctx, s.rescan, s.interval)
		return nil
	})
	return g.Wait()
}

// serve starts the server on the specified address and adds logging for key events.
func (s *Server) serve(ctx context.Context) error {
	s.log.Info("Starting dashboard server", "address", s.addr)
	server := &http.Server{Addr: s.addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP dashboard server ListenAndServe: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down dashboard server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server Shutdown: %w", err)
		}
		s.log.Info("Dashboard server gracefully stopped")
		return nil
	case err := <-errChan:
		return err
	}
}
