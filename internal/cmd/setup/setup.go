// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package setup assembles the scanner of the command line tools from their
// configuration sources.
package setup

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/ironcore-dev/server-scanner/internal/cache"
	"github.com/ironcore-dev/server-scanner/internal/cluster"
	cmdclient "github.com/ironcore-dev/server-scanner/internal/cmd/client"
	"github.com/ironcore-dev/server-scanner/internal/config"
	"github.com/ironcore-dev/server-scanner/internal/dashboard"
	"github.com/ironcore-dev/server-scanner/internal/hostname"
	"github.com/ironcore-dev/server-scanner/internal/reconciler"
	"github.com/ironcore-dev/server-scanner/internal/scanner"
	"github.com/ironcore-dev/server-scanner/internal/vendor"
)

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
}

// Sources locate the configuration sources in addition to the process
// environment.
type Sources struct {
	// ConfigFile is a YAML configuration file.
	ConfigFile string
	// EnvFile is a dotenv file.
	EnvFile string
	// CredentialsSecret references a Secret in the hosting cluster as
	// "namespace/name".
	CredentialsSecret string
	// Kubeconfig locates the hosting cluster.
	Kubeconfig string
}

// LoadConfig merges the defaults, the configuration file, the dotenv file,
// the process environment and the credentials Secret in that order. The
// result is not validated.
func LoadConfig(ctx context.Context, src Sources) (*config.Config, error) {
	log := ctrl.LoggerFrom(ctx)
	cfg := config.Default()

	if src.ConfigFile != "" {
		if err := cfg.LoadFile(src.ConfigFile); err != nil {
			return nil, err
		}
		log.V(1).Info("Loaded config file", "path", src.ConfigFile)
	}
	if src.EnvFile != "" {
		if err := cfg.LoadEnvFile(src.EnvFile); err != nil {
			return nil, err
		}
		log.V(1).Info("Loaded env file", "path", src.EnvFile)
	}
	if err := cfg.LoadEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if src.CredentialsSecret != "" {
		key, err := config.ParseNamespacedName(src.CredentialsSecret)
		if err != nil {
			return nil, err
		}
		c, err := cmdclient.CreateClient(src.Kubeconfig, scheme)
		if err != nil {
			return nil, err
		}
		if err := cfg.LoadSecret(ctx, c, key); err != nil {
			return nil, err
		}
		log.V(1).Info("Loaded credentials secret", "secret", key)
	}
	return cfg, nil
}

// NewScanner returns the scanner described by a validated configuration.
// collector may be nil.
func NewScanner(cfg *config.Config, collector *scanner.InventoryCollector) (*scanner.Scanner, error) {
	pattern, err := vendor.CompilePattern(cfg.ProfilePattern)
	if err != nil {
		return nil, err
	}
	s := &scanner.Scanner{
		Vendors:   cfg.VendorOptions(),
		Clusters:  cfg.Clusters(),
		Pattern:   pattern,
		Collector: collector,
	}
	if cfg.Kubernetes.Configured() {
		hostnames, err := hostname.NewResolver(cfg.ServerNamePattern)
		if err != nil {
			return nil, err
		}
		s.Resolver = cluster.NewResolver(hostnames, cluster.NewKubeListerFunc(cfg.KubeOptions()), cfg.ResolverOptions())
	}
	return s, nil
}

// NewDashboard returns the dashboard server described by a validated
// configuration. The inventory gauges are registered with reg, or the
// controller-runtime metrics registry if reg is nil.
func NewDashboard(log logr.Logger, cfg *config.Config, reg prometheus.Registerer) (*dashboard.Server, error) {
	s, err := NewScanner(cfg, scanner.NewInventoryCollector(reg))
	if err != nil {
		return nil, err
	}
	return dashboard.NewServer(log, s, cache.New(cfg.CacheTTL.Duration, nil), dashboard.Options{
		Addr:         cfg.ListenAddress(),
		Defaults:     reconciler.Options{Allowlist: cfg.Allowlist()},
		ScanInterval: cfg.ScanInterval.Duration,
		Clusters:     cfg.Kubernetes.ClusterNames,
	}), nil
}
