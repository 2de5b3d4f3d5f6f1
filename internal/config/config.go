// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the configuration of the scanner from files, the
// environment and Kubernetes Secrets.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
	"github.com/ironcore-dev/server-scanner/internal/cluster"
	"github.com/ironcore-dev/server-scanner/internal/hostname"
	"github.com/ironcore-dev/server-scanner/internal/vendor"
	"github.com/ironcore-dev/server-scanner/internal/zone"
)

const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8000
	DefaultCacheTTL     = time.Hour
	DefaultScanInterval = time.Hour
)

// VendorCredentials address one hardware-management system.
type VendorCredentials struct {
	Address  string `json:"address,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Configured reports whether an address and credentials are set.
func (c VendorCredentials) Configured() bool {
	return c.Address != "" && c.Username != "" && c.Password != ""
}

func (c VendorCredentials) partial() bool {
	return !c.Configured() && (c.Address != "" || c.Username != "" || c.Password != "")
}

// CiscoCredentials address UCS Central and the UCS Manager domains behind it.
type CiscoCredentials struct {
	VendorCredentials `json:",inline"`
	ManagerUsername   string `json:"managerUsername,omitempty"`
	ManagerPassword   string `json:"managerPassword,omitempty"`
}

type Vendors struct {
	HP    VendorCredentials `json:"hp,omitempty"`
	Dell  VendorCredentials `json:"dell,omitempty"`
	Cisco CiscoCredentials  `json:"cisco,omitempty"`
}

// Kubernetes configures the clusters installed servers are read from.
type Kubernetes struct {
	// ClusterNames are combined with DomainName to the API server addresses.
	ClusterNames []string `json:"clusterNames,omitempty"`
	DomainName   string   `json:"domainName,omitempty"`
	// Tokens authenticate against the clusters in the order of ClusterNames.
	Tokens      []string        `json:"tokens,omitempty"`
	Namespace   string          `json:"namespace,omitempty"`
	Source      cluster.Source  `json:"source,omitempty"`
	CAFile      string          `json:"caFile,omitempty"`
	Timeout     metav1.Duration `json:"timeout,omitempty"`
	Concurrency int             `json:"concurrency,omitempty"`
}

// Configured reports whether any cluster is configured.
func (k Kubernetes) Configured() bool {
	return len(k.ClusterNames) > 0
}

// BMC holds the credentials used to probe baseboard management controllers.
type BMC struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Configured reports whether BMC credentials are set.
func (b BMC) Configured() bool {
	return b.Username != "" && b.Password != ""
}

// Config is the configuration of the scanner.
type Config struct {
	Vendors    Vendors    `json:"vendors,omitempty"`
	Kubernetes Kubernetes `json:"kubernetes,omitempty"`

	// Zones is the zone allowlist. All zones are shown if empty.
	Zones []string `json:"zones,omitempty"`

	ServerNamePattern string `json:"serverNamePattern,omitempty"`
	ProfilePattern    string `json:"profilePattern,omitempty"`

	InsecureSkipVerify bool            `json:"insecureSkipVerify"`
	VendorCAFile       string          `json:"vendorCAFile,omitempty"`
	VendorTimeout      metav1.Duration `json:"vendorTimeout,omitempty"`

	CacheTTL     metav1.Duration `json:"cacheTTL,omitempty"`
	ScanInterval metav1.Duration `json:"scanInterval,omitempty"`

	BMC BMC `json:"bmc,omitempty"`

	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Kubernetes: Kubernetes{
			Source:      cluster.SourceAgents,
			Timeout:     metav1.Duration{Duration: cluster.DefaultTimeout},
			Concurrency: cluster.DefaultConcurrency,
		},
		ProfilePattern:     vendor.DefaultProfilePattern,
		InsecureSkipVerify: true,
		VendorTimeout:      metav1.Duration{Duration: vendor.DefaultTimeout},
		CacheTTL:           metav1.Duration{Duration: DefaultCacheTTL},
		ScanInterval:       metav1.Duration{Duration: DefaultScanInterval},
		Host:               DefaultHost,
		Port:               DefaultPort,
	}
}

// LoadFile merges the YAML configuration file at path into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ListenAddress returns the address the dashboard listens on.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// VendorOptions returns the adapter options of every configured vendor.
func (c *Config) VendorOptions() map[inventory.Vendor]vendor.Options {
	base := vendor.Options{
		InsecureSkipVerify: c.InsecureSkipVerify,
		CAFile:             c.VendorCAFile,
		Timeout:            c.VendorTimeout.Duration,
	}
	with := func(creds VendorCredentials) vendor.Options {
		opts := base
		opts.Endpoint = creds.Address
		opts.Username = creds.Username
		opts.Password = creds.Password
		return opts
	}

	res := make(map[inventory.Vendor]vendor.Options)
	if c.Vendors.HP.Configured() {
		res[inventory.VendorHP] = with(c.Vendors.HP)
	}
	if c.Vendors.Dell.Configured() {
		res[inventory.VendorDell] = with(c.Vendors.Dell)
	}
	if c.Vendors.Cisco.Configured() {
		opts := with(c.Vendors.Cisco.VendorCredentials)
		opts.ManagerUsername = c.Vendors.Cisco.ManagerUsername
		opts.ManagerPassword = c.Vendors.Cisco.ManagerPassword
		res[inventory.VendorCisco] = opts
	}
	return res
}

// Clusters returns the configured clusters with their tokens. Call Validate
// first: clusters without a token get an empty one.
func (c *Config) Clusters() []cluster.Config {
	clusters := make([]cluster.Config, 0, len(c.Kubernetes.ClusterNames))
	for i, name := range c.Kubernetes.ClusterNames {
		cfg := cluster.Config{Name: name, Domain: c.Kubernetes.DomainName}
		if i < len(c.Kubernetes.Tokens) {
			cfg.Token = c.Kubernetes.Tokens[i]
		}
		clusters = append(clusters, cfg)
	}
	return clusters
}

// KubeOptions returns the options of the cluster clients.
func (c *Config) KubeOptions() cluster.KubeOptions {
	return cluster.KubeOptions{
		Source:    c.Kubernetes.Source,
		Namespace: c.Kubernetes.Namespace,
		CAFile:    c.Kubernetes.CAFile,
	}
}

// ResolverOptions returns the options of the installed-server resolver.
func (c *Config) ResolverOptions() cluster.ResolverOptions {
	return cluster.ResolverOptions{
		Timeout:     c.Kubernetes.Timeout.Duration,
		Concurrency: c.Kubernetes.Concurrency,
	}
}

// Allowlist returns the zone allowlist.
func (c *Config) Allowlist() zone.Allowlist {
	return zone.NewAllowlist(c.Zones...)
}

// Validate reports every inconsistency of the configuration.
func (c *Config) Validate() error {
	var errs []error

	configured := 0
	check := func(v inventory.Vendor, creds VendorCredentials) {
		switch {
		case creds.Configured():
			configured++
		case creds.partial():
			errs = append(errs, fmt.Errorf("vendor %s requires address, username and password", v))
		}
	}
	check(inventory.VendorHP, c.Vendors.HP)
	check(inventory.VendorDell, c.Vendors.Dell)
	check(inventory.VendorCisco, c.Vendors.Cisco.VendorCredentials)
	if configured == 0 {
		errs = append(errs, errors.New("no vendor is configured"))
	}
	if (c.Vendors.Cisco.ManagerUsername == "") != (c.Vendors.Cisco.ManagerPassword == "") {
		errs = append(errs, errors.New("UCS Manager requires both username and password"))
	}

	k := c.Kubernetes
	if len(k.Tokens) != len(k.ClusterNames) {
		errs = append(errs, fmt.Errorf("got %d kubernetes tokens for %d clusters", len(k.Tokens), len(k.ClusterNames)))
	}
	if k.Configured() {
		if k.DomainName == "" {
			errs = append(errs, errors.New("kubernetes domain name is required with cluster names"))
		}
		for i, name := range k.ClusterNames {
			if name == "" {
				errs = append(errs, fmt.Errorf("cluster name %d is empty", i))
			}
		}
	}
	if _, err := cluster.ParseSource(string(k.Source)); err != nil {
		errs = append(errs, err)
	}
	if k.Timeout.Duration < 0 {
		errs = append(errs, errors.New("kubernetes timeout must not be negative"))
	}
	if k.Concurrency < 0 {
		errs = append(errs, errors.New("cluster concurrency must not be negative"))
	}

	if c.CacheTTL.Duration <= 0 {
		errs = append(errs, errors.New("cache TTL must be positive"))
	}
	if c.ScanInterval.Duration < 0 {
		errs = append(errs, errors.New("scan interval must not be negative"))
	}
	if c.VendorTimeout.Duration < 0 {
		errs = append(errs, errors.New("vendor timeout must not be negative"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	if _, err := vendor.CompilePattern(c.ProfilePattern); err != nil {
		errs = append(errs, err)
	}
	if _, err := hostname.NewResolver(c.ServerNamePattern); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
