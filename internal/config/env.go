// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/ironcore-dev/server-scanner/internal/cluster"
)

// Environment variables read by ApplyEnv.
const (
	EnvOneViewAddress    = "ONEVIEW_IP"
	EnvOneViewUsername   = "ONEVIEW_USERNAME"
	EnvOneViewPassword   = "ONEVIEW_PASSWORD"
	EnvOMEAddress        = "OME_IP"
	EnvOMEUsername       = "OME_USERNAME"
	EnvOMEPassword       = "OME_PASSWORD"
	EnvUCSAddress        = "UCS_CENTRAL_IP"
	EnvUCSUsername       = "UCS_CENTRAL_USERNAME"
	EnvUCSPassword       = "UCS_CENTRAL_PASSWORD"
	EnvUCSMgrUsername    = "UCS_MANAGER_USERNAME"
	EnvUCSMgrPassword    = "UCS_MANAGER_PASSWORD"
	EnvClusterNames      = "K8S_CLUSTER_NAMES"
	EnvDomainName        = "K8S_DOMAIN_NAME"
	EnvTokens            = "K8S_TOKEN"
	EnvNamespace         = "K8S_NAMESPACE"
	EnvInstalledSource   = "K8S_INSTALLED_SOURCE"
	EnvKubeCAFile        = "K8S_CA_FILE"
	EnvKubeTimeout       = "K8S_TIMEOUT"
	EnvVendorTimeout     = "API_TIMEOUT"
	EnvVerifySSL         = "VERIFY_SSL"
	EnvZones             = "ZONES"
	EnvCacheTTL          = "CACHE_TTL_SECONDS"
	EnvScanInterval      = "BACKGROUND_SCAN_INTERVAL"
	EnvServerNamePattern = "SERVER_NAME_PATTERN"
	EnvProfilePattern    = "PROFILE_PATTERN"
	EnvBMCUsername       = "BMC_USERNAME"
	EnvBMCPassword       = "BMC_PASSWORD"
	EnvHost              = "HOST"
	EnvPort              = "PORT"
)

// Lookup returns the value of an environment variable and whether it is set.
type Lookup func(key string) (string, bool)

// MapLookup returns a Lookup reading from m.
func MapLookup(m map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// LoadEnvFile merges the dotenv file at path into c.
func (c *Config) LoadEnvFile(path string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read env file: %w", err)
	}
	return c.ApplyEnv(MapLookup(env))
}

// LoadEnv merges the process environment into c.
func (c *Config) LoadEnv() error {
	return c.ApplyEnv(os.LookupEnv)
}

// LoadSecret merges the keys of the Secret key into c. The keys are named like
// the environment variables.
func (c *Config) LoadSecret(ctx context.Context, r client.Reader, key types.NamespacedName) error {
	secret := &corev1.Secret{}
	if err := r.Get(ctx, key, secret); err != nil {
		return fmt.Errorf("failed to get credentials secret %s: %w", key, err)
	}
	env := make(map[string]string, len(secret.Data)+len(secret.StringData))
	for k, v := range secret.Data {
		env[k] = string(v)
	}
	for k, v := range secret.StringData {
		env[k] = v
	}
	return c.ApplyEnv(MapLookup(env))
}

// ParseNamespacedName parses "namespace/name".
func ParseNamespacedName(s string) (types.NamespacedName, error) {
	namespace, name, ok := strings.Cut(s, "/")
	if !ok || namespace == "" || name == "" {
		return types.NamespacedName{}, fmt.Errorf("invalid secret reference %q, must be namespace/name", s)
	}
	return types.NamespacedName{Namespace: namespace, Name: name}, nil
}

// ApplyEnv overrides the fields of c with the variables set in lookup. Empty
// values are ignored. All malformed values are reported.
func (c *Config) ApplyEnv(lookup Lookup) error {
	var errs []error
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := get(key); ok {
			*dst = splitList(v)
		}
	}
	seconds := func(key string, dst *metav1.Duration) {
		if v, ok := get(key); ok {
			d, err := parseSeconds(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			dst.Duration = d
		}
	}

	str(EnvOneViewAddress, &c.Vendors.HP.Address)
	str(EnvOneViewUsername, &c.Vendors.HP.Username)
	str(EnvOneViewPassword, &c.Vendors.HP.Password)
	str(EnvOMEAddress, &c.Vendors.Dell.Address)
	str(EnvOMEUsername, &c.Vendors.Dell.Username)
	str(EnvOMEPassword, &c.Vendors.Dell.Password)
	str(EnvUCSAddress, &c.Vendors.Cisco.Address)
	str(EnvUCSUsername, &c.Vendors.Cisco.Username)
	str(EnvUCSPassword, &c.Vendors.Cisco.Password)
	str(EnvUCSMgrUsername, &c.Vendors.Cisco.ManagerUsername)
	str(EnvUCSMgrPassword, &c.Vendors.Cisco.ManagerPassword)

	list(EnvClusterNames, &c.Kubernetes.ClusterNames)
	str(EnvDomainName, &c.Kubernetes.DomainName)
	list(EnvTokens, &c.Kubernetes.Tokens)
	str(EnvNamespace, &c.Kubernetes.Namespace)
	str(EnvKubeCAFile, &c.Kubernetes.CAFile)
	if v, ok := get(EnvInstalledSource); ok {
		source, err := cluster.ParseSource(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvInstalledSource, err))
		} else {
			c.Kubernetes.Source = source
		}
	}
	seconds(EnvKubeTimeout, &c.Kubernetes.Timeout)
	seconds(EnvVendorTimeout, &c.VendorTimeout)
	if v, ok := get(EnvVerifySSL); ok {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvVerifySSL, err))
		} else {
			c.InsecureSkipVerify = !verify
		}
	}

	list(EnvZones, &c.Zones)
	seconds(EnvCacheTTL, &c.CacheTTL)
	seconds(EnvScanInterval, &c.ScanInterval)
	str(EnvServerNamePattern, &c.ServerNamePattern)
	str(EnvProfilePattern, &c.ProfilePattern)

	str(EnvBMCUsername, &c.BMC.Username)
	str(EnvBMCPassword, &c.BMC.Password)

	str(EnvHost, &c.Host)
	if v, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvPort, err))
		} else {
			c.Port = port
		}
	}
	return errors.Join(errs...)
}

// splitList splits a comma separated list and drops empty entries.
func splitList(value string) []string {
	var res []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			res = append(res, item)
		}
	}
	return res
}

// parseSeconds accepts a number of seconds or a Go duration.
func parseSeconds(value string) (time.Duration, error) {
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", value)
		}
		return time.Duration(n * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return d, nil
}
