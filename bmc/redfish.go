// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package bmc

import (
	"context"
	"fmt"
	"strings"

	"github.com/stmcginnis/gofish"
	"github.com/stmcginnis/gofish/schemas"
	"k8s.io/apimachinery/pkg/api/resource"
	ctrl "sigs.k8s.io/controller-runtime"
)

var _ BMC = (*RedfishBMC)(nil)

// Options contain the options for the BMC redfish client.
type Options struct {
	// Endpoint is the address of the BMC. A bare host is accessed via https.
	Endpoint  string
	Username  string
	Password  string
	BasicAuth bool
	// Insecure disables the verification of the BMC certificate.
	Insecure bool
}

// RedfishBMC is an implementation of the BMC interface for Redfish.
type RedfishBMC struct {
	client *gofish.APIClient
}

// NewRedfishBMCClient creates a new RedfishBMC with the given connection details.
func NewRedfishBMCClient(ctx context.Context, options Options) (*RedfishBMC, error) {
	endpoint := options.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	clientConfig := gofish.ClientConfig{
		Endpoint:  endpoint,
		Username:  options.Username,
		Password:  options.Password,
		Insecure:  options.Insecure,
		BasicAuth: options.BasicAuth,
	}
	client, err := gofish.ConnectContext(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to BMC %s: %w", options.Endpoint, err)
	}
	return &RedfishBMC{client: client}, nil
}

// Logout closes the BMC client connection by logging out
func (r *RedfishBMC) Logout() {
	if r.client != nil {
		r.client.Logout()
	}
}

// GetSystems returns the systems managed by the BMC.
func (r *RedfishBMC) GetSystems(ctx context.Context) ([]SystemInfo, error) {
	service := r.client.GetService()
	systems, err := service.Systems()
	if err != nil {
		return nil, fmt.Errorf("failed to get systems: %w", err)
	}
	infos := make([]SystemInfo, 0, len(systems))
	for _, s := range systems {
		info, err := systemInfo(s)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	ctrl.LoggerFrom(ctx).V(1).Info("Read BMC systems", "count", len(infos))
	return infos, nil
}

func systemInfo(system *schemas.ComputerSystem) (SystemInfo, error) {
	memoryString := fmt.Sprintf("%.fGi", gofish.Deref(system.MemorySummary.TotalSystemMemoryGiB))
	quantity, err := resource.ParseQuantity(memoryString)
	if err != nil {
		return SystemInfo{}, fmt.Errorf("failed to parse memory quantity: %w", err)
	}
	return SystemInfo{
		UUID:              system.UUID,
		URI:               system.ODataID,
		HostName:          system.HostName,
		Manufacturer:      system.Manufacturer,
		Model:             system.Model,
		SerialNumber:      system.SerialNumber,
		BIOSVersion:       system.BiosVersion,
		PowerState:        system.PowerState,
		Health:            string(system.Status.Health),
		TotalSystemMemory: quantity,
	}, nil
}

// Probe connects to the BMC described by options and returns its systems.
func Probe(ctx context.Context, options Options) ([]SystemInfo, error) {
	client, err := NewRedfishBMCClient(ctx, options)
	if err != nil {
		return nil, err
	}
	defer client.Logout()
	return client.GetSystems(ctx)
}
