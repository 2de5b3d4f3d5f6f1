// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package bmc reads system details from baseboard management controllers.
package bmc

import (
	"context"

	"github.com/stmcginnis/gofish/schemas"
	"k8s.io/apimachinery/pkg/api/resource"
)

// BMC defines an interface for reading from a Baseboard Management Controller.
type BMC interface {
	// GetSystems returns the managed systems.
	GetSystems(ctx context.Context) ([]SystemInfo, error)

	// Logout closes the BMC client connection by logging out
	Logout()
}

// SystemInfo represents a computer system managed by a BMC.
type SystemInfo struct {
	UUID              string             `json:"uuid,omitempty"`
	URI               string             `json:"uri,omitempty"`
	HostName          string             `json:"hostName,omitempty"`
	Manufacturer      string             `json:"manufacturer,omitempty"`
	Model             string             `json:"model,omitempty"`
	SerialNumber      string             `json:"serialNumber,omitempty"`
	BIOSVersion       string             `json:"biosVersion,omitempty"`
	PowerState        schemas.PowerState `json:"powerState,omitempty"`
	Health            string             `json:"health,omitempty"`
	TotalSystemMemory resource.Quantity  `json:"totalSystemMemory"`
}
