// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package v1beta1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// AgentSpec defines the desired state of Agent
type AgentSpec struct {
	// Hostname is the hostname the agent was configured with.
	// +optional
	Hostname *string `json:"hostname,omitempty"`
	// RequestedHostname is the hostname requested by the user for this host.
	// +optional
	RequestedHostname *string `json:"requestedHostname,omitempty"`
	// Approved indicates whether the host was approved for installation.
	// +optional
	Approved bool `json:"approved,omitempty"`
}

// HostInventory is the hardware inventory reported by the discovery agent.
type HostInventory struct {
	// Hostname is the hostname observed on the host. Before DHCP/DNS
	// completes this is frequently the MAC address of the boot interface.
	// +optional
	Hostname *string `json:"hostname,omitempty"`
	// BmcAddress is the address of the BMC reported by the host.
	// +optional
	BmcAddress string `json:"bmcAddress,omitempty"`
}

// AgentStatus defines the observed state of Agent
type AgentStatus struct {
	// Inventory is the hardware inventory reported by the agent.
	// +optional
	Inventory HostInventory `json:"inventory,omitempty"`
	// RequestedHostname is the hostname the installer resolved for this host.
	// +optional
	RequestedHostname *string `json:"requestedHostname,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// Agent is the Schema for the agents API
type Agent struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   AgentSpec   `json:"spec,omitempty"`
	Status AgentStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// AgentList contains a list of Agent
type AgentList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Agent `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Agent{}, &AgentList{})
}
