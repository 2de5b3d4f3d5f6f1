// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package inventory

// ServerProfile is a server profile as reported by a vendor management system.
// Two profiles are the same entity only if Name and Vendor are equal.
type ServerProfile struct {
	Name         string `json:"name"`
	Vendor       Vendor `json:"vendor"`
	MACAddress   string `json:"macAddress,omitempty"`
	BMCAddress   string `json:"bmcAddress,omitempty"`
	Model        string `json:"model,omitempty"`
	Domain       string `json:"domain,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
}

// Key returns the identity of the profile.
func (p ServerProfile) Key() ProfileKey {
	return ProfileKey{Name: p.Name, Vendor: p.Vendor}
}

// ProfileKey is the identity of a ServerProfile.
type ProfileKey struct {
	Name   string
	Vendor Vendor
}
