// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"fmt"
	"strings"
)

// Vendor identifies the hardware-management system a server profile was read from.
type Vendor string

const (
	// VendorHP is HP OneView.
	VendorHP Vendor = "HP"
	// VendorDell is Dell OpenManage Enterprise.
	VendorDell Vendor = "DELL"
	// VendorCisco is Cisco UCS Central.
	VendorCisco Vendor = "CISCO"
)

// Vendors lists all supported vendors in their canonical order.
var Vendors = []Vendor{VendorHP, VendorDell, VendorCisco}

// ParseVendor parses a vendor name case-insensitively.
func ParseVendor(s string) (Vendor, error) {
	v := Vendor(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case VendorHP, VendorDell, VendorCisco:
		return v, nil
	}
	return "", fmt.Errorf("unknown vendor %q, must be one of %v", s, Vendors)
}
