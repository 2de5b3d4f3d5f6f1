// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/ironcore-dev/server-scanner/internal/cmd/setup"
)

func NewZonesCommand() *cobra.Command {
	zonesCmd := &cobra.Command{
		Use:   "zones",
		Short: "List the zones of the vendor profiles",
		Args:  cobra.NoArgs,
		RunE:  runZones,
	}

	zonesCmd.Flags().StringSliceVar(&vendorNames, "vendor", nil, "Vendors to query, HP, DELL or CISCO. All configured vendors are queried if empty.")

	return zonesCmd
}

func runZones(cmd *cobra.Command, _ []string) error {
	log := ctrl.LoggerFrom(cmd.Context())
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	p, err := printer(cmd)
	if err != nil {
		return err
	}
	vendors, err := parseVendors(vendorNames)
	if err != nil {
		return err
	}
	s, err := setup.NewScanner(cfg, nil)
	if err != nil {
		return err
	}

	zones, errs, err := s.Zones(cmd.Context(), vendors)
	if err != nil {
		return err
	}
	for _, e := range errs {
		log.Error(e, "Vendor skipped")
	}
	return p.PrintZones(zones)
}
