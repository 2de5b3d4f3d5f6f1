// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"github.com/spf13/cobra"

	"github.com/ironcore-dev/server-scanner/internal/cmd/setup"
	"github.com/ironcore-dev/server-scanner/internal/reconciler"
	"github.com/ironcore-dev/server-scanner/internal/scanner"
)

var (
	vendorNames     []string
	showAll         bool
	keepZoneless    bool
	checkDuplicates bool
)

func NewScanCommand() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "List the available servers grouped by zone and vendor",
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}

	scanCmd.Flags().StringSliceVar(&vendorNames, "vendor", nil, "Vendors to query, HP, DELL or CISCO. All configured vendors are queried if empty.")
	scanCmd.Flags().BoolVar(&showAll, "show-all", false, "Include servers installed in a cluster.")
	scanCmd.Flags().BoolVar(&keepZoneless, "keep-zoneless", false, "Group servers without zone into the unknown zone.")
	scanCmd.Flags().BoolVar(&checkDuplicates, "check-duplicates", false, "Report server names known to several vendors.")

	return scanCmd
}

func runScan(cmd *cobra.Command, _ []string) error {
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
	p.ShowDuplicates = checkDuplicates
	vendors, err := parseVendors(vendorNames)
	if err != nil {
		return err
	}

	s, err := setup.NewScanner(cfg, nil)
	if err != nil {
		return err
	}
	inv, err := s.Scan(cmd.Context(), scanner.Request{
		Vendors: vendors,
		Options: reconciler.Options{
			Allowlist:    cfg.Allowlist(),
			ShowAll:      showAll,
			KeepZoneless: keepZoneless,
		},
	})
	if err != nil {
		return err
	}
	return p.PrintInventory(inv)
}
