// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/ironcore-dev/server-scanner/bmc"
	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
	"github.com/ironcore-dev/server-scanner/internal/cmd/setup"
	"github.com/ironcore-dev/server-scanner/internal/config"
	"github.com/ironcore-dev/server-scanner/internal/output"
	"github.com/ironcore-dev/server-scanner/internal/vendor"
)

var probe bool

func NewDescribeCommand() *cobra.Command {
	describeCmd := &cobra.Command{
		Use:   "describe NAME",
		Short: "Show a server in every vendor and its installation status",
		Args:  cobra.ExactArgs(1),
		RunE:  runDescribe,
	}

	describeCmd.Flags().BoolVar(&probe, "probe", false, "Read the systems of the server via the Redfish API of its BMC.")

	return describeCmd
}

func runDescribe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := ctrl.LoggerFrom(ctx)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if probe && !cfg.BMC.Configured() {
		return errors.New("--probe requires the BMC username and password")
	}
	p, err := printer(cmd)
	if err != nil {
		return err
	}
	s, err := setup.NewScanner(cfg, nil)
	if err != nil {
		return err
	}

	servers, errs, err := s.Describe(ctx, args[0])
	for _, e := range errs {
		log.Error(e, "Source skipped")
	}
	if err != nil {
		return err
	}

	d := output.Description{Servers: servers}
	if probe {
		d.Probes = probeServers(ctx, cfg, servers)
	}
	return p.PrintDescription(d)
}

// probeServers reads the systems of every distinct BMC of servers.
func probeServers(ctx context.Context, cfg *config.Config, servers []inventory.ServerInfo) []output.BMCSystems {
	var probes []output.BMCSystems
	seen := map[string]bool{}
	for _, s := range servers {
		if s.BMCAddress == "" || seen[s.BMCAddress] {
			continue
		}
		seen[s.BMCAddress] = true
		probes = append(probes, output.BMCSystems{Server: s.Name, BMC: s.BMCAddress})
	}

	timeout := cfg.VendorTimeout.Duration
	if timeout <= 0 {
		timeout = vendor.DefaultTimeout
	}
	g := &errgroup.Group{}
	for i := range probes {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			systems, err := bmc.Probe(ctx, bmc.Options{
				Endpoint:  probes[i].BMC,
				Username:  cfg.BMC.Username,
				Password:  cfg.BMC.Password,
				BasicAuth: true,
				Insecure:  cfg.InsecureSkipVerify,
			})
			if err != nil {
				ctrl.LoggerFrom(ctx).Error(err, "Failed to probe BMC", "bmc", probes[i].BMC)
				probes[i].Error = err.Error()
				return nil
			}
			probes[i].Systems = systems
			return nil
		})
	}
	_ = g.Wait()
	return probes
}
