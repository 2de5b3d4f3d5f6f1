// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ironcore-dev/server-scanner/internal/cluster"
)

func NewClustersCommand() *cobra.Command {
	clustersCmd := &cobra.Command{
		Use:   "clusters",
		Short: "Check that the installation records of every cluster can be read",
		Args:  cobra.NoArgs,
		RunE:  runClusters,
	}
	return clustersCmd
}

func runClusters(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Kubernetes.Configured() {
		return errors.New("no kubernetes cluster is configured")
	}
	p, err := printer(cmd)
	if err != nil {
		return err
	}

	kubeOpts := cfg.KubeOptions()
	health := cluster.CheckClusters(cmd.Context(), cfg.Clusters(), cluster.NewKubeReaderFunc(kubeOpts), kubeOpts, cfg.ResolverOptions())
	return p.PrintHealth(health)
}
