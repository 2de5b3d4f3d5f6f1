// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/ironcore-dev/server-scanner/internal/cmd/setup"
)

var (
	host string
	port int
)

func NewServeCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory dashboard API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	serveCmd.Flags().StringVar(&host, "host", "", "Address to listen on.")
	serveCmd.Flags().IntVar(&port, "port", 0, "Port to listen on.")

	return serveCmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := ctrl.LoggerFrom(cmd.Context()).WithName("dashboard")
	srv, err := setup.NewDashboard(log, cfg, nil)
	if err != nil {
		return err
	}
	return srv.Start(cmd.Context())
}
