// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"os"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/ironcore-dev/server-scanner/internal/cmd/setup"
)

var (
	setupLog = ctrl.Log.WithName("setup")
)

func main() {
	var src setup.Sources
	var host string
	var port int

	flag.StringVar(&src.ConfigFile, "config", "", "Path to a YAML configuration file.")
	flag.StringVar(&src.EnvFile, "env-file", "", "Path to a dotenv file.")
	flag.StringVar(&src.CredentialsSecret, "credentials-secret", "", "Secret holding the credentials as namespace/name.")
	flag.StringVar(&src.Kubeconfig, "kubeconfig", "", "Path to a kubeconfig of the cluster holding the credentials secret.")
	flag.StringVar(&host, "host", "", "Address to listen on. Overrides the configuration.")
	flag.IntVar(&port, "port", 0, "Port to listen on. Overrides the configuration.")

	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	ctx := ctrl.SetupSignalHandler()

	cfg, err := setup.LoadConfig(ctrl.LoggerInto(ctx, setupLog), src)
	if err != nil {
		setupLog.Error(err, "unable to load configuration")
		os.Exit(1)
	}
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		setupLog.Error(err, "invalid configuration")
		os.Exit(1)
	}

	server, err := setup.NewDashboard(ctrl.Log.WithName("dashboard"), cfg, nil)
	if err != nil {
		setupLog.Error(err, "unable to create dashboard")
		os.Exit(1)
	}

	setupLog.Info("starting dashboard", "zones", cfg.Zones, "clusters", cfg.Kubernetes.ClusterNames)
	if err := server.Start(ctx); err != nil {
		setupLog.Error(err, "problem running dashboard")
		os.Exit(1)
	}
}
