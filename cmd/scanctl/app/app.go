// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	goflag "flag"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
	"github.com/ironcore-dev/server-scanner/internal/cluster"
	"github.com/ironcore-dev/server-scanner/internal/cmd/setup"
	"github.com/ironcore-dev/server-scanner/internal/config"
	"github.com/ironcore-dev/server-scanner/internal/output"
)

const Name string = "scanctl"

var (
	configFile         string
	envFile            string
	credentialsSecret  string
	kubeconfig         string
	outputFormat       string
	verbose            bool
	profilePattern     string
	serverNamePattern  string
	installedSource    string
	clusterConcurrency int
	clusterTimeout     time.Duration
	zones              []string

	zapOpts = zap.Options{}
)

func NewCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               Name,
		Short:             "Inventory of unprovisioned bare-metal servers",
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogger,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML configuration file.")
	flags.StringVar(&envFile, "env-file", "", "Path to a dotenv file.")
	flags.StringVar(&credentialsSecret, "credentials-secret", "", "Secret holding the credentials as namespace/name.")
	flags.StringVar(&kubeconfig, "kubeconfig", "", "Path to a kubeconfig of the cluster holding the credentials secret.")
	flags.StringVarP(&outputFormat, "output", "o", string(output.FormatList), fmt.Sprintf("Output format, one of %v.", output.Formats))
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr.")
	flags.StringVar(&profilePattern, "pattern", "", "Regular expression selecting the vendor profiles.")
	flags.StringVar(&serverNamePattern, "server-name-pattern", "", "Regular expression extracting server names from hostnames.")
	flags.StringVar(&installedSource, "installed-source", "", "Installation records to read, agents or baremetalhosts.")
	flags.IntVar(&clusterConcurrency, "cluster-concurrency", 0, "Number of clusters queried in parallel.")
	flags.DurationVar(&clusterTimeout, "cluster-timeout", 0, "Timeout of the queries of a single cluster.")
	flags.StringSliceVar(&zones, "zones", nil, "Zones to show. All zones are shown if empty.")

	fs := goflag.NewFlagSet(Name, goflag.ContinueOnError)
	zapOpts.BindFlags(fs)
	flags.AddGoFlagSet(fs)

	root.AddCommand(NewScanCommand())
	root.AddCommand(NewZonesCommand())
	root.AddCommand(NewDescribeCommand())
	root.AddCommand(NewClustersCommand())
	root.AddCommand(NewServeCommand())
	return root
}

// setupLogger logs errors only unless --verbose or --zap-log-level is set.
// The dashboard always logs at info level.
func setupLogger(cmd *cobra.Command, _ []string) error {
	opts := zapOpts
	opts.Development = opts.Development || verbose
	if !verbose && !cmd.Flags().Changed("zap-log-level") && cmd.Name() != "serve" {
		opts.Level = zapcore.ErrorLevel
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
	cmd.SetContext(ctrl.LoggerInto(cmd.Context(), ctrl.Log.WithName(Name)))
	return nil
}

// loadConfig merges the configuration sources and the flags shared by all
// commands.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := setup.LoadConfig(cmd.Context(), setup.Sources{
		ConfigFile:        configFile,
		EnvFile:           envFile,
		CredentialsSecret: credentialsSecret,
		Kubeconfig:        kubeconfig,
	})
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("pattern") {
		cfg.ProfilePattern = profilePattern
	}
	if changed("server-name-pattern") {
		cfg.ServerNamePattern = serverNamePattern
	}
	if changed("installed-source") {
		source, err := cluster.ParseSource(installedSource)
		if err != nil {
			return nil, err
		}
		cfg.Kubernetes.Source = source
	}
	if changed("cluster-concurrency") {
		cfg.Kubernetes.Concurrency = clusterConcurrency
	}
	if changed("cluster-timeout") {
		cfg.Kubernetes.Timeout.Duration = clusterTimeout
	}
	if changed("zones") {
		cfg.Zones = zones
	}
	return cfg, nil
}

func printer(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format), nil
}

func parseVendors(names []string) ([]inventory.Vendor, error) {
	var vendors []inventory.Vendor
	for _, name := range names {
		v, err := inventory.ParseVendor(name)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}
