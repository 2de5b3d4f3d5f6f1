// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
)

// RESTConfig returns the configuration of the hosting cluster. An empty
// kubeconfig falls back to $KUBECONFIG, the in-cluster configuration and
// ~/.kube/config in that order.
func RESTConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.GetConfigWithContext("")
	if err != nil {
		return nil, fmt.Errorf("failed getting client config: %w", err)
	}
	return cfg, nil
}

// CreateClient returns a client of the hosting cluster.
func CreateClient(kubeconfig string, scheme *runtime.Scheme) (client.Client, error) {
	clientConfig, err := RESTConfig(kubeconfig)
	if err != nil {
		return nil, err
	}
	k8sClient, err := client.New(clientConfig, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed creating client: %w", err)
	}
	return k8sClient, nil
}
