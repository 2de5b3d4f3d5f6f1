// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package v1beta1 contains the subset of the agent-install.openshift.io API
// the scanner reads from the installation clusters.
// +groupName=agent-install.openshift.io
// +kubebuilder:object:generate=true
package v1beta1
