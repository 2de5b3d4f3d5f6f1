// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package inventory

import "fmt"

// SourceKind is the kind of data source a SourceError originates from.
type SourceKind string

const (
	SourceKindVendor  SourceKind = "vendor"
	SourceKindCluster SourceKind = "cluster"
)

// SourceReason classifies why a source did not contribute data.
type SourceReason string

const (
	ReasonUnreachable  SourceReason = "Unreachable"
	ReasonUnauthorized SourceReason = "Unauthorized"
	ReasonForbidden    SourceReason = "Forbidden"
	ReasonNotInstalled SourceReason = "NotInstalled"
	ReasonTimeout      SourceReason = "Timeout"
	ReasonInvalid      SourceReason = "InvalidResponse"
	ReasonUnknown      SourceReason = "Unknown"
)

// SourceError is the diagnostic recorded for a vendor or cluster that failed
// and contributed no data to a scan.
type SourceError struct {
	Kind    SourceKind   `json:"kind"`
	Source  string       `json:"source"`
	Reason  SourceReason `json:"reason"`
	Message string       `json:"message"`
}

func (e SourceError) Error() string {
	return fmt.Sprintf("%s %s: %s: %s", e.Kind, e.Source, e.Reason, e.Message)
}
