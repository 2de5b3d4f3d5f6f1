// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"errors"
	"net"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"

	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
)

// Reason classifies an error returned while reading from a cluster.
func Reason(err error) inventory.SourceReason {
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case apierrors.IsUnauthorized(err):
		return inventory.ReasonUnauthorized
	case apierrors.IsForbidden(err):
		return inventory.ReasonForbidden
	case meta.IsNoMatchError(err), apierrors.IsNotFound(err):
		return inventory.ReasonNotInstalled
	case errors.Is(err, context.DeadlineExceeded), apierrors.IsTimeout(err), apierrors.IsServerTimeout(err):
		return inventory.ReasonTimeout
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return inventory.ReasonTimeout
		}
		return inventory.ReasonUnreachable
	case apierrors.IsServiceUnavailable(err), apierrors.IsInternalError(err):
		return inventory.ReasonUnreachable
	default:
		return inventory.ReasonUnknown
	}
}

// isTransient reports whether a failed list is worth retrying.
func isTransient(err error) bool {
	return apierrors.IsServerTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err) ||
		apierrors.IsInternalError(err)
}
